// Package store persists confirmed quotes.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Simplici0/glassquote/internal/domain"
	"github.com/Simplici0/glassquote/internal/pricing"
)

var ErrNotFound = errors.New("quote not found")

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Record is a confirmed quote. The classification code is stored as an
// opaque string.
type Record struct {
	Reference          string           `json:"reference"`
	SessionID          string           `json:"session_id"`
	Registration       string           `json:"registration"`
	Manufacturer       string           `json:"manufacturer"`
	Model              string           `json:"model"`
	ClassificationCode string           `json:"classification_code"`
	Windows            domain.Selection `json:"windows"`
	Quote              pricing.Quote    `json:"quote"`
	Vendor             string           `json:"vendor,omitempty"`
	VendorPrice        int              `json:"vendor_price,omitempty"`
	Customer           Customer         `json:"customer"`
	CreatedAt          time.Time        `json:"created_at"`
}

// Summary is one row of the admin quote list.
type Summary struct {
	Reference          string    `json:"reference"`
	Registration       string    `json:"registration"`
	ClassificationCode string    `json:"classification_code"`
	Grade              string    `json:"grade"`
	Delivery           string    `json:"delivery_type"`
	FinalPrice         int       `json:"final_price"`
	Email              string    `json:"email"`
	CreatedAt          time.Time `json:"created_at"`
}

type Quotes struct {
	db  *sql.DB
	now func() time.Time
}

func NewQuotes(db *sql.DB) *Quotes {
	return &Quotes{db: db, now: time.Now}
}

// Create assigns a reference and creation time and inserts the record.
func (q *Quotes) Create(ctx context.Context, rec Record) (Record, error) {
	if rec.Customer.Email == "" {
		return Record{}, errors.New("customer email is required")
	}
	if len(rec.ClassificationCode) != 7 {
		return Record{}, fmt.Errorf("invalid classification code %q", rec.ClassificationCode)
	}

	now := q.now().UTC()
	rec.Reference = ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	rec.CreatedAt = now.Truncate(time.Second)

	quoteJSON, err := json.Marshal(rec.Quote)
	if err != nil {
		return Record{}, fmt.Errorf("encode quote: %w", err)
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO quotes (
			reference,
			session_id,
			registration,
			manufacturer,
			model,
			classification_code,
			windows,
			grade,
			delivery_type,
			final_price,
			vendor,
			vendor_price,
			quote_json,
			customer_name,
			customer_email,
			customer_phone,
			created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.Reference,
		rec.SessionID,
		rec.Registration,
		rec.Manufacturer,
		rec.Model,
		rec.ClassificationCode,
		rec.Windows.Key(),
		string(rec.Quote.Grade),
		string(rec.Quote.Delivery),
		rec.Quote.FinalPrice,
		rec.Vendor,
		rec.VendorPrice,
		string(quoteJSON),
		rec.Customer.Name,
		rec.Customer.Email,
		rec.Customer.Phone,
		rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert quote: %w", err)
	}
	return rec, nil
}

func (q *Quotes) Get(ctx context.Context, reference string) (Record, error) {
	var (
		rec       Record
		windows   string
		quoteJSON string
		createdAt string
	)
	err := q.db.QueryRowContext(ctx, `
		SELECT
			reference,
			session_id,
			registration,
			manufacturer,
			model,
			classification_code,
			windows,
			vendor,
			vendor_price,
			quote_json,
			customer_name,
			customer_email,
			customer_phone,
			created_at
		FROM quotes
		WHERE reference = ?
	`, reference).Scan(
		&rec.Reference,
		&rec.SessionID,
		&rec.Registration,
		&rec.Manufacturer,
		&rec.Model,
		&rec.ClassificationCode,
		&windows,
		&rec.Vendor,
		&rec.VendorPrice,
		&quoteJSON,
		&rec.Customer.Name,
		&rec.Customer.Email,
		&rec.Customer.Phone,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("query quote: %w", err)
	}

	if err := json.Unmarshal([]byte(quoteJSON), &rec.Quote); err != nil {
		return Record{}, fmt.Errorf("decode quote %s: %w", reference, err)
	}
	if rec.Windows, err = parseWindows(windows); err != nil {
		return Record{}, fmt.Errorf("decode windows of quote %s: %w", reference, err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Record{}, fmt.Errorf("parse created_at of quote %s: %w", reference, err)
	}
	return rec, nil
}

// List returns quotes newest first. A non-empty query matches registration,
// classification code, customer email or reference.
func (q *Quotes) List(ctx context.Context, query string) ([]Summary, error) {
	query = strings.TrimSpace(query)
	search := "%" + query + "%"
	rows, err := q.db.QueryContext(ctx, `
		SELECT
			reference,
			registration,
			classification_code,
			grade,
			delivery_type,
			final_price,
			customer_email,
			created_at
		FROM quotes
		WHERE (? = ''
			OR registration LIKE ?
			OR classification_code LIKE ?
			OR customer_email LIKE ?
			OR reference LIKE ?)
		ORDER BY created_at DESC, id DESC
	`, query, search, search, search, search)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]Summary, 0)
	for rows.Next() {
		var item Summary
		var createdAt string
		if err := rows.Scan(
			&item.Reference,
			&item.Registration,
			&item.ClassificationCode,
			&item.Grade,
			&item.Delivery,
			&item.FinalPrice,
			&item.Email,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		var err error
		if item.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of quote %s: %w", item.Reference, err)
		}
		quotes = append(quotes, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}

	return quotes, nil
}

func parseWindows(key string) (domain.Selection, error) {
	if key == "" {
		return nil, nil
	}
	return domain.NewSelection(strings.Split(key, ","))
}
