// Package notify publishes quote events to other services.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "glassquote.quote.confirmed"

// QuoteConfirmed is emitted after a customer checks out a quote.
type QuoteConfirmed struct {
	Reference          string    `json:"reference"`
	Registration       string    `json:"registration"`
	ClassificationCode string    `json:"classification_code"`
	Grade              string    `json:"grade"`
	Delivery           string    `json:"delivery_type"`
	FinalPrice         int       `json:"final_price"`
	Vendor             string    `json:"vendor,omitempty"`
	Email              string    `json:"email"`
	ConfirmedAt        time.Time `json:"confirmed_at"`
}

type Publisher interface {
	QuoteConfirmed(ctx context.Context, ev QuoteConfirmed) error
	Close()
}

// Encode returns the wire form of ev.
func Encode(ev QuoteConfirmed) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode quote event: %w", err)
	}
	return data, nil
}

// NATS publishes JSON events on a single subject.
type NATS struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

// Connect dials url and returns a publisher for subject.
func Connect(url, subject string, logger *zap.Logger) (*NATS, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if subject == "" {
		subject = DefaultSubject
	}
	nc, err := nats.Connect(url,
		nats.Name("glassquote"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATS{conn: nc, subject: subject, logger: logger}, nil
}

func (n *NATS) QuoteConfirmed(ctx context.Context, ev QuoteConfirmed) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publish quote event: %w", err)
	}
	n.logger.Debug("published quote event", zap.String("subject", n.subject), zap.String("reference", ev.Reference))
	return nil
}

// Close flushes pending messages and closes the connection.
func (n *NATS) Close() {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) QuoteConfirmed(context.Context, QuoteConfirmed) error { return nil }

func (Discard) Close() {}
