package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Simplici0/glassquote/internal/domain"
	"github.com/Simplici0/glassquote/internal/notify"
	"github.com/Simplici0/glassquote/internal/pricing"
	"github.com/Simplici0/glassquote/internal/session"
	"github.com/Simplici0/glassquote/internal/store"
)

type quoteResponse struct {
	ClassificationCode string                `json:"classification_code"`
	Quote              pricing.Quote         `json:"quote"`
	Vendors            []pricing.VendorPrice `json:"vendors"`
}

type windowsRequest struct {
	Windows []string          `json:"windows"`
	Damage  map[string]string `json:"damage"`
}

type glassRequest struct {
	Color         *string   `json:"color"`
	Stripe        *string   `json:"stripe"`
	Modifications *[]string `json:"modifications"`
}

type checkoutRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Vendor string `json:"vendor"`
}

func (s *server) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return nil, false
	}
	return sess, true
}

// respondAfterChange reports the session state after a change. A superseded
// fetch is not an error for the caller: a newer request owns the result.
func (s *server) respondAfterChange(w http.ResponseWriter, r *http.Request, sess *session.Session, err error) {
	if err != nil && !errors.Is(err, session.ErrSuperseded) {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	s.logger.Info("session created", zap.String("session_id", sess.ID()))
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *server) handleSetVehicle(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var body struct {
		Registration string `json:"registration"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	reg := domain.NormalizeRegistration(body.Registration)
	if reg == "" {
		writeError(w, http.StatusBadRequest, "registration is required")
		return
	}

	v, err := s.vehicles.Lookup(r.Context(), reg)
	if err != nil {
		s.writeErr(w, r, fmt.Errorf("look up %s: %w", reg, err))
		return
	}
	s.respondAfterChange(w, r, sess, sess.SetVehicle(r.Context(), v))
}

func (s *server) handleSetWindows(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var body windowsRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	sel, damage, err := parseWindows(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondAfterChange(w, r, sess, sess.SetWindows(r.Context(), sel, damage))
}

func parseWindows(body windowsRequest) (domain.Selection, domain.DamageRecord, error) {
	sel, err := domain.NewSelection(body.Windows)
	if err != nil {
		return nil, nil, err
	}
	damage := make(domain.DamageRecord, len(body.Damage))
	for rawWindow, rawKind := range body.Damage {
		win, err := domain.ParseWindow(rawWindow)
		if err != nil {
			return nil, nil, err
		}
		kind, err := domain.ParseDamageKind(rawKind)
		if err != nil {
			return nil, nil, err
		}
		damage[win] = kind
	}
	return sel, damage, nil
}

func (s *server) handleSetGlass(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var body glassRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	if body.Color != nil {
		if err := sess.SetColor(*body.Color); err != nil {
			s.writeErr(w, r, err)
			return
		}
	}
	if body.Stripe != nil {
		if err := sess.SetStripe(*body.Stripe); err != nil {
			s.writeErr(w, r, err)
			return
		}
	}
	var err error
	if body.Modifications != nil {
		mods := make([]string, 0, len(*body.Modifications))
		for _, m := range *body.Modifications {
			if m = pricing.NormalizeModification(m); m != "" {
				mods = append(mods, m)
			}
		}
		err = sess.SetModifications(r.Context(), mods)
	}
	s.respondAfterChange(w, r, sess, err)
}

func (s *server) handleSetGrade(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var body struct {
		Grade string `json:"grade"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	grade, err := domain.ParseGrade(body.Grade)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondAfterChange(w, r, sess, sess.SetGrade(grade))
}

func (s *server) handleSetDelivery(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var body struct {
		Delivery string `json:"delivery"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	delivery, err := domain.ParseDeliveryType(body.Delivery)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondAfterChange(w, r, sess, sess.SetDelivery(r.Context(), delivery))
}

func (s *server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	resp, err := buildQuote(sess)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	resp.Quote = resp.Quote.Display()
	writeJSON(w, http.StatusOK, resp)
}

func buildQuote(sess *session.Session) (quoteResponse, error) {
	p, err := sess.Priced()
	if err != nil {
		return quoteResponse{}, err
	}
	return quoteResponse{
		ClassificationCode: p.ClassificationCode,
		Quote:              p.Quote,
		Vendors:            p.Vendors,
	}, nil
}

func (s *server) handleRestart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	sess.Restart()
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var body checkoutRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	customer, err := parseCustomer(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	quote, err := buildQuote(sess)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	rec := store.Record{
		SessionID:          sess.ID(),
		ClassificationCode: quote.ClassificationCode,
		Quote:              quote.Quote,
		Customer:           customer,
	}
	if body.Vendor != "" {
		vp, found := findVendor(quote.Vendors, body.Vendor)
		if !found {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown vendor %q", body.Vendor))
			return
		}
		rec.Vendor, rec.VendorPrice = vp.Name, vp.Price
	}

	snap := sess.Snapshot()
	if snap.Vehicle != nil {
		rec.Registration = snap.Vehicle.Registration
		rec.Manufacturer = snap.Vehicle.Manufacturer
		rec.Model = snap.Vehicle.Model
	}
	rec.Windows = snap.Windows

	rec, err = s.quotes.Create(r.Context(), rec)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.metrics.CheckoutCompleted()

	ev := notify.QuoteConfirmed{
		Reference:          rec.Reference,
		Registration:       rec.Registration,
		ClassificationCode: rec.ClassificationCode,
		Grade:              string(rec.Quote.Grade),
		Delivery:           string(rec.Quote.Delivery),
		FinalPrice:         rec.Quote.FinalPrice,
		Vendor:             rec.Vendor,
		Email:              rec.Customer.Email,
		ConfirmedAt:        rec.CreatedAt,
	}
	if err := s.notifier.QuoteConfirmed(r.Context(), ev); err != nil {
		s.logger.Warn("failed to publish quote event", zap.String("reference", rec.Reference), zap.Error(err))
	}

	s.logger.Info("quote confirmed",
		zap.String("session_id", sess.ID()),
		zap.String("reference", rec.Reference),
		zap.Int("final_price", rec.Quote.FinalPrice),
	)
	writeJSON(w, http.StatusCreated, rec)
}

func parseCustomer(body checkoutRequest) (store.Customer, error) {
	name := strings.TrimSpace(body.Name)
	if name == "" {
		return store.Customer{}, errors.New("name is required")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(body.Email))
	if err != nil {
		return store.Customer{}, errors.New("a valid email is required")
	}
	return store.Customer{Name: name, Email: addr.Address, Phone: strings.TrimSpace(body.Phone)}, nil
}

func findVendor(vendors []pricing.VendorPrice, name string) (pricing.VendorPrice, bool) {
	for _, v := range vendors {
		if strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return pricing.VendorPrice{}, false
}
