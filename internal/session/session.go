// Package session implements the quote recompute policy for one customer's
// quoting session.
//
// A Session caches the grade-neutral cost breakdown returned by the quote
// calculation service. Grade, colour and stripe changes are recomputed
// locally from that cache; vehicle, window, damage, modification and delivery
// changes invalidate it and trigger exactly one new fetch. Fetches are
// numbered and only the most recent one may commit its result.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/glassquote/internal/classify"
	"github.com/Simplici0/glassquote/internal/domain"
	"github.com/Simplici0/glassquote/internal/metrics"
	"github.com/Simplici0/glassquote/internal/pricing"
	"github.com/Simplici0/glassquote/internal/quoteapi"
)

// State is the recompute state of a session.
type State int

const (
	StateUninitialized State = iota
	StateAwaitingRemoteBase
	StateHasBase
	StateStale
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAwaitingRemoteBase:
		return "awaiting_remote_base"
	case StateHasBase:
		return "has_base"
	case StateStale:
		return "stale"
	default:
		return "unknown"
	}
}

var (
	ErrNoCostBreakdown   = errors.New("price requested before a cost breakdown is available")
	ErrGradeNotSelected  = errors.New("glass grade not selected")
	ErrSessionExpired    = errors.New("quote session expired")
	ErrFetchFailed       = errors.New("cost breakdown fetch failed")
	ErrSuperseded        = errors.New("cost breakdown superseded by a newer request")
	ErrWindowNotSelected = errors.New("window not selected")
)

// DefaultTTL is the session countdown used when Options.TTL is zero.
const DefaultTTL = 10 * time.Minute

// Quoter fetches grade-neutral cost breakdowns.
type Quoter interface {
	Quote(ctx context.Context, req quoteapi.Request) (domain.CostBreakdown, error)
}

// Options configures sessions. Zero values select defaults.
type Options struct {
	TTL        time.Duration
	Now        func() time.Time
	Classifier *classify.Classifier
	Vendors    []string
	Metrics    *metrics.Registry
	Logger     *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Classifier == nil {
		o.Classifier = classify.Default
	}
	if o.Vendors == nil {
		o.Vendors = pricing.DefaultVendors
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Session is safe for concurrent use.
type Session struct {
	id     string
	quoter Quoter
	opts   Options

	mu        sync.Mutex
	state     State
	vehicle   *domain.VehicleDetails
	selection domain.Selection
	damage    domain.DamageRecord
	glass     domain.GlassProperties
	delivery  domain.DeliveryType
	breakdown *domain.CostBreakdown
	seq       uint64
	fetchErr  error
	// abandoned is set when the caller went away before the latest fetch
	// finished, so the next change refetches even if it repeats an input.
	abandoned bool
	deadline  time.Time
}

// New creates a session whose countdown starts now.
func New(id string, q Quoter, opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		id:       id,
		quoter:   q,
		opts:     opts,
		damage:   domain.DamageRecord{},
		delivery: domain.DeliveryStandard,
		deadline: opts.Now().Add(opts.TTL),
	}
}

func (s *Session) ID() string { return s.id }

// State returns the current state, moving to StateStale if the deadline passed.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.checkLocked()
	return s.state
}

// Deadline returns the expiry time of the current countdown.
func (s *Session) Deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadline
}

func (s *Session) checkLocked() error {
	if s.state == StateStale {
		return ErrSessionExpired
	}
	if !s.opts.Now().Before(s.deadline) {
		s.state = StateStale
		return ErrSessionExpired
	}
	return nil
}

// checkMutableLocked also refuses changes after a failed fetch; the only way
// forward is Restart.
func (s *Session) checkMutableLocked() error {
	if err := s.checkLocked(); err != nil {
		return err
	}
	if s.fetchErr != nil {
		return fmt.Errorf("%w: %w", ErrFetchFailed, s.fetchErr)
	}
	return nil
}

// SetVehicle stores the resolved vehicle.
func (s *Session) SetVehicle(ctx context.Context, v domain.VehicleDetails) error {
	return s.mutate(ctx, func() error {
		s.vehicle = &v
		return nil
	})
}

// SetWindows replaces the selection and its damage record in one step.
// Damage entries must refer to selected windows.
func (s *Session) SetWindows(ctx context.Context, sel domain.Selection, damage domain.DamageRecord) error {
	return s.mutate(ctx, func() error {
		for w := range damage {
			if !sel.Contains(w) {
				return fmt.Errorf("damage for %s: %w", w, ErrWindowNotSelected)
			}
		}
		s.selection = slices.Clone(sel)
		s.damage = damage.Clone()
		return nil
	})
}

// ToggleWindow adds or removes one window. Removing a window drops its damage.
func (s *Session) ToggleWindow(ctx context.Context, w domain.Window) error {
	return s.mutate(ctx, func() error {
		s.selection = s.selection.Toggle(w)
		if !s.selection.Contains(w) {
			delete(s.damage, w)
		}
		return nil
	})
}

// SetDamage records the damage of a selected window.
func (s *Session) SetDamage(ctx context.Context, w domain.Window, kind domain.DamageKind) error {
	return s.mutate(ctx, func() error {
		if !s.selection.Contains(w) {
			return fmt.Errorf("damage for %s: %w", w, ErrWindowNotSelected)
		}
		if s.damage[w] == kind {
			return errUnchanged
		}
		s.damage[w] = kind
		return nil
	})
}

// SetModifications replaces the list of glass add-ons.
func (s *Session) SetModifications(ctx context.Context, mods []string) error {
	return s.mutate(ctx, func() error {
		if slices.Equal(s.glass.Modifications, mods) {
			return errUnchanged
		}
		s.glass.Modifications = slices.Clone(mods)
		return nil
	})
}

// SetDelivery changes the delivery type. A change always costs one fetch.
func (s *Session) SetDelivery(ctx context.Context, d domain.DeliveryType) error {
	return s.mutate(ctx, func() error {
		if s.delivery == d {
			return errUnchanged
		}
		s.delivery = d
		return nil
	})
}

// SetGrade changes the glass grade. It never triggers a fetch.
func (s *Session) SetGrade(g domain.Grade) error {
	return s.local(func() { s.glass.Grade = g })
}

// SetColor changes the glass colour, which only affects the classification code.
func (s *Session) SetColor(color string) error {
	return s.local(func() { s.glass.Color = color })
}

// SetStripe changes the shade band choice.
func (s *Session) SetStripe(stripe string) error {
	return s.local(func() { s.glass.Stripe = stripe })
}

func (s *Session) local(apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMutableLocked(); err != nil {
		return err
	}
	apply()
	return nil
}

var errUnchanged = errors.New("unchanged")

// mutate applies a change that alters the cost breakdown inputs and, when the
// inputs are complete, fetches a new breakdown.
func (s *Session) mutate(ctx context.Context, apply func() error) error {
	s.mu.Lock()
	if err := s.checkMutableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := apply(); err != nil {
		if !errors.Is(err, errUnchanged) {
			s.mu.Unlock()
			return err
		}
		if !s.abandoned {
			s.mu.Unlock()
			return nil
		}
	}
	s.abandoned = false

	// Any in-flight fetch is now for outdated inputs.
	s.seq++
	seq := s.seq
	if !s.readyLocked() {
		s.state = StateUninitialized
		s.mu.Unlock()
		return nil
	}
	s.state = StateAwaitingRemoteBase
	req := s.requestLocked()
	s.mu.Unlock()

	return s.fetch(ctx, seq, req)
}

func (s *Session) readyLocked() bool {
	return s.vehicle != nil && len(s.selection) > 0 && s.damage.Covers(s.selection)
}

func (s *Session) requestLocked() quoteapi.Request {
	damage := make(map[domain.Window]domain.DamageKind, len(s.damage))
	for w, k := range s.damage {
		damage[w] = k
	}
	return quoteapi.Request{
		Registration:  s.vehicle.Registration,
		Windows:       slices.Clone(s.selection),
		Damage:        damage,
		Modifications: slices.Clone(s.glass.Modifications),
		Grade:         s.glass.Grade,
		Delivery:      s.delivery,
	}
}

// fetch runs without the lock held and commits only if seq is still the
// latest request.
func (s *Session) fetch(ctx context.Context, seq uint64, req quoteapi.Request) error {
	start := time.Now()
	breakdown, err := s.quoter.Quote(ctx, req)
	elapsed := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.opts.Logger.With(zap.String("session_id", s.id), zap.Uint64("seq", seq))
	if seq != s.seq {
		s.opts.Metrics.ObserveFetch(metrics.OutcomeSuperseded, elapsed)
		log.Debug("discarded superseded cost breakdown", zap.Uint64("latest_seq", s.seq))
		return ErrSuperseded
	}
	if err := s.checkLocked(); err != nil {
		return err
	}
	if err != nil && ctx.Err() != nil {
		// The caller hung up; the remote service did not fail.
		s.abandoned = true
		s.opts.Metrics.ObserveFetch(metrics.OutcomeCanceled, elapsed)
		log.Debug("cost breakdown fetch abandoned by caller", zap.Error(err))
		return ctx.Err()
	}
	if err != nil {
		s.fetchErr = err
		s.opts.Metrics.ObserveFetch(metrics.OutcomeError, elapsed)
		log.Warn("cost breakdown fetch failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	s.breakdown = &breakdown
	s.state = StateHasBase
	s.opts.Metrics.ObserveFetch(metrics.OutcomeOK, elapsed)
	log.Debug("cached cost breakdown", zap.Float64("labour_cost", breakdown.LabourCost))
	return nil
}

// Quote composes the price from the cached breakdown. It never calls the
// Quoter.
func (s *Session) Quote() (pricing.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quoteLocked()
}

func (s *Session) quoteLocked() (pricing.Quote, error) {
	if err := s.checkMutableLocked(); err != nil {
		return pricing.Quote{}, err
	}
	if s.state != StateHasBase || s.breakdown == nil {
		return pricing.Quote{}, ErrNoCostBreakdown
	}
	if s.glass.Grade == domain.GradeUnset {
		return pricing.Quote{}, ErrGradeNotSelected
	}
	s.opts.Metrics.QuoteComposed()
	return pricing.Compose(*s.breakdown, s.glass.Grade, s.delivery), nil
}

// Vendors returns the comparison prices for the current quote, cheapest first.
func (s *Session) Vendors() ([]pricing.VendorPrice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.quoteLocked()
	if err != nil {
		return nil, err
	}
	return s.vendorsLocked(q), nil
}

func (s *Session) vendorsLocked(q pricing.Quote) []pricing.VendorPrice {
	seed := pricing.VendorSeed(q.FinalPrice, s.vehicle.Registration, s.selection)
	return pricing.VendorPrices(q.FinalPrice, seed, s.opts.Vendors)
}

// Priced is a quote with the vendor prices and classification code derived
// from the same inputs.
type Priced struct {
	ClassificationCode string
	Quote              pricing.Quote
	Vendors            []pricing.VendorPrice
}

// Priced composes the quote, vendor prices and classification code under one
// lock so a concurrent change cannot mix two sets of inputs.
func (s *Session) Priced() (Priced, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.quoteLocked()
	if err != nil {
		return Priced{}, err
	}
	return Priced{
		ClassificationCode: s.codeLocked(),
		Quote:              q,
		Vendors:            s.vendorsLocked(q),
	}, nil
}

// ClassificationCode returns the code for the current vehicle, selection and
// colour. Missing inputs fall back to the classifier defaults.
func (s *Session) ClassificationCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codeLocked()
}

func (s *Session) codeLocked() string {
	var manufacturer, model string
	if s.vehicle != nil {
		manufacturer, model = s.vehicle.Manufacturer, s.vehicle.Model
	}
	return s.opts.Classifier.Code(manufacturer, model, s.selection, s.glass.Color)
}

// Restart clears every input, discards any in-flight fetch and starts a new
// countdown.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.state = StateUninitialized
	s.vehicle = nil
	s.selection = nil
	s.damage = domain.DamageRecord{}
	s.glass = domain.GlassProperties{}
	s.delivery = domain.DeliveryStandard
	s.breakdown = nil
	s.fetchErr = nil
	s.abandoned = false
	s.deadline = s.opts.Now().Add(s.opts.TTL)
}

// Snapshot is a read-only copy of the session.
type Snapshot struct {
	ID                 string                 `json:"id"`
	State              string                 `json:"state"`
	Vehicle            *domain.VehicleDetails `json:"vehicle,omitempty"`
	Windows            domain.Selection       `json:"windows"`
	Damage             domain.DamageRecord    `json:"damage"`
	Glass              domain.GlassProperties `json:"glass"`
	Delivery           domain.DeliveryType    `json:"delivery_type"`
	ClassificationCode string                 `json:"classification_code"`
	Breakdown          *domain.CostBreakdown  `json:"cost_breakdown,omitempty"`
	LastError          string                 `json:"last_error,omitempty"`
	ExpiresAt          time.Time              `json:"expires_at"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.checkLocked()

	snap := Snapshot{
		ID:                 s.id,
		State:              s.state.String(),
		Windows:            slices.Clone(s.selection),
		Damage:             s.damage.Clone(),
		Glass:              s.glass,
		Delivery:           s.delivery,
		ClassificationCode: s.codeLocked(),
		ExpiresAt:          s.deadline,
	}
	snap.Glass.Modifications = slices.Clone(s.glass.Modifications)
	if s.vehicle != nil {
		v := *s.vehicle
		snap.Vehicle = &v
	}
	if s.breakdown != nil {
		b := *s.breakdown
		b.PerWindow = slices.Clone(b.PerWindow)
		snap.Breakdown = &b
	}
	if s.fetchErr != nil {
		snap.LastError = s.fetchErr.Error()
	}
	return snap
}

func (s *Session) expiredFor(now time.Time, grace time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.deadline) > grace
}
