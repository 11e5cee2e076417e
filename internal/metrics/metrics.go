package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes recorded by ObserveFetch.
const (
	OutcomeOK         = "ok"
	OutcomeError      = "error"
	OutcomeSuperseded = "superseded"
	OutcomeCanceled   = "canceled"
)

// Registry holds the service metrics. A nil *Registry is valid and records
// nothing.
type Registry struct {
	reg            *prometheus.Registry
	Fetches        *prometheus.CounterVec
	FetchLatency   prometheus.Histogram
	QuotesComposed prometheus.Counter
	Checkouts      prometheus.Counter
	SessionsActive prometheus.Gauge
	VehicleLookups *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "glassquote_breakdown_fetches_total",
		Help: "Cost breakdown fetches by outcome.",
	}, []string{"outcome"})
	fetchLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "glassquote_breakdown_fetch_seconds",
		Buckets: prometheus.DefBuckets,
	})
	quotes := prometheus.NewCounter(prometheus.CounterOpts{Name: "glassquote_quotes_composed_total"})
	checkouts := prometheus.NewCounter(prometheus.CounterOpts{Name: "glassquote_checkouts_total"})
	active := prometheus.NewGauge(prometheus.GaugeOpts{Name: "glassquote_sessions_active"})
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "glassquote_vehicle_lookups_total",
	}, []string{"source"})

	r.MustRegister(fetches, fetchLatency, quotes, checkouts, active, lookups)
	return &Registry{
		reg:            r,
		Fetches:        fetches,
		FetchLatency:   fetchLatency,
		QuotesComposed: quotes,
		Checkouts:      checkouts,
		SessionsActive: active,
		VehicleLookups: lookups,
	}
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveFetch records the outcome and latency of one breakdown fetch.
func (r *Registry) ObserveFetch(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.Fetches.WithLabelValues(outcome).Inc()
	r.FetchLatency.Observe(d.Seconds())
}

func (r *Registry) QuoteComposed() {
	if r == nil {
		return
	}
	r.QuotesComposed.Inc()
}

func (r *Registry) CheckoutCompleted() {
	if r == nil {
		return
	}
	r.Checkouts.Inc()
}

func (r *Registry) SetSessionsActive(n int) {
	if r == nil {
		return
	}
	r.SessionsActive.Set(float64(n))
}

// VehicleLookup counts a lookup answered by source ("cache" or "api").
func (r *Registry) VehicleLookup(source string) {
	if r == nil {
		return
	}
	r.VehicleLookups.WithLabelValues(source).Inc()
}
