package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Simplici0/glassquote/internal/metrics"
	"github.com/Simplici0/glassquote/internal/notify"
	"github.com/Simplici0/glassquote/internal/pricing"
	"github.com/Simplici0/glassquote/internal/quoteapi"
	"github.com/Simplici0/glassquote/internal/session"
	"github.com/Simplici0/glassquote/internal/store"
	"github.com/Simplici0/glassquote/internal/vehicle"
)

type server struct {
	auth     *authService
	sessions *session.Manager
	vehicles vehicle.Lookup
	quotes   *store.Quotes
	notifier notify.Publisher
	metrics  *metrics.Registry
	rates    pricing.Rates
	logger   *zap.Logger
}

func (s *server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Post("/vehicle", s.handleSetVehicle)
			r.Put("/windows", s.handleSetWindows)
			r.Put("/glass", s.handleSetGlass)
			r.Put("/grade", s.handleSetGrade)
			r.Put("/delivery", s.handleSetDelivery)
			r.Get("/quote", s.handleGetQuote)
			r.Post("/restart", s.handleRestart)
			r.Post("/checkout", s.handleCheckout)
		})
		r.Method(http.MethodPost, "/calculate", quoteapi.NewHandler(s.rates, s.logger.Named("calculate")))
	})

	r.Post("/admin/login", s.handleLogin)
	r.Post("/admin/logout", s.handleLogout)
	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/admin/quotes", s.handleQuotesList)
		r.Get("/admin/quotes/{reference}", s.handleQuoteDetail)
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	return r
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, vehicle.ErrNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionExpired):
		return http.StatusGone
	case errors.Is(err, session.ErrFetchFailed):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrNoCostBreakdown),
		errors.Is(err, session.ErrGradeNotSelected),
		errors.Is(err, session.ErrWindowNotSelected):
		return http.StatusConflict
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
