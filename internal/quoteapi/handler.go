package quoteapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/Simplici0/glassquote/internal/pricing"
)

// Handler serves the calculation endpoint backed by the cost model.
type Handler struct {
	rates  pricing.Rates
	logger *zap.Logger
}

// NewHandler returns a Handler for rates.
func NewHandler(rates pricing.Rates, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{rates: rates, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	breakdown, err := h.rates.Estimate(req.Job())
	if err != nil {
		h.logger.Info("rejected quote calculation",
			zap.String("registration", req.Registration),
			zap.Error(err),
		)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(breakdown)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
