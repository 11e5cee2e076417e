package quoteapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Simplici0/glassquote/internal/domain"
)

const calculatePath = "/api/calculate"

// Client calls a remote calculation service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a Client. ratePerSec <= 0 disables rate limiting.
func NewClient(baseURL string, ratePerSec float64, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(limit, 5),
		logger:     logger,
	}
}

// Quote posts req and decodes the cost breakdown. Retries are left to the
// caller.
func (c *Client) Quote(ctx context.Context, req Request) (domain.CostBreakdown, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.CostBreakdown{}, fmt.Errorf("wait for quote api rate limit: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return domain.CostBreakdown{}, fmt.Errorf("encode quote request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+calculatePath, bytes.NewReader(body))
	if err != nil {
		return domain.CostBreakdown{}, fmt.Errorf("build quote request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.CostBreakdown{}, fmt.Errorf("call quote api: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("quote api call",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.CostBreakdown{}, fmt.Errorf("quote api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var breakdown domain.CostBreakdown
	if err := json.NewDecoder(resp.Body).Decode(&breakdown); err != nil {
		return domain.CostBreakdown{}, fmt.Errorf("decode quote response: %w", err)
	}
	return breakdown, nil
}
