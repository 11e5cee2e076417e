package vehicle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Simplici0/glassquote/internal/domain"
)

// Client looks vehicles up in a registration API. Requests are sent as
// GET {baseURL}/vehicles/{registration} with an x-api-key header.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

func NewClient(baseURL, apiKey string, ratePerSec float64, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

func (c *Client) Lookup(ctx context.Context, registration string) (domain.VehicleDetails, error) {
	reg := domain.NormalizeRegistration(registration)
	if reg == "" {
		return domain.VehicleDetails{}, ErrNotFound
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.VehicleDetails{}, fmt.Errorf("wait for vehicle api rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/vehicles/"+url.PathEscape(reg), nil)
	if err != nil {
		return domain.VehicleDetails{}, fmt.Errorf("build vehicle request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.VehicleDetails{}, fmt.Errorf("call vehicle api: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("vehicle api call", zap.String("registration", reg), zap.Int("status", resp.StatusCode))

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.VehicleDetails{}, ErrNotFound
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.VehicleDetails{}, fmt.Errorf("vehicle api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var v domain.VehicleDetails
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return domain.VehicleDetails{}, fmt.Errorf("decode vehicle response: %w", err)
	}
	if v.Registration == "" {
		v.Registration = reg
	}
	return v, nil
}
