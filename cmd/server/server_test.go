package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/glassquote/internal/db"
	"github.com/Simplici0/glassquote/internal/domain"
	"github.com/Simplici0/glassquote/internal/metrics"
	"github.com/Simplici0/glassquote/internal/migrations"
	"github.com/Simplici0/glassquote/internal/notify"
	"github.com/Simplici0/glassquote/internal/pricing"
	"github.com/Simplici0/glassquote/internal/quoteapi"
	"github.com/Simplici0/glassquote/internal/seed"
	"github.com/Simplici0/glassquote/internal/session"
	"github.com/Simplici0/glassquote/internal/store"
	"github.com/Simplici0/glassquote/internal/vehicle"
)

const (
	testAdminEmail    = "admin@glassquote.test"
	testAdminPassword = "correct horse"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.QuoteConfirmed
}

func (p *recordingPublisher) QuoteConfirmed(_ context.Context, ev notify.QuoteConfirmed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() {}

type failingQuoter struct{}

func (failingQuoter) Quote(context.Context, quoteapi.Request) (domain.CostBreakdown, error) {
	return domain.CostBreakdown{}, errors.New("calculation service unavailable")
}

type testEnv struct {
	srv       *server
	http      *httptest.Server
	client    *http.Client
	publisher *recordingPublisher
}

func newTestEnv(t *testing.T, quoter session.Quoter, opts session.Options) *testEnv {
	t.Helper()
	ctx := context.Background()

	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "server-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if _, err := migrations.Up(ctx, database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if _, err := seed.Run(ctx, database, seed.Config{AdminEmail: testAdminEmail, AdminPassword: testAdminPassword}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	reg := metrics.NewRegistry()
	opts.Metrics = reg
	publisher := &recordingPublisher{}
	srv := &server{
		auth:     newAuthService(database, "test-secret"),
		sessions: session.NewManager(quoter, opts),
		vehicles: vehicle.DemoVehicles,
		quotes:   store.NewQuotes(database),
		notifier: publisher,
		metrics:  reg,
		rates:    pricing.DefaultRates,
		logger:   zap.NewNop(),
	}

	hs := httptest.NewServer(srv.routes())
	t.Cleanup(hs.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &testEnv{srv: srv, http: hs, client: &http.Client{Jar: jar}, publisher: publisher}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.http.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	var snap session.Snapshot
	if code := e.do(t, http.MethodPost, "/api/sessions", nil, &snap); code != http.StatusCreated {
		t.Fatalf("create session status %d", code)
	}
	return snap.ID
}

// readySession returns a session with a BMW X5 and a cracked windscreen.
func (e *testEnv) readySession(t *testing.T) string {
	t.Helper()
	id := e.createSession(t)
	base := "/api/sessions/" + id

	if code := e.do(t, http.MethodPost, base+"/vehicle", map[string]string{"registration": "ab12 cde"}, nil); code != http.StatusOK {
		t.Fatalf("set vehicle status %d", code)
	}

	var snap session.Snapshot
	windows := map[string]any{
		"windows": []string{"windscreen"},
		"damage":  map[string]string{"windscreen": "Cracked"},
	}
	if code := e.do(t, http.MethodPut, base+"/windows", windows, &snap); code != http.StatusOK {
		t.Fatalf("set windows status %d", code)
	}
	if snap.State != "has_base" {
		t.Fatalf("expected has_base, got %s", snap.State)
	}
	return id
}

func TestQuoteFlowThroughCheckout(t *testing.T) {
	env := newTestEnv(t, quoteapi.NewLocal(), session.Options{})
	id := env.readySession(t)
	base := "/api/sessions/" + id

	var errBody map[string]string
	if code := env.do(t, http.MethodGet, base+"/quote", nil, &errBody); code != http.StatusConflict {
		t.Fatalf("quote without grade: status %d, want 409", code)
	}

	if code := env.do(t, http.MethodPut, base+"/grade", map[string]string{"grade": "oee"}, nil); code != http.StatusOK {
		t.Fatalf("set grade status %d", code)
	}
	var quote quoteResponse
	if code := env.do(t, http.MethodGet, base+"/quote", nil, &quote); code != http.StatusOK {
		t.Fatalf("quote status %d", code)
	}
	if quote.Quote.FinalPrice != 374 || quote.ClassificationCode != "2439ACL" {
		t.Fatalf("unexpected quote: %+v", quote)
	}
	if len(quote.Vendors) != len(pricing.DefaultVendors) {
		t.Fatalf("expected %d vendors, got %d", len(pricing.DefaultVendors), len(quote.Vendors))
	}

	if code := env.do(t, http.MethodPut, base+"/delivery", map[string]string{"delivery": "express"}, nil); code != http.StatusOK {
		t.Fatalf("set delivery status %d", code)
	}
	if code := env.do(t, http.MethodGet, base+"/quote", nil, &quote); code != http.StatusOK {
		t.Fatalf("quote status %d", code)
	}
	if quote.Quote.FinalPrice != 464 {
		t.Fatalf("express final price %d, want 464", quote.Quote.FinalPrice)
	}

	checkout := map[string]string{
		"name":   "Jo Bloggs",
		"email":  "Jo Bloggs <jo@example.com>",
		"vendor": quote.Vendors[0].Name,
	}
	var rec store.Record
	if code := env.do(t, http.MethodPost, base+"/checkout", checkout, &rec); code != http.StatusCreated {
		t.Fatalf("checkout status %d", code)
	}
	if rec.Reference == "" || rec.Registration != "AB12CDE" || rec.Customer.Email != "jo@example.com" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Vendor != quote.Vendors[0].Name || rec.VendorPrice != quote.Vendors[0].Price {
		t.Fatalf("vendor not recorded: %+v", rec)
	}

	if len(env.publisher.events) != 1 || env.publisher.events[0].Reference != rec.Reference {
		t.Fatalf("expected one quote event, got %+v", env.publisher.events)
	}
	if env.publisher.events[0].FinalPrice != 464 || env.publisher.events[0].ClassificationCode != "2439ACL" {
		t.Fatalf("unexpected event: %+v", env.publisher.events[0])
	}
}

func TestCheckoutRejectsBadInput(t *testing.T) {
	env := newTestEnv(t, quoteapi.NewLocal(), session.Options{})
	id := env.readySession(t)
	base := "/api/sessions/" + id

	if code := env.do(t, http.MethodPost, base+"/checkout", map[string]string{"name": "Jo", "email": "not-an-email"}, nil); code != http.StatusBadRequest {
		t.Fatalf("bad email: status %d, want 400", code)
	}
	if code := env.do(t, http.MethodPost, base+"/checkout", map[string]string{"name": "Jo", "email": "jo@example.com"}, nil); code != http.StatusConflict {
		t.Fatalf("checkout without grade: status %d, want 409", code)
	}

	env.do(t, http.MethodPut, base+"/grade", map[string]string{"grade": "OEM"}, nil)
	body := map[string]string{"name": "Jo", "email": "jo@example.com", "vendor": "Nobody Glass"}
	if code := env.do(t, http.MethodPost, base+"/checkout", body, nil); code != http.StatusBadRequest {
		t.Fatalf("unknown vendor: status %d, want 400", code)
	}
	if len(env.publisher.events) != 0 {
		t.Fatalf("rejected checkouts published events")
	}
}

func TestSessionErrorsMapToStatusCodes(t *testing.T) {
	env := newTestEnv(t, quoteapi.NewLocal(), session.Options{})
	id := env.createSession(t)
	base := "/api/sessions/" + id

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown session", http.MethodGet, "/api/sessions/missing", nil, http.StatusNotFound},
		{"unknown vehicle", http.MethodPost, base + "/vehicle", map[string]string{"registration": "ZZ99ZZZ"}, http.StatusNotFound},
		{"empty registration", http.MethodPost, base + "/vehicle", map[string]string{"registration": " "}, http.StatusBadRequest},
		{"unknown window", http.MethodPut, base + "/windows", map[string]any{"windows": []string{"sunroof"}}, http.StatusBadRequest},
		{"unknown damage", http.MethodPut, base + "/windows", map[string]any{"windows": []string{"windscreen"}, "damage": map[string]string{"windscreen": "melted"}}, http.StatusBadRequest},
		{"damage for unselected window", http.MethodPut, base + "/windows", map[string]any{"windows": []string{"windscreen"}, "damage": map[string]string{"rear_window": "cracked"}}, http.StatusConflict},
		{"unknown grade", http.MethodPut, base + "/grade", map[string]string{"grade": "premium"}, http.StatusBadRequest},
		{"unknown delivery", http.MethodPut, base + "/delivery", map[string]string{"delivery": "drone"}, http.StatusBadRequest},
		{"unknown field", http.MethodPut, base + "/grade", map[string]string{"grad": "oem"}, http.StatusBadRequest},
		{"quote before breakdown", http.MethodGet, base + "/quote", nil, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out map[string]any
			if code := env.do(t, tt.method, tt.path, tt.body, &out); code != tt.want {
				t.Fatalf("status %d, want %d (%v)", code, tt.want, out)
			}
			if _, ok := out["error"]; !ok {
				t.Fatalf("expected error body, got %v", out)
			}
		})
	}
}

func TestFetchFailureReturnsBadGatewayUntilRestart(t *testing.T) {
	env := newTestEnv(t, failingQuoter{}, session.Options{})
	id := env.createSession(t)
	base := "/api/sessions/" + id

	env.do(t, http.MethodPost, base+"/vehicle", map[string]string{"registration": "AB12CDE"}, nil)
	windows := map[string]any{"windows": []string{"windscreen"}, "damage": map[string]string{"windscreen": "chipped"}}
	if code := env.do(t, http.MethodPut, base+"/windows", windows, nil); code != http.StatusBadGateway {
		t.Fatalf("status %d, want 502", code)
	}
	if code := env.do(t, http.MethodPut, base+"/grade", map[string]string{"grade": "oee"}, nil); code != http.StatusBadGateway {
		t.Fatalf("changes after failure: status %d, want 502", code)
	}

	var snap session.Snapshot
	if code := env.do(t, http.MethodGet, base, nil, &snap); code != http.StatusOK {
		t.Fatalf("get session status %d", code)
	}
	if snap.LastError == "" {
		t.Fatalf("expected last error in snapshot")
	}

	snap = session.Snapshot{}
	if code := env.do(t, http.MethodPost, base+"/restart", nil, &snap); code != http.StatusOK {
		t.Fatalf("restart status %d", code)
	}
	if snap.State != "uninitialized" || snap.LastError != "" {
		t.Fatalf("unexpected snapshot after restart: %+v", snap)
	}
}

func TestExpiredSessionReturnsGone(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	env := newTestEnv(t, quoteapi.NewLocal(), session.Options{TTL: time.Minute, Now: clock})
	id := env.readySession(t)

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	if code := env.do(t, http.MethodPut, "/api/sessions/"+id+"/grade", map[string]string{"grade": "oee"}, nil); code != http.StatusGone {
		t.Fatalf("status %d, want 410", code)
	}
	var snap session.Snapshot
	env.do(t, http.MethodGet, "/api/sessions/"+id, nil, &snap)
	if snap.State != "stale" {
		t.Fatalf("expected stale, got %s", snap.State)
	}
}

func TestGlassUpdatesColourLocallyAndModificationsRemotely(t *testing.T) {
	env := newTestEnv(t, quoteapi.NewLocal(), session.Options{})
	id := env.readySession(t)
	base := "/api/sessions/" + id

	var snap session.Snapshot
	glass := map[string]any{"color": "Solar Control", "modifications": []string{"Rain Sensor", " "}}
	if code := env.do(t, http.MethodPut, base+"/glass", glass, &snap); code != http.StatusOK {
		t.Fatalf("set glass status %d", code)
	}
	if snap.ClassificationCode != "2439ASC" {
		t.Fatalf("code %q, want 2439ASC", snap.ClassificationCode)
	}
	if len(snap.Glass.Modifications) != 1 || snap.Glass.Modifications[0] != "rain_sensor" {
		t.Fatalf("unexpected modifications: %v", snap.Glass.Modifications)
	}
	if snap.Breakdown == nil || snap.Breakdown.SpecificationsCost != 25 {
		t.Fatalf("expected rain sensor in breakdown: %+v", snap.Breakdown)
	}
}

func TestCalculateEndpoint(t *testing.T) {
	env := newTestEnv(t, quoteapi.NewLocal(), session.Options{})

	client := quoteapi.NewClient(env.http.URL, 0, nil)
	breakdown, err := client.Quote(context.Background(), quoteapi.Request{
		Registration: "AB12CDE",
		Windows:      []domain.Window{domain.Windscreen, domain.RearWindow},
		Damage: map[domain.Window]domain.DamageKind{
			domain.Windscreen: domain.DamageCracked,
			domain.RearWindow: domain.DamageSmashed,
		},
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if breakdown.BaseMaterialsCost != 230 {
		t.Fatalf("materials %v, want 230", breakdown.BaseMaterialsCost)
	}
}

func TestAdminQuotesRequireLogin(t *testing.T) {
	env := newTestEnv(t, quoteapi.NewLocal(), session.Options{})
	id := env.readySession(t)
	base := "/api/sessions/" + id
	env.do(t, http.MethodPut, base+"/grade", map[string]string{"grade": "oem"}, nil)

	var rec store.Record
	if code := env.do(t, http.MethodPost, base+"/checkout", map[string]string{"name": "Jo", "email": "jo@example.com"}, &rec); code != http.StatusCreated {
		t.Fatalf("checkout status %d", code)
	}

	if code := env.do(t, http.MethodGet, "/admin/quotes", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous list: status %d, want 401", code)
	}

	bad := loginRequest{Email: testAdminEmail, Password: "wrong"}
	if code := env.do(t, http.MethodPost, "/admin/login", bad, nil); code != http.StatusUnauthorized {
		t.Fatalf("bad login: status %d, want 401", code)
	}
	good := loginRequest{Email: testAdminEmail, Password: testAdminPassword}
	if code := env.do(t, http.MethodPost, "/admin/login", good, nil); code != http.StatusOK {
		t.Fatalf("login status %d", code)
	}

	var list struct {
		Query  string          `json:"query"`
		Quotes []store.Summary `json:"quotes"`
	}
	if code := env.do(t, http.MethodGet, "/admin/quotes?q=AB12", nil, &list); code != http.StatusOK {
		t.Fatalf("list status %d", code)
	}
	if len(list.Quotes) != 1 || list.Quotes[0].Reference != rec.Reference || list.Quotes[0].FinalPrice != 444 {
		t.Fatalf("unexpected list: %+v", list)
	}

	var detail store.Record
	if code := env.do(t, http.MethodGet, "/admin/quotes/"+rec.Reference, nil, &detail); code != http.StatusOK {
		t.Fatalf("detail status %d", code)
	}
	if detail.ClassificationCode != "2439ACL" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if code := env.do(t, http.MethodGet, "/admin/quotes/missing", nil, nil); code != http.StatusNotFound {
		t.Fatalf("missing detail: status %d, want 404", code)
	}

	if code := env.do(t, http.MethodPost, "/admin/logout", nil, nil); code != http.StatusNoContent {
		t.Fatalf("logout status %d", code)
	}
	if code := env.do(t, http.MethodGet, "/admin/quotes", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("list after logout: status %d, want 401", code)
	}
}
