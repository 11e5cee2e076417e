package vehicle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Simplici0/glassquote/internal/domain"
)

func TestStaticLookupNormalizesRegistration(t *testing.T) {
	v, err := DemoVehicles.Lookup(context.Background(), " ab12 cde ")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if v.Manufacturer != "BMW" || v.Model != "X5 E53" {
		t.Fatalf("unexpected vehicle: %+v", v)
	}
	if _, err := DemoVehicles.Lookup(context.Background(), "NOPE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func newVehicleAPI(t *testing.T, hits *int) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		*hits++
		mu.Unlock()
		if r.Header.Get("x-api-key") != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/vehicles/AB12CDE":
			_ = json.NewEncoder(w).Encode(DemoVehicles["AB12CDE"])
		case "/vehicles/NOREG":
			_ = json.NewEncoder(w).Encode(domain.VehicleDetails{Manufacturer: "Ford", Model: "Focus"})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestClientLookup(t *testing.T) {
	var hits int
	srv := newVehicleAPI(t, &hits)
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 0, nil)
	v, err := c.Lookup(context.Background(), "ab12cde")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if v.Model != "X5 E53" {
		t.Fatalf("unexpected vehicle: %+v", v)
	}

	v, err = c.Lookup(context.Background(), "noreg")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if v.Registration != "NOREG" {
		t.Fatalf("expected registration filled in, got %q", v.Registration)
	}

	if _, err := c.Lookup(context.Background(), "ZZ99ZZZ"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClientSurfacesUpstreamErrors(t *testing.T) {
	var hits int
	srv := newVehicleAPI(t, &hits)
	defer srv.Close()

	c := NewClient(srv.URL, "wrong", 0, nil)
	_, err := c.Lookup(context.Background(), "AB12CDE")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestClientEmptyRegistrationSkipsCall(t *testing.T) {
	var hits int
	srv := newVehicleAPI(t, &hits)
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 0, nil)
	if _, err := c.Lookup(context.Background(), "   "); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if hits != 0 {
		t.Fatalf("expected no upstream call, got %d", hits)
	}
}

type memoryStore struct {
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	b, ok := m.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return b, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

type countingLookup struct {
	calls int
	next  Lookup
}

func (c *countingLookup) Lookup(ctx context.Context, reg string) (domain.VehicleDetails, error) {
	c.calls++
	return c.next.Lookup(ctx, reg)
}

func TestCachedServesRepeatLookupsFromStore(t *testing.T) {
	store := newMemoryStore()
	next := &countingLookup{next: DemoVehicles}
	c := NewCached(next, store, time.Hour, nil, nil)

	for i := 0; i < 3; i++ {
		v, err := c.Lookup(context.Background(), "ab12 cde")
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		if v.Manufacturer != "BMW" {
			t.Fatalf("unexpected vehicle: %+v", v)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected 1 upstream lookup, got %d", next.calls)
	}
	if store.ttls["vehicle:AB12CDE"] != time.Hour {
		t.Fatalf("expected entry stored with ttl, got %v", store.ttls)
	}
}

func TestCachedDoesNotCacheNotFound(t *testing.T) {
	store := newMemoryStore()
	next := &countingLookup{next: DemoVehicles}
	c := NewCached(next, store, time.Hour, nil, nil)

	for i := 0; i < 2; i++ {
		if _, err := c.Lookup(context.Background(), "ZZ99ZZZ"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}
	if next.calls != 2 {
		t.Fatalf("expected every miss to reach upstream, got %d", next.calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("not-found result was cached: %v", store.data)
	}
}

func TestCachedToleratesStoreFailures(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("connection refused")
	c := NewCached(DemoVehicles, store, time.Hour, nil, nil)

	v, err := c.Lookup(context.Background(), "XY70ZZZ")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if v.Model != "Golf" {
		t.Fatalf("unexpected vehicle: %+v", v)
	}
}

func TestCachedReplacesCorruptEntries(t *testing.T) {
	store := newMemoryStore()
	store.data["vehicle:AB12CDE"] = []byte("{not json")
	c := NewCached(DemoVehicles, store, time.Hour, nil, nil)

	v, err := c.Lookup(context.Background(), "AB12CDE")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if v.Model != "X5 E53" {
		t.Fatalf("unexpected vehicle: %+v", v)
	}
	var cached domain.VehicleDetails
	if err := json.Unmarshal(store.data["vehicle:AB12CDE"], &cached); err != nil {
		t.Fatalf("corrupt entry not replaced: %v", err)
	}
}
