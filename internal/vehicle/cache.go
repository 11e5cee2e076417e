package vehicle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Simplici0/glassquote/internal/domain"
	"github.com/Simplici0/glassquote/internal/metrics"
)

// ErrCacheMiss is returned by a Store that has no entry for a key.
var ErrCacheMiss = errors.New("cache miss")

// Store is the byte cache behind Cached.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisStore adapts a redis client to Store.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return b, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Cached serves lookups from a Store and falls through to the next Lookup on
// a miss. Cache errors are logged and never fail the lookup. Not-found
// results are not cached.
type Cached struct {
	next    Lookup
	store   Store
	ttl     time.Duration
	metrics *metrics.Registry
	logger  *zap.Logger
}

func NewCached(next Lookup, store Store, ttl time.Duration, m *metrics.Registry, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{next: next, store: store, ttl: ttl, metrics: m, logger: logger}
}

func cacheKey(reg string) string {
	return "vehicle:" + reg
}

func (c *Cached) Lookup(ctx context.Context, registration string) (domain.VehicleDetails, error) {
	reg := domain.NormalizeRegistration(registration)
	key := cacheKey(reg)

	b, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var v domain.VehicleDetails
		if err := json.Unmarshal(b, &v); err == nil {
			c.metrics.VehicleLookup("cache")
			return v, nil
		}
		c.logger.Warn("discarding corrupt vehicle cache entry", zap.String("key", key))
	case !errors.Is(err, ErrCacheMiss):
		c.logger.Warn("vehicle cache read failed", zap.String("key", key), zap.Error(err))
	}

	v, err := c.next.Lookup(ctx, reg)
	if err != nil {
		return domain.VehicleDetails{}, err
	}
	c.metrics.VehicleLookup("api")

	b, err = json.Marshal(v)
	if err == nil {
		err = c.store.Set(ctx, key, b, c.ttl)
	}
	if err != nil {
		c.logger.Warn("vehicle cache write failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}
