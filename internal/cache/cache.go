// Package cache implements the cache-aside accessor used by handlers: a thin,
// fail-open layer over a key-value Store with deterministic key builders.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/zfogg/biolink/internal/logger"
	"github.com/zfogg/biolink/internal/metrics"
	"github.com/zfogg/biolink/internal/telemetry"
	"go.uber.org/zap"
)

// ErrMiss is returned by a Store when the key does not exist
var ErrMiss = errors.New("cache: miss")

// Default TTL classes
const (
	// DefaultShortTTL covers volatile per-user aggregates: analytics, link/icon lists, the user record.
	DefaultShortTTL = 5 * time.Minute
	// DefaultLongTTL covers the public profile, which is read far more often than written.
	DefaultLongTTL = time.Hour
)

// Store is the key-value backend behind the cache
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	SetEx(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Cache is the cache-aside accessor. Store failures never fail the caller:
// reads degrade to a miss and writes/deletes are logged.
// A nil *Cache or nil store disables caching.
type Cache struct {
	store    Store
	shortTTL time.Duration
	longTTL  time.Duration
}

// New creates a cache over store with the given TTL classes (zero means default)
func New(store Store, shortTTL, longTTL time.Duration) *Cache {
	if shortTTL <= 0 {
		shortTTL = DefaultShortTTL
	}
	if longTTL <= 0 {
		longTTL = DefaultLongTTL
	}
	return &Cache{store: store, shortTTL: shortTTL, longTTL: longTTL}
}

// ShortTTL returns the TTL for volatile per-user entries
func (c *Cache) ShortTTL() time.Duration {
	if c == nil {
		return DefaultShortTTL
	}
	return c.shortTTL
}

// LongTTL returns the TTL for public profile entries
func (c *Cache) LongTTL() time.Duration {
	if c == nil {
		return DefaultLongTTL
	}
	return c.longTTL
}

func (c *Cache) enabled() bool {
	return c != nil && c.store != nil
}

// Get returns the cached value and whether it was found
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	if !c.enabled() {
		return "", false
	}

	name := keyName(key)
	val, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			metrics.Get().CacheErrorsTotal.WithLabelValues("get").Inc()
			logger.Log.Warn("Cache read failed, falling back to store",
				zap.String("key", key),
				zap.Error(err),
			)
		}
		metrics.Get().CacheMissesTotal.WithLabelValues(name).Inc()
		return "", false
	}

	metrics.Get().CacheHitsTotal.WithLabelValues(name).Inc()
	return val, true
}

// Set stores value under key for ttl
func (c *Cache) Set(ctx context.Context, key string, value string, ttl time.Duration) {
	if !c.enabled() {
		return
	}
	if err := c.store.SetEx(ctx, key, value, ttl); err != nil {
		metrics.Get().CacheErrorsTotal.WithLabelValues("set").Inc()
		logger.Log.Warn("Cache write failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// Delete removes all keys in one store call. Failure is logged, never returned:
// the mutation that triggered it has already committed and the entry expires with its TTL.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if !c.enabled() || len(keys) == 0 {
		return
	}
	ctx, span := telemetry.TraceCacheCall(ctx, "delete", keys...)
	defer span.End()

	if err := c.store.Del(ctx, keys...); err != nil {
		telemetry.RecordServiceError(span, "redis", err)
		metrics.Get().CacheErrorsTotal.WithLabelValues("delete").Inc()
		logger.Log.Error("Cache invalidation failed",
			zap.Strings("keys", keys),
			zap.Error(err),
		)
		return
	}
	for _, key := range keys {
		metrics.Get().CacheInvalidations.WithLabelValues(keyName(key)).Inc()
	}
}

// GetJSON decodes a cached JSON value into T. Undecodable entries count as a miss.
func GetJSON[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var out T
	raw, ok := c.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		logger.Log.Warn("Discarding undecodable cache entry",
			zap.String("key", key),
			zap.Error(err),
		)
		var zero T
		return zero, false
	}
	return out, true
}

// SetJSON encodes value as JSON and caches it
func SetJSON(ctx context.Context, c *Cache, key string, value interface{}, ttl time.Duration) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		logger.Log.Warn("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	c.Set(ctx, key, string(data), ttl)
}

// keyName is the metrics label for a key: its prefix
func keyName(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
