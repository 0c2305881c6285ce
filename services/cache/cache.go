package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultOpTimeout = 250 * time.Millisecond

// Key builds a response key scoped to a namespace and region, e.g.
// call_details:AU:CA123 or call_details:AU:CA123:P1.
// Segments are query-escaped so ids containing ':' cannot collide.
func Key(region, namespace, primaryID, secondaryID string) string {
	parts := []string{namespace, url.QueryEscape(region), url.QueryEscape(primaryID)}
	if secondaryID != "" {
		parts = append(parts, url.QueryEscape(secondaryID))
	}
	return strings.Join(parts, ":")
}

// ResponseCache is a best-effort response cache.
// No method returns an error: failures are logged and treated as a miss.
type ResponseCache struct {
	primary   Store
	fallback  Store
	opTimeout time.Duration
	logger    *zap.Logger
}

// New creates a response cache. fallback may be nil.
func New(primary, fallback Store, opTimeout time.Duration, logger *zap.Logger) *ResponseCache {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	if primary == nil {
		primary = fallback
		fallback = nil
	}
	if primary == nil {
		primary = NewMemoryStore(0)
	}
	return &ResponseCache{
		primary:   primary,
		fallback:  fallback,
		opTimeout: opTimeout,
		logger:    logger,
	}
}

// NewStore wraps the client in a RedisStore after a startup ping.
// A failed ping is only logged: the store stays primary and every
// operation retries redis, so the cache recovers when redis comes back.
func NewStore(ctx context.Context, client *redis.Client, logger *zap.Logger) *RedisStore {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable at startup, serving from memory until it recovers",
			zap.Error(err))
	}
	return NewRedisStore(client)
}

// Get returns the cached value and whether it was found
func (c *ResponseCache) Get(ctx context.Context, key string) (string, bool) {
	value, err := c.get(ctx, c.primary, key)
	if err == nil {
		return value, true
	}
	if !errors.Is(err, ErrMiss) {
		c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	if c.fallback == nil {
		return "", false
	}
	value, err = c.get(ctx, c.fallback, key)
	if err != nil {
		return "", false
	}
	return value, true
}

// Set stores a value with the given ttl
func (c *ResponseCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	err := c.primary.Set(opCtx, key, value, ttl)
	if err == nil {
		return
	}
	c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	if c.fallback != nil {
		if err := c.fallback.Set(ctx, key, value, ttl); err != nil {
			c.logger.Warn("fallback cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// Delete removes a key from every store
func (c *ResponseCache) Delete(ctx context.Context, key string) {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.primary.Del(opCtx, key); err != nil {
		c.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
	if c.fallback != nil {
		_ = c.fallback.Del(ctx, key)
	}
}

// GetJSON decodes a cached JSON value into dst
func (c *ResponseCache) GetJSON(ctx context.Context, key string, dst interface{}) bool {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		c.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		c.Delete(ctx, key)
		return false
	}
	return true
}

// SetJSON encodes v as JSON and stores it
func (c *ResponseCache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache value not serializable", zap.String("key", key), zap.Error(err))
		return
	}
	c.Set(ctx, key, string(raw), ttl)
}

// Ping reports whether the primary store is reachable
func (c *ResponseCache) Ping(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	return c.primary.Ping(opCtx)
}

// MemoryStats returns the statistics of the in-process store, if one is configured
func (c *ResponseCache) MemoryStats() (Stats, bool) {
	for _, store := range []Store{c.primary, c.fallback} {
		if mem, ok := store.(*MemoryStore); ok {
			return mem.Stats(), true
		}
	}
	return Stats{}, false
}

// Close releases the underlying stores
func (c *ResponseCache) Close() error {
	err := c.primary.Close()
	if c.fallback != nil {
		if ferr := c.fallback.Close(); err == nil {
			err = ferr
		}
	}
	return err
}

func (c *ResponseCache) get(ctx context.Context, store Store, key string) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	return store.Get(opCtx, key)
}
