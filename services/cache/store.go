package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by stores when a key is absent or expired
var ErrMiss = errors.New("cache: miss")

// Store is a string key/value store with per-key TTL
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
