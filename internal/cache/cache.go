// Package cache defines the cache contract shared by all backends and the
// in-memory implementation used by the test and development profiles.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented cache with per-entry TTL. Implementations are
// responsible for their own concurrency safety.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
