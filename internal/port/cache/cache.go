// Package cache defines the port for the in-process byte cache.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values with a TTL. A cache is an optimization:
// callers must behave correctly when every Get misses.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
