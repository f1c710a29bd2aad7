// Package cache stores raw anime catalog responses keyed by request URL.
package cache

import (
	"context"
	"time"
)

// Cache is the interface for a response cache.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, duration time.Duration)
}
