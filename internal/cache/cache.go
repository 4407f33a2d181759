// Package cache defines the byte-value cache capability the shipments
// service uses for its best-effort tracking-view cache.
package cache

import (
	"context"
	"time"
)

type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
