package cache

import (
	"context"
	"time"
)

// Cache is the small surface the engine needs: first-writer-wins keys for
// duplicate-report suppression and plain counters for the advisory
// pending-leads display value.
type Cache interface {
	// SetNX stores the key only if absent; reports whether this caller won.
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)

	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error

	Close() error
}
