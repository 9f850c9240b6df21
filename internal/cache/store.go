package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by a Store when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is the persistent L2 tier. Implementations must treat Get as
// synchronous from the caller's perspective; durability of Set is best
// effort. A nil Store degrades the cache to L1-only operation.
type Store interface {
	// Get returns the stored value and its absolute expiry.
	Get(ctx context.Context, key string) ([]byte, time.Time, error)
	Set(ctx context.Context, key string, value []byte, expiresAt time.Time) error
	Close() error
}
