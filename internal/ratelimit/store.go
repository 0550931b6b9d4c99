// Package ratelimit implements fixed-window request counting for the public
// quote intake endpoint.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable wraps failures talking to a shared counter store.
var ErrStoreUnavailable = errors.New("ratelimit: store unavailable")

// Store increments the counter for key inside the current fixed window.
// Implementations must make each increment atomic per key.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int64, windowStart time.Time, err error)
}
