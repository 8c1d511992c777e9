package throttle

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable wraps backend failures.
var ErrStoreUnavailable = errors.New("throttle store unavailable")

// Counter is the state of one actor key.
type Counter struct {
	Count       int
	WindowStart time.Time
}

// Store persists counters. Implementations must make Increment and Current
// atomic per key.
type Store interface {
	// Current returns the live counter for key. A counter whose window has
	// elapsed at now is dropped and reported absent.
	Current(ctx context.Context, key string, now time.Time, window time.Duration) (Counter, bool, error)
	// Increment records one failure, opening a new window at now when the
	// key is absent or its window has elapsed.
	Increment(ctx context.Context, key string, now time.Time, window time.Duration) (Counter, error)
	Reset(ctx context.Context, keys ...string) error
	Len(ctx context.Context) (int, error)
}

func elapsed(c Counter, now time.Time, window time.Duration) bool {
	return now.Sub(c.WindowStart) > window
}
