package domain

import (
	"context"
	"time"
)

type Key string

// Config is the quota of one action class.
type Config struct {
	MaxRequests int
	Window      time.Duration
	// StoreName isolates counters: exhausting one store never touches another.
	StoreName string
}

// Result of a fixed window check.
type Result struct {
	Allowed   bool
	Remaining int
	// ResetAt is when the current window closes. For a denied call it is the
	// unchanged reset of the window that is full.
	ResetAt time.Time
}

// RetryAfter is the wait until ResetAt, never negative.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if d := r.ResetAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// WindowStore counts hits per (StoreName, caller) in fixed windows.
type WindowStore interface {
	Hit(ctx context.Context, key Key, cfg Config) (Result, error)
}

// Limiter is the edge throttle bucket of one key. Take consumes one token at
// now; when none is available it reports false and how long until one is.
type Limiter interface {
	Take(now time.Time) (ok bool, wait time.Duration)
}

// LimiterStore returns the limiter of a key (IP, API key...).
type LimiterStore interface {
	Get(Key) Limiter
}

type Decision struct {
	Allowed bool
	// RetryAfter is the value for the Retry-After header when blocked. Zero
	// means no recommendation.
	RetryAfter time.Duration
}
