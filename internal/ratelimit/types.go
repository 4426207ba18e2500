package ratelimit

import (
	"context"
	"time"
)

// DefaultWindow is the fixed window used for mention throttling.
const DefaultWindow = time.Minute

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// RetryAfter returns the time left until the window resets, rounded up to whole seconds.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Reset.IsZero() || !now.Before(r.Reset) {
		return 0
	}
	return r.Reset.Sub(now).Round(time.Second)
}

// Limiter provides rate limit checks.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error)
}

// windowStart returns the start of the fixed window containing now.
func windowStart(now time.Time, window time.Duration) time.Time {
	if window <= 0 {
		window = DefaultWindow
	}
	return now.Truncate(window)
}
