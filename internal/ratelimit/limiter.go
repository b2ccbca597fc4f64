package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter gates outbound requests. Wait suspends until the next request
// slot is free or the context is cancelled.
type Limiter interface {
	Wait(ctx context.Context) error
}

// RequestLimiter enforces a minimum inter-request interval derived from
// a requests-per-minute ceiling.
//
// Design decision: We wrap golang.org/x/time/rate rather than a ticker
// because:
//  1. rate.Limiter handles context cancellation during the wait
//  2. A burst of 1 gives exactly the strict spacing the crawl needs
//  3. The token bucket is safe for concurrent Wait calls from workers
type RequestLimiter struct {
	limiter *rate.Limiter
}

// NewRequestLimiter creates a limiter for the given requests-per-minute
// ceiling. A non-positive ceiling disables limiting.
func NewRequestLimiter(requestsPerMinute int) *RequestLimiter {
	if requestsPerMinute <= 0 {
		return &RequestLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &RequestLimiter{
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1),
	}
}

// Wait blocks until the next request slot is available.
func (l *RequestLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// NopLimiter never blocks. Used in tests and when rate limiting is
// disabled by configuration.
type NopLimiter struct{}

// Wait returns immediately unless the context is already cancelled.
func (NopLimiter) Wait(ctx context.Context) error {
	return ctx.Err()
}
