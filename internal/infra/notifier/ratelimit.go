package notifier

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter gates outgoing webhook requests.
type Limiter interface {
	// Allow blocks until a request may be made or ctx is done.
	Allow(ctx context.Context) error
}

// RateLimiter implements token bucket algorithm for rate limiting.
// It keeps webhook endpoints from being hit faster than their documented limits.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a RateLimiter that allows up to burst requests at once
// and refills at requestsPerSecond.
//
// Example:
//
//	limiter := NewRateLimiter(0.5, 3)  // Discord: 30 req/min, burst of 3
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Unlimited returns a RateLimiter that never blocks.
func Unlimited() *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
}

// Allow blocks until a token is available or the context is canceled.
func (r *RateLimiter) Allow(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
