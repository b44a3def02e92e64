package youtube

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces page requests to the YouTube Data API.
type RateLimiter struct {
	// main limiter: default 10/sec
	limiter *rate.Limiter

	// additional pause after a quota or rate limit error
	backoffUntil time.Time
	mu           sync.Mutex
}

// NewRateLimiter creates a rate limiter.
// rps - requests per second, burst - allowed burst
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// DefaultRateLimiter spaces consecutive page requests by 100ms.
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(10.0, 1)
}

// Wait blocks until the next request is allowed.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	waitUntil := r.backoffUntil
	r.mu.Unlock()

	// if a backoff is active - wait for it
	if time.Now().Before(waitUntil) {
		select {
		case <-time.After(time.Until(waitUntil)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return r.limiter.Wait(ctx)
}

// SetBackoff pauses all requests for d.
func (r *RateLimiter) SetBackoff(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backoffUntil = time.Now().Add(d)
}
