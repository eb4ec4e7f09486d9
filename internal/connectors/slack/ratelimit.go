package slack

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// ProactiveRate is the proactive throttle rate in requests per second.
	// Most Web API methods the connector uses are Tier 3 (~50/min); staying
	// under that avoids tripping 429s on healthy runs.
	ProactiveRate = 0.8

	// ProactiveBurst allows short bursts before throttling kicks in.
	ProactiveBurst = 4
)

// RateLimiter implements dual-strategy rate limiting for the Slack Web API:
// a proactive token bucket plus a reactive pause window fed from Retry-After
// values on 429 responses.
type RateLimiter struct {
	mu         sync.Mutex
	pauseUntil time.Time     // From Retry-After
	bucket     *rate.Limiter // Proactive throttling
}

// NewRateLimiter creates a new rate limiter with proactive throttling.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		bucket: rate.NewLimiter(rate.Limit(ProactiveRate), ProactiveBurst),
	}
}

// Wait blocks until it's safe to make a request.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	pauseUntil := r.pauseUntil
	r.mu.Unlock()

	if time.Now().Before(pauseUntil) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(pauseUntil)):
		}
	}

	return nil
}

// Backoff records a server-requested pause. Subsequent Wait calls block
// until it elapses.
func (r *RateLimiter) Backoff(retryAfter time.Duration) {
	if retryAfter <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	until := time.Now().Add(retryAfter)
	if until.After(r.pauseUntil) {
		r.pauseUntil = until
	}
}

// PauseUntil returns the end of the current reactive pause window.
func (r *RateLimiter) PauseUntil() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pauseUntil
}
