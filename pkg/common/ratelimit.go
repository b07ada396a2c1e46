// Package common holds small shared utilities with no domain knowledge.
package common

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter paces calls to a downstream service. Upstream model endpoints
// enforce their own quotas; waiting locally is cheaper than burning a request
// to learn we are over the limit.
type RateLimiter struct {
	mu      sync.RWMutex // Protects concurrent access to the limiter.
	limiter *rate.Limiter
}

// NewRateLimiter creates a RateLimiter allowing rps requests per second with
// the given burst size.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Wait blocks until the limiter allows an event or the context is canceled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.limiter.Wait(ctx)
}

// UpdateLimits adjusts the requests per second and burst size at runtime,
// e.g. after the downstream service advertises a new quota.
func (rl *RateLimiter) UpdateLimits(rps float64, burst int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.limiter.SetLimit(rate.Limit(rps))
	rl.limiter.SetBurst(burst)
}
