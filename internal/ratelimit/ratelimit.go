// Package ratelimit provides a keyed rate limiter for inbound submissions.
// Each client address gets its own token bucket sized to the configured
// submissions-per-window budget.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Result reports a limiter decision. ResetAt is only meaningful when the
// request was denied; it tells the caller when the next attempt can succeed.
type Result struct {
	Allowed bool
	Limit   int
	ResetAt time.Time
}

// KeyedLimiter manages per-key rate limiting
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New creates a limiter allowing `limit` events per `window` for each key
func New(limit int, window time.Duration) *KeyedLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &KeyedLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
	}
}

// Check consumes one token for the key if available and reports the outcome
func (kl *KeyedLimiter) Check(key string) Result {
	limiter := kl.getLimiter(key)

	reservation := limiter.Reserve()
	delay := reservation.Delay()
	if delay > 0 {
		// Over budget; hand the token back and report when it refills
		reservation.Cancel()
		return Result{
			Allowed: false,
			Limit:   kl.burst,
			ResetAt: time.Now().Add(delay),
		}
	}

	return Result{Allowed: true, Limit: kl.burst}
}

func (kl *KeyedLimiter) getLimiter(key string) *rate.Limiter {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	limiter, exists := kl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(kl.limit, kl.burst)
		kl.limiters[key] = limiter
	}
	return limiter
}
