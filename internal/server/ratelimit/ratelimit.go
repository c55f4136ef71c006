// Package ratelimit provides a token bucket limiter for the trigger
// endpoint. Report phases are heavyweight, so the bucket is small: a
// burst of manual retries is fine, a runaway caller is not.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter rate-limits clients with one token bucket each.
type Limiter struct {
	capacity   int
	refillRate float64 // tokens per second

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// New creates a Limiter allowing `limit` requests per `window` with a
// burst of `limit`.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		capacity:   limit,
		refillRate: float64(limit) / window.Seconds(),
		buckets:    make(map[string]*bucket),
	}
}

// Allow consumes one token for the client if available.
func (l *Limiter) Allow(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[clientID]
	if !ok {
		b = &bucket{tokens: float64(l.capacity), lastRefill: now}
		l.buckets[clientID] = b
	}

	b.tokens += now.Sub(b.lastRefill).Seconds() * l.refillRate
	if b.tokens > float64(l.capacity) {
		b.tokens = float64(l.capacity)
	}
	b.lastRefill = now

	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return true
	}
	return false
}
