package gateway

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a request exceeds the rate limit.
var ErrRateLimited = errors.New("gateway: rate limit exceeded")

// Rate limit buckets.
const (
	bucketAPI  = "api"
	bucketAuth = "auth"
)

// RateLimiter implements sliding window rate limiting. Each bucket
// tracks timestamps of recent events within its window.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	window time.Duration
	limit  int
	events []time.Time
}

// NewRateLimiter creates a limiter with one-minute windows per cfg.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	if cfg.RequestsPerMin > 0 {
		rl.buckets[bucketAPI] = &bucket{window: time.Minute, limit: cfg.RequestsPerMin}
	}
	if cfg.AuthFailuresPerMin > 0 {
		rl.buckets[bucketAuth] = &bucket{window: time.Minute, limit: cfg.AuthFailuresPerMin}
	}
	return rl
}

// Allow records an event in the named bucket, or returns ErrRateLimited
// when the bucket is full. Unknown buckets are unlimited.
func (rl *RateLimiter) Allow(kind string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[kind]
	if !ok {
		return nil
	}

	now := rl.now()
	b.evict(now)
	if len(b.events) >= b.limit {
		return ErrRateLimited
	}
	b.events = append(b.events, now)
	return nil
}

// Exhausted reports whether the named bucket is full without recording
// an event.
func (rl *RateLimiter) Exhausted(kind string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[kind]
	if !ok {
		return false
	}
	b.evict(rl.now())
	return len(b.events) >= b.limit
}

// evict drops events outside the window.
func (b *bucket) evict(now time.Time) {
	cutoff := now.Add(-b.window)
	i := 0
	for i < len(b.events) && !b.events[i].After(cutoff) {
		i++
	}
	if i > 0 {
		b.events = append(b.events[:0], b.events[i:]...)
	}
}
