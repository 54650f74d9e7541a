package server

import (
	"sync"
	"time"
)

// rateLimiter is a small in-process sliding window limiter for endpoints
// that must be throttled even when redis is not configured.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[string][]time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		entries: make(map[string][]time.Time),
	}
}

func (r *rateLimiter) Allow(key string) bool {
	if r == nil {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	kept := r.entries[key][:0]
	for _, ts := range r.entries[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= r.limit {
		r.entries[key] = kept
		return false
	}

	r.entries[key] = append(kept, now)
	return true
}
