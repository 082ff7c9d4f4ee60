package api

import (
	"sync"
	"time"
)

// rateLimiter counts hits per key over a sliding window. Keys are
// client IPs or miner addresses.
type rateLimiter struct {
	max     int
	window  time.Duration
	mu      sync.Mutex
	entries map[string][]time.Time
}

func newRateLimiter(max int, window time.Duration) *rateLimiter {
	return &rateLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

// Allow records one hit for key and reports whether it still fits the
// window budget.
func (l *rateLimiter) Allow(key string) bool {
	now := time.Now()
	cutoff := now.Add(-l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	arr := l.entries[key]
	// drop hits that left the window
	kept := arr[:0]
	for _, t := range arr {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}
