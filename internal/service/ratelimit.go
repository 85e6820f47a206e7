package service

import (
	"sync"
	"time"

	"github.com/auditflow/backend/internal/config"
)

// RateLimiter enforces a fixed quota per identity per wall-clock
// aligned window. Counters are the only shared mutable state in the
// request path; everything else is per-request.
type RateLimiter struct {
	quota  int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	windowStart time.Time
	count       int
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		quota:   cfg.Requests,
		window:  cfg.Window,
		buckets: make(map[string]*bucket),
	}
}

// Allow records a request for identity at time now and reports whether
// it fits the current window's quota. The window boundary is
// now.Truncate(window), so behavior at a given (Q, W) is deterministic.
func (l *RateLimiter) Allow(identity string, now time.Time) bool {
	windowStart := now.Truncate(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[identity]
	if !ok || b.windowStart.Before(windowStart) {
		b = &bucket{windowStart: windowStart}
		l.buckets[identity] = b
	}

	if b.count >= l.quota {
		return false
	}
	b.count++

	// Opportunistic pruning keeps the map from growing with dead
	// identities between windows.
	if len(l.buckets) > 1024 {
		for id, old := range l.buckets {
			if old.windowStart.Before(windowStart) {
				delete(l.buckets, id)
			}
		}
	}
	return true
}
