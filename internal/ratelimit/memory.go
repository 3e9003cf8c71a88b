package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a single-process fixed-window limiter, used when Redis is not
// configured. Counters are not shared between instances.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
	hits    int
}

// NewMemoryLimiter creates an in-process limiter
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Enforce implements Limiter
func (l *MemoryLimiter) Enforce(_ context.Context, key string, limit int, d time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(d)}
		l.windows[key] = w
	}
	w.count++

	// Expired windows are swept every 1024 hits to bound memory
	l.hits++
	if l.hits%1024 == 0 {
		for k, other := range l.windows {
			if !now.Before(other.resetAt) {
				delete(l.windows, k)
			}
		}
	}

	if w.count > limit {
		return &LimitError{Key: key, RetryAfter: w.resetAt.Sub(now)}
	}
	return nil
}

var _ Limiter = (*MemoryLimiter)(nil)
