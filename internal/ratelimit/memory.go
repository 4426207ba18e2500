package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	window int64
	count  int
}

// MemoryLimiter implements a fixed-window in-memory rate limiter.
type MemoryLimiter struct {
	window   time.Duration
	mu       sync.Mutex
	counters map[string]*memoryEntry
}

// NewMemoryLimiter constructs a MemoryLimiter. A non-positive window selects DefaultWindow.
func NewMemoryLimiter(window time.Duration) *MemoryLimiter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemoryLimiter{
		window:   window,
		counters: make(map[string]*memoryEntry),
	}
}

// Allow checks whether the request should be allowed in the current window.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, now time.Time) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	start := windowStart(now, l.window)
	current := start.UnixNano()
	reset := start.Add(l.window).UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(current)
	entry := l.counters[key]
	if entry == nil {
		entry = &memoryEntry{window: current}
		l.counters[key] = entry
	}
	if entry.window != current {
		entry.window = current
		entry.count = 0
	}
	if entry.count >= limit {
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	entry.count++
	return Result{Allowed: true, Remaining: limit - entry.count, Reset: reset}, nil
}

// pruneLocked drops counters from earlier windows.
func (l *MemoryLimiter) pruneLocked(current int64) {
	if len(l.counters) < 1024 {
		return
	}
	for key, entry := range l.counters {
		if entry.window != current {
			delete(l.counters, key)
		}
	}
}
