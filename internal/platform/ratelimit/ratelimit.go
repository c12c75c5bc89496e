// Package ratelimit provides per-caller request limiting for the HTTP API.
// Two implementations share one interface: a sliding-window in-memory
// limiter for single-node deployments, and a Redis fixed-window limiter
// that coordinates across replicas.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result reports the outcome of one limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter checks and consumes one request slot for a key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// MemoryLimiter is a sliding-window limiter. The window slides per request
// timestamp, so a burst at a window boundary cannot double the effective
// limit.
type MemoryLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	buckets map[string][]time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string][]time.Time),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)

	kept := l.buckets[key][:0]
	for _, ts := range l.buckets[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.buckets[key] = kept
		resetAt := now.Add(l.window)
		if len(kept) > 0 {
			resetAt = kept[0].Add(l.window)
		}
		return Result{
			Allowed: false,
			Limit:   l.limit,
			ResetAt: resetAt,
		}, nil
	}

	kept = append(kept, now)
	l.buckets[key] = kept
	return Result{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - len(kept),
		ResetAt:   kept[0].Add(l.window),
	}, nil
}

// Reset clears the window for a key.
func (l *MemoryLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}
