// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package ratelimit bounds record creation per actor with a sliding window.
// It is a soft client-side guard, not a security boundary.
package ratelimit

import (
	"sync"
	"time"

	"github.com/samber/lo"
)

const (
	// DefaultLimit is the number of requests allowed per window.
	DefaultLimit = 10
	// DefaultWindow is the length of the sliding window.
	DefaultWindow = 60 * time.Second
)

// Limiter tracks request timestamps per actor within a trailing window.
// State is in-memory only and resets on process restart.
type Limiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithLimit overrides the per-window request limit.
func WithLimit(limit int) Option {
	return func(l *Limiter) { l.limit = limit }
}

// WithWindow overrides the window length.
func WithWindow(window time.Duration) Option {
	return func(l *Limiter) { l.window = window }
}

// WithClock injects a clock for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter with the default limit and window.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		windows: make(map[string][]time.Time),
		limit:   DefaultLimit,
		window:  DefaultWindow,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CanProceed prunes timestamps older than the window and, if fewer than the
// limit remain, records the current attempt and returns true. When the limit
// is reached it returns false without recording the attempt.
func (l *Limiter) CanProceed(actorID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	retained := l.prune(actorID, now)
	if len(retained) >= l.limit {
		return false
	}
	l.windows[actorID] = append(retained, now)
	return true
}

// Remaining returns how many requests the actor may still make in the
// current window. It does not mutate state.
func (l *Limiter) Remaining(actorID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	count := lo.CountBy(l.windows[actorID], func(ts time.Time) bool {
		return ts.After(cutoff)
	})
	if count >= l.limit {
		return 0
	}
	return l.limit - count
}

// prune drops expired timestamps for the actor and stores the survivors.
// Callers must hold l.mu.
func (l *Limiter) prune(actorID string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	retained := lo.Filter(l.windows[actorID], func(ts time.Time, _ int) bool {
		return ts.After(cutoff)
	})
	if len(retained) == 0 {
		delete(l.windows, actorID)
	} else {
		l.windows[actorID] = retained
	}
	return retained
}
