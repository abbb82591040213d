// Package ratelimit implements a per-process sliding-window request limiter.
// Counts are not shared between instances.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Defaults for the public lead endpoint.
const (
	DefaultWindow = 60 * time.Second
	DefaultMax    = 5
)

// Limiter tracks request timestamps per key (client IP).
type Limiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	now    func() time.Time
	hits   map[string][]time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter allowing max requests per key within window.
func New(window time.Duration, max int, opts ...Option) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMax
	}
	l := &Limiter{
		window: window,
		max:    max,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records a request for key and reports whether it is within the limit.
// Rejected requests are not recorded.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := prune(l.hits[key], now.Add(-l.window))
	if len(recent) >= l.max {
		l.hits[key] = recent
		return false
	}
	l.hits[key] = append(recent, now)
	return true
}

// RetryAfter reports how long until key may make another request.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := prune(l.hits[key], now.Add(-l.window))
	if len(recent) < l.max {
		return 0
	}
	return recent[0].Add(l.window).Sub(now)
}

// Evict drops keys with no requests inside the window.
func (l *Limiter) Evict() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	evicted := 0
	for key, times := range l.hits {
		recent := prune(times, cutoff)
		if len(recent) == 0 {
			delete(l.hits, key)
			evicted++
			continue
		}
		l.hits[key] = recent
	}
	return evicted
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

// RunEviction calls Evict every interval until ctx is done.
func (l *Limiter) RunEviction(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Evict()
		}
	}
}

// prune drops timestamps at or before cutoff. times is ordered oldest first.
func prune(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}
