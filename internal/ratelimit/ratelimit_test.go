package ratelimit

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLimiter_SixthRequestRejected(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := New(60*time.Second, 5, WithClock(clock.Now))

	for i := 1; i <= 5; i++ {
		if !l.Allow("203.0.113.7") {
			t.Fatalf("Request %d should be allowed", i)
		}
		clock.Advance(5 * time.Second)
	}

	if l.Allow("203.0.113.7") {
		t.Fatal("6th request within 60s should be rejected")
	}
	if !l.Allow("198.51.100.1") {
		t.Error("Other clients should not be affected")
	}

	// 61s after the first request
	clock.Advance(36 * time.Second)
	if !l.Allow("203.0.113.7") {
		t.Error("Request 61s after the first should be accepted")
	}
}

func TestLimiter_RetryAfter(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := New(time.Minute, 2, WithClock(clock.Now))

	l.Allow("ip")
	clock.Advance(10 * time.Second)
	l.Allow("ip")

	if got := l.RetryAfter("ip"); got != 50*time.Second {
		t.Errorf("RetryAfter = %v, want 50s", got)
	}
	if got := l.RetryAfter("other"); got != 0 {
		t.Errorf("RetryAfter for unknown key = %v, want 0", got)
	}
}

func TestLimiter_Evict(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := New(time.Minute, 5, WithClock(clock.Now))

	l.Allow("a")
	clock.Advance(45 * time.Second)
	l.Allow("b")
	clock.Advance(30 * time.Second)

	if n := l.Evict(); n != 1 {
		t.Errorf("Expected 1 evicted key, got %d", n)
	}
	if l.Len() != 1 {
		t.Errorf("Expected 1 remaining key, got %d", l.Len())
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	l := New(time.Minute, 5)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("same-ip") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 5 {
		t.Errorf("Expected exactly 5 allowed requests, got %d", allowed)
	}
}
