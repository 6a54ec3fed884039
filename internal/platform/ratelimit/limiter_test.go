package ratelimit

import (
	"fmt"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func TestLimiterBurstCeiling(t *testing.T) {
	clock := newTestClock()
	limiter := NewLimiter(WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		if result := limiter.Check("203.0.113.7"); result.Limited {
			t.Fatalf("submission %d should pass, got %v", i+1, result)
		}
		clock.Advance(300 * time.Millisecond)
	}

	result := limiter.Check("203.0.113.7")
	if !result.Limited {
		t.Fatal("fourth submission within burst window should be limited")
	}
	if result.Reason != ReasonBurst {
		t.Fatalf("expected burst reason, got %s", result.Reason)
	}
}

func TestLimiterHourlyCeiling(t *testing.T) {
	clock := newTestClock()
	limiter := NewLimiter(WithClock(clock.Now))

	// Spaced so no 10-minute window ever holds three submissions, keeping the
	// burst ceiling quiet while the hourly count climbs to its cap.
	for i := 0; i < 8; i++ {
		if i > 0 {
			clock.Advance(4 * time.Minute)
		}
		if result := limiter.Check("198.51.100.2"); result.Limited {
			t.Fatalf("submission %d should pass, got %v", i+1, result)
		}
	}

	clock.Advance(4 * time.Minute)
	result := limiter.Check("198.51.100.2")
	if !result.Limited {
		t.Fatal("ninth submission within the hour should be limited")
	}
	if result.Reason != ReasonHourly {
		t.Fatalf("expected hourly reason, got %s", result.Reason)
	}
}

func TestLimiterRejectedAttemptNotRecorded(t *testing.T) {
	clock := newTestClock()
	limiter := NewLimiter(WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		limiter.Check("192.0.2.10")
	}
	for i := 0; i < 5; i++ {
		if result := limiter.Check("192.0.2.10"); !result.Limited {
			t.Fatal("expected burst rejection")
		}
	}

	// Once the burst window passes, the earlier rejections must not count
	// against the hourly ceiling.
	clock.Advance(defaultBurstWindow + time.Minute)
	if result := limiter.Check("192.0.2.10"); result.Limited {
		t.Fatalf("expected acceptance after burst window, got %v", result)
	}
}

func TestLimiterWindowSlides(t *testing.T) {
	clock := newTestClock()
	limiter := NewLimiter(WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		limiter.Check("192.0.2.33")
	}
	if result := limiter.Check("192.0.2.33"); !result.Limited {
		t.Fatal("expected burst rejection")
	}

	clock.Advance(defaultBurstWindow + time.Second)
	if result := limiter.Check("192.0.2.33"); result.Limited {
		t.Fatalf("expected acceptance after burst window slid, got %v", result)
	}
}

func TestLimiterPrunesIdleIdentifiers(t *testing.T) {
	clock := newTestClock()
	limiter := NewLimiter(WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		limiter.Check(fmt.Sprintf("10.0.0.%d", i))
	}
	if limiter.Len() != 5 {
		t.Fatalf("expected 5 tracked identifiers, got %d", limiter.Len())
	}

	clock.Advance(defaultHourlyWindow + time.Minute)
	limiter.Check("10.0.1.1")
	if limiter.Len() != 1 {
		t.Fatalf("expected idle identifiers pruned, got %d", limiter.Len())
	}
}

func TestLimiterEmptyIdentifierFallsBackToUnknown(t *testing.T) {
	clock := newTestClock()
	limiter := NewLimiter(WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		limiter.Check("")
	}
	if result := limiter.Check("unknown"); !result.Limited {
		t.Fatal("blank identifiers should share the unknown bucket")
	}
}
