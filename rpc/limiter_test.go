package rpc

import (
	"sync"
	"testing"
	"time"
)

// mockClock allows controlling time in tests
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock(now time.Time) *mockClock {
	return &mockClock{now: now}
}

func (m *mockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *mockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func TestLimiter_UnderLimit(t *testing.T) {
	clock := newMockClock(time.Now())
	limiter := NewLimiterWithClock(10, clock.Now)

	for i := 0; i < 5; i++ {
		if err := limiter.Allow(); err != nil {
			t.Errorf("call %d: expected no error, got %v", i+1, err)
		}
		clock.Advance(1 * time.Second)
	}
}

func TestLimiter_AtLimit(t *testing.T) {
	clock := newMockClock(time.Now())
	limiter := NewLimiterWithClock(10, clock.Now)

	for i := 0; i < 10; i++ {
		if err := limiter.Allow(); err != nil {
			t.Errorf("call %d: expected no error, got %v", i+1, err)
		}
		clock.Advance(100 * time.Millisecond)
	}

	if err := limiter.Allow(); err == nil {
		t.Error("call 11: expected rate limit error, got nil")
	}
}

func TestLimiter_WindowSlides(t *testing.T) {
	clock := newMockClock(time.Now())
	limiter := NewLimiterWithClock(2, clock.Now)

	if err := limiter.Allow(); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := limiter.Allow(); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if err := limiter.Allow(); err == nil {
		t.Fatal("third call within window should be rejected")
	}

	// After the window passes, capacity returns.
	clock.Advance(61 * time.Second)
	if err := limiter.Allow(); err != nil {
		t.Fatalf("call after window expiry: %v", err)
	}
}

func TestLimiter_Stats(t *testing.T) {
	clock := newMockClock(time.Now())
	limiter := NewLimiterWithClock(5, clock.Now)

	_ = limiter.Allow()
	_ = limiter.Allow()

	used, remaining := limiter.Stats()
	if used != 2 || remaining != 3 {
		t.Errorf("Stats() = (%d, %d), want (2, 3)", used, remaining)
	}

	clock.Advance(61 * time.Second)
	used, remaining = limiter.Stats()
	if used != 0 || remaining != 5 {
		t.Errorf("Stats() after expiry = (%d, %d), want (0, 5)", used, remaining)
	}
}

func TestLimiter_RejectedCallNotRecorded(t *testing.T) {
	clock := newMockClock(time.Now())
	limiter := NewLimiterWithClock(1, clock.Now)

	_ = limiter.Allow()
	_ = limiter.Allow() // rejected

	used, _ := limiter.Stats()
	if used != 1 {
		t.Errorf("rejected call was recorded: used = %d, want 1", used)
	}
}
