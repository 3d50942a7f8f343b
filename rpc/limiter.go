package rpc

import (
	"sync"
	"time"

	"github.com/lumenweave/lumen/errors"
)

// Limiter enforces max calls per minute with a sliding window. It sits in
// front of the token-bucket burst limiter so a burst of parallel chunk
// loads cannot exhaust a public gateway's per-minute quota.
type Limiter struct {
	maxCallsPerMinute int
	window            time.Duration
	mu                sync.Mutex
	callTimes         []time.Time
	timeNow           func() time.Time // injectable for testing
}

// NewLimiter creates a rate limiter with real time.
func NewLimiter(maxCallsPerMinute int) *Limiter {
	return NewLimiterWithClock(maxCallsPerMinute, time.Now)
}

// NewLimiterWithClock creates a rate limiter with an injectable clock.
func NewLimiterWithClock(maxCallsPerMinute int, timeNow func() time.Time) *Limiter {
	return &Limiter{
		maxCallsPerMinute: maxCallsPerMinute,
		window:            time.Minute,
		callTimes:         make([]time.Time, 0, maxCallsPerMinute),
		timeNow:           timeNow,
	}
}

// Allow records a call if capacity remains in the window, or returns an
// error without recording it.
func (l *Limiter) Allow() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.timeNow()
	l.evictExpired(now)

	if len(l.callTimes) >= l.maxCallsPerMinute {
		err := errors.Newf("rate limit exceeded: %d calls in window (limit %d)",
			len(l.callTimes), l.maxCallsPerMinute)
		return errors.WithHint(err, "lower max_concurrent or raise rpc.max_calls_per_minute")
	}

	l.callTimes = append(l.callTimes, now)
	return nil
}

// Stats returns calls made in the current window and remaining capacity.
func (l *Limiter) Stats() (callsInWindow, callsRemaining int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evictExpired(l.timeNow())
	used := len(l.callTimes)
	return used, l.maxCallsPerMinute - used
}

func (l *Limiter) evictExpired(now time.Time) {
	cutoff := now.Add(-l.window)
	keep := l.callTimes[:0]
	for _, t := range l.callTimes {
		if t.After(cutoff) {
			keep = append(keep, t)
		}
	}
	l.callTimes = keep
}
