// Package throttle caps how often a call site may fire, measured in wall-clock
// time passed in by the caller.
package throttle

import "time"

// Limiter allows at most one event per interval. The zero value never limits.
// A Limiter is not safe for concurrent use; each call site owns one.
type Limiter struct {
	interval time.Duration
	last     time.Time
}

// New returns a limiter firing at most once per interval.
func New(interval time.Duration) *Limiter {
	return &Limiter{interval: interval}
}

// PerSecond returns a limiter firing at most n times per second.
// n <= 0 disables limiting.
func PerSecond(n float64) *Limiter {
	if n <= 0 {
		return &Limiter{}
	}
	return New(time.Duration(float64(time.Second) / n))
}

// Allow reports whether an event may fire at now and records it if so.
func (l *Limiter) Allow(now time.Time) bool {
	if l.last.IsZero() || now.Sub(l.last) > l.interval {
		l.last = now
		return true
	}
	return false
}

// Reset forgets the last event so the next Allow fires immediately.
func (l *Limiter) Reset() {
	l.last = time.Time{}
}

// Interval is the minimum spacing between events.
func (l *Limiter) Interval() time.Duration { return l.interval }
