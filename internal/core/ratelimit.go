package core

import "time"

const (
	// RateWindow is how long a rapid send stays on record.
	RateWindow = 7 * time.Second
	// RapidInterval is the spacing under which a send counts as rapid.
	RapidInterval = 2 * time.Second
	// MaxBurst is the number of recorded rapid sends tolerated in the window.
	MaxBurst = 5
)

// RateLimiter admits outbound messages of one session. Only sends that
// follow the previous accepted send within RapidInterval are recorded, so
// well-spaced traffic is never limited. Not safe for concurrent use.
type RateLimiter struct {
	last   time.Time
	window []time.Time
}

// NewRateLimiter creates a limiter whose previous send is at start.
func NewRateLimiter(start time.Time) *RateLimiter {
	return &RateLimiter{last: start}
}

// Allow reports whether a send at now is admitted and records it if so.
func (l *RateLimiter) Allow(now time.Time) bool {
	for len(l.window) > 0 && now.Sub(l.window[0]) > RateWindow {
		l.window = l.window[1:]
	}
	if len(l.window) > MaxBurst {
		return false
	}

	diff := now.Sub(l.last)
	l.last = now
	if diff < RapidInterval {
		l.window = append(l.window, now)
	}
	return true
}

// Recorded returns the number of rapid sends currently on record.
func (l *RateLimiter) Recorded() int {
	return len(l.window)
}
