package ratelimit

import "time"

// Test hooks for clock and window injection.

func (l *Limiter) SetNowFunc(now func() time.Time) {
	l.now = now
}

func (l *Limiter) SetWindow(d time.Duration) {
	l.window = d
}

func (l *Limiter) Recorded() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.stamps)
}
