// Package ratelimit provides a thread-safe sliding
// window rate limiter shared by concurrent discovery
// calls.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxPerWindow is the default number of
// requests allowed per trailing window.
const DefaultMaxPerWindow = 2000

const sleepSlice = time.Second

// Limiter throttles callers to at most max requests
// within the trailing window. Timestamps are taken
// from a monotonic clock, so wall clock adjustments do
// not distort the window.
type Limiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	stamps []time.Time
	now    func() time.Time
}

// New creates a limiter allowing max requests per
// hour. A non-positive max falls back to
// DefaultMaxPerWindow.
func New(max int) *Limiter {
	if max <= 0 {
		max = DefaultMaxPerWindow
	}

	return &Limiter{
		max:    max,
		window: time.Hour,
		now:    time.Now,
	}
}

// Acquire blocks until fewer than max requests have
// been recorded within the trailing window, then
// records the call. Waiting happens in short slices
// with the lock released, so concurrent callers make
// progress as soon as the oldest request expires.
// Returns the context error if ctx is canceled while
// waiting.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune()

	for len(l.stamps) >= l.max {
		wait := l.window - l.now().Sub(l.stamps[0])

		if wait > 0 {
			if wait > sleepSlice {
				wait = sleepSlice
			}

			l.mu.Unlock()
			err := sleepContext(ctx, wait)
			l.mu.Lock()

			if err != nil {
				return err
			}
		}

		l.prune()
	}

	l.stamps = append(l.stamps, l.now())

	return nil
}

// prune drops timestamps older than the window. Must
// be called with the lock held.
func (l *Limiter) prune() {
	cutoff := l.now().Add(-l.window)

	keep := 0
	for keep < len(l.stamps) &&
		!l.stamps[keep].After(cutoff) {
		keep++
	}

	l.stamps = l.stamps[keep:]
}

func sleepContext(
	ctx context.Context,
	d time.Duration,
) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
