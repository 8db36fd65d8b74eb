package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_underLimitDoesNotBlock(t *testing.T) {
	t.Parallel()

	l := New(100)
	ctx := context.Background()

	start := time.Now()

	for range 50 {
		require.NoError(t, l.Acquire(ctx))
	}

	assert.Less(
		t, time.Since(start), 500*time.Millisecond,
	)
	assert.Equal(t, 50, l.Recorded())
}

func TestAcquire_prunesExpiredStamps(t *testing.T) {
	t.Parallel()

	l := New(10)

	now := time.Now()
	l.SetNowFunc(func() time.Time { return now })

	ctx := context.Background()

	for range 10 {
		require.NoError(t, l.Acquire(ctx))
	}

	require.Equal(t, 10, l.Recorded())

	// Jump past the window: all stamps expire and the
	// next acquire proceeds without waiting.
	now = now.Add(time.Hour + time.Second)

	require.NoError(t, l.Acquire(ctx))
	assert.Equal(t, 1, l.Recorded())
}

func TestAcquire_blocksUntilOldestExpires(t *testing.T) {
	t.Parallel()

	l := New(2)
	l.SetWindow(150 * time.Millisecond)

	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))

	start := time.Now()
	require.NoError(t, l.Acquire(ctx))

	assert.GreaterOrEqual(
		t,
		time.Since(start),
		50*time.Millisecond,
	)
}

func TestAcquire_contextCancellation(t *testing.T) {
	t.Parallel()

	l := New(1)
	l.SetWindow(time.Hour)

	require.NoError(
		t, l.Acquire(context.Background()),
	)

	ctx, cancel := context.WithTimeout(
		context.Background(), 100*time.Millisecond,
	)
	defer cancel()

	err := l.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAcquire_concurrentCallers(t *testing.T) {
	t.Parallel()

	l := New(1000)
	ctx := context.Background()

	var wg sync.WaitGroup

	for range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 10 {
				_ = l.Acquire(ctx)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 200, l.Recorded())
}

func TestNew_nonPositiveFallsBackToDefault(t *testing.T) {
	t.Parallel()

	l := New(0)
	assert.Equal(t, DefaultMaxPerWindow, l.max)
}
