package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) *SlidingWindow {
	t.Helper()
	store := NewMemoryStore()
	t.Cleanup(store.Close)
	sw, err := NewSlidingWindow(store, limit, window)
	require.NoError(t, err)
	return sw
}

func TestNewSlidingWindow(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	t.Cleanup(store.Close)

	_, err := NewSlidingWindow(nil, 5, time.Minute)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewSlidingWindow(store, 0, time.Minute)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, err = NewSlidingWindow(store, 5, 0)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestSlidingWindow_Allow(t *testing.T) {
	t.Parallel()

	t.Run("enforces limit per key", func(t *testing.T) {
		t.Parallel()

		sw := newTestLimiter(t, 3, time.Minute)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			result, err := sw.Allow(ctx, "alice")
			require.NoError(t, err)
			assert.True(t, result.Allowed)
			assert.Equal(t, 3-i-1, result.Remaining)
		}

		result, err := sw.Allow(ctx, "alice")
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Zero(t, result.Remaining)

		// A different key has its own window.
		result, err = sw.Allow(ctx, "bob")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})

	t.Run("window slides", func(t *testing.T) {
		t.Parallel()

		sw := newTestLimiter(t, 2, 50*time.Millisecond)
		ctx := context.Background()

		for i := 0; i < 2; i++ {
			result, err := sw.Allow(ctx, "k")
			require.NoError(t, err)
			require.True(t, result.Allowed)
		}
		result, err := sw.Allow(ctx, "k")
		require.NoError(t, err)
		require.False(t, result.Allowed)

		time.Sleep(60 * time.Millisecond)

		result, err = sw.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		t.Parallel()

		sw := newTestLimiter(t, 1, time.Minute)
		_, err := sw.Allow(context.Background(), "")
		assert.ErrorIs(t, err, ErrKeyRequired)
	})

	t.Run("concurrent calls never exceed the limit", func(t *testing.T) {
		t.Parallel()

		const limit = 10
		sw := newTestLimiter(t, limit, time.Minute)
		ctx := context.Background()

		var allowed atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := sw.Allow(ctx, "shared")
				if err == nil && result.Allowed {
					allowed.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(limit), allowed.Load())
	})
}

func TestSlidingWindow_StatusAndReset(t *testing.T) {
	t.Parallel()

	sw := newTestLimiter(t, 2, time.Minute)
	ctx := context.Background()

	_, err := sw.Allow(ctx, "k")
	require.NoError(t, err)

	status, err := sw.Status(ctx, "k")
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Equal(t, 1, status.Remaining)

	// Status does not consume.
	status, err = sw.Status(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Remaining)

	require.NoError(t, sw.Reset(ctx, "k"))

	status, err = sw.Status(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, status.Remaining)
}
