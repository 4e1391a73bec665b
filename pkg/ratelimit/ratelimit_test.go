package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samosalabs/licenseserver/pkg/ratelimit"
)

func newLimiter(t *testing.T, limit int, window time.Duration) *ratelimit.SlidingWindow {
	t.Helper()
	store := ratelimit.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	limiter, err := ratelimit.NewSlidingWindow(store, limit, window)
	require.NoError(t, err)
	return limiter
}

func TestNewSlidingWindow(t *testing.T) {
	t.Parallel()

	store := ratelimit.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	_, err := ratelimit.NewSlidingWindow(nil, 1, time.Second)
	assert.ErrorIs(t, err, ratelimit.ErrStoreRequired)

	_, err = ratelimit.NewSlidingWindow(store, 0, time.Second)
	assert.ErrorIs(t, err, ratelimit.ErrInvalidLimit)

	_, err = ratelimit.NewSlidingWindow(store, 1, 0)
	assert.ErrorIs(t, err, ratelimit.ErrInvalidWindow)
}

func TestSlidingWindow_Allow(t *testing.T) {
	t.Parallel()

	t.Run("allows up to the limit", func(t *testing.T) {
		t.Parallel()
		limiter := newLimiter(t, 3, time.Minute)

		for i := 0; i < 3; i++ {
			result, err := limiter.Allow(context.Background(), "client-a")
			require.NoError(t, err)
			assert.True(t, result.Allowed, "request %d", i+1)
		}

		result, err := limiter.Allow(context.Background(), "client-a")
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Zero(t, result.Remaining)
		assert.Positive(t, result.RetryAfter())
	})

	t.Run("keys are independent", func(t *testing.T) {
		t.Parallel()
		limiter := newLimiter(t, 1, time.Minute)

		result, err := limiter.Allow(context.Background(), "client-b")
		require.NoError(t, err)
		assert.True(t, result.Allowed)

		result, err = limiter.Allow(context.Background(), "client-c")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})

	t.Run("window slides", func(t *testing.T) {
		t.Parallel()
		limiter := newLimiter(t, 1, 50*time.Millisecond)

		result, err := limiter.Allow(context.Background(), "client-d")
		require.NoError(t, err)
		assert.True(t, result.Allowed)

		result, err = limiter.Allow(context.Background(), "client-d")
		require.NoError(t, err)
		assert.False(t, result.Allowed)

		time.Sleep(60 * time.Millisecond)

		result, err = limiter.Allow(context.Background(), "client-d")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})

	t.Run("empty key", func(t *testing.T) {
		t.Parallel()
		limiter := newLimiter(t, 1, time.Minute)

		_, err := limiter.Allow(context.Background(), "")
		assert.ErrorIs(t, err, ratelimit.ErrKeyRequired)
	})

	t.Run("reset clears the window", func(t *testing.T) {
		t.Parallel()
		limiter := newLimiter(t, 1, time.Minute)

		_, err := limiter.Allow(context.Background(), "client-e")
		require.NoError(t, err)

		require.NoError(t, limiter.Reset(context.Background(), "client-e"))

		result, err := limiter.Allow(context.Background(), "client-e")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})
}
