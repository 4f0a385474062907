package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRefillTracksElapsedTime(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	limiter, err := NewWithClock(10, 2, clock)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.True(t, limiter.TryAcquire(1))
	}
	require.False(t, limiter.TryAcquire(1))

	// 2 tokens/s for 3s buys exactly 6 tokens.
	clock.advance(3 * time.Second)
	assert.InDelta(t, 6.0, limiter.Tokens(), 1e-9)

	// A long idle stretch still clamps at capacity.
	clock.advance(time.Hour)
	assert.InDelta(t, 10.0, limiter.Tokens(), 1e-9)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(0, 1)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(-1, 1)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(10, 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(10, -0.5)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestTokensNeverExceedCapacity(t *testing.T) {
	t.Parallel()

	limiter, err := New(5, 1000)
	require.NoError(t, err)

	// Aggressive refill rate: without the clamp the bucket would overflow
	// almost immediately.
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, limiter.Tokens(), 5.0)
}

func TestTryAcquireDebitsAndRefuses(t *testing.T) {
	t.Parallel()

	limiter, err := New(3, 0.001)
	require.NoError(t, err)

	assert.True(t, limiter.TryAcquire(1))
	assert.True(t, limiter.TryAcquire(1))
	assert.True(t, limiter.TryAcquire(1))
	assert.False(t, limiter.TryAcquire(1))
	assert.GreaterOrEqual(t, limiter.Tokens(), 0.0)
}

func TestAcquireBlocksUntilRefill(t *testing.T) {
	t.Parallel()

	limiter, err := New(10, 1)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.True(t, limiter.TryAcquire(1))
	}

	// Bucket is empty; the 11th request must wait for roughly one token's
	// worth of refill time.
	start := time.Now()
	require.True(t, limiter.Acquire(context.Background(), 1))
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
	assert.GreaterOrEqual(t, limiter.Tokens(), 0.0)
}

func TestAcquireHonorsContextDeadline(t *testing.T) {
	t.Parallel()

	limiter, err := New(1, 0.1)
	require.NoError(t, err)
	require.True(t, limiter.TryAcquire(1))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	assert.False(t, limiter.Acquire(ctx, 1))
	assert.Less(t, time.Since(start), time.Second)
}

func TestConcurrentAcquiresStayNonNegative(t *testing.T) {
	t.Parallel()

	limiter, err := New(4, 200)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limiter.Acquire(context.Background(), 1)
		}()
	}
	wg.Wait()

	tokens := limiter.Tokens()
	assert.GreaterOrEqual(t, tokens, 0.0)
	assert.LessOrEqual(t, tokens, 4.0)
}
