package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottleNilIsNoop(t *testing.T) {
	var throttle *Throttle
	require.NoError(t, throttle.Wait(context.Background()))
}

func TestThrottleDisabledPassesImmediately(t *testing.T) {
	throttle := NewThrottle(0, 0)
	start := time.Now()
	for i := 0; i < 50; i++ {
		require.NoError(t, throttle.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestThrottleFixedSpacing(t *testing.T) {
	const delay = 60 * time.Millisecond
	throttle := NewThrottle(delay, 0)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, throttle.Wait(context.Background()))
	}
	// First pass is free; the next two wait a full delay each.
	assert.GreaterOrEqual(t, time.Since(start), 2*delay-5*time.Millisecond)
}

func TestSlidingWindowSpacing(t *testing.T) {
	throttle := NewThrottle(0, 2)

	var stamps []time.Time
	for i := 0; i < 5; i++ {
		require.NoError(t, throttle.Wait(context.Background()))
		stamps = append(stamps, time.Now())
	}

	// With a cap of 2 per second, admissions i and i+2 must sit at least
	// a full window apart.
	const window = 990 * time.Millisecond
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[0]), window)
	assert.GreaterOrEqual(t, stamps[4].Sub(stamps[2]), window)
	// The first two pass without delay.
	assert.Less(t, stamps[1].Sub(stamps[0]), 200*time.Millisecond)
}

func TestSlidingWindowHonorsContext(t *testing.T) {
	throttle := NewThrottle(0, 1)
	require.NoError(t, throttle.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := throttle.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
