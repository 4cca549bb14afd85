// ABOUTME: This file tests circuit breaker state transitions and request shedding
package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream failure")

func failingOp(ctx context.Context) error    { return errUpstream }
func succeedingOp(ctx context.Context) error { return nil }

func newTestBreaker(cooldown time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(&BreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Cooldown:         cooldown,
		ProbeLimit:       2,
	}, nil)
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := newTestBreaker(time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := cb.Execute(ctx, failingOp)
		assert.ErrorIs(t, err, errUpstream)
	}
	assert.Equal(t, BreakerOpen, cb.State())

	// Open circuit sheds load without invoking the operation.
	called := false
	err := cb.Execute(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.False(t, called)

	stats := cb.Stats()
	assert.Equal(t, int64(1), stats.Shed)
	assert.Equal(t, int64(3), stats.Failures)
	assert.Equal(t, int64(1), stats.Trips)
}

func TestCircuitBreaker_SuccessResetsFailureStreak(t *testing.T) {
	cb := newTestBreaker(time.Minute)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failingOp))
	require.Error(t, cb.Execute(ctx, failingOp))
	require.NoError(t, cb.Execute(ctx, succeedingOp))
	require.Error(t, cb.Execute(ctx, failingOp))
	require.Error(t, cb.Execute(ctx, failingOp))

	assert.Equal(t, BreakerClosed, cb.State(), "interleaved success resets the failure streak")
}

func TestCircuitBreaker_CallerCancellationLeavesCircuitClosed(t *testing.T) {
	cb := newTestBreaker(time.Minute)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	// A caller giving up says nothing about upstream health, no matter how
	// often it happens.
	for i := 0; i < 10; i++ {
		err := cb.Execute(cancelled, func(ctx context.Context) error {
			return ctx.Err()
		})
		require.ErrorIs(t, err, context.Canceled)
	}

	assert.Equal(t, BreakerClosed, cb.State())
	stats := cb.Stats()
	assert.Zero(t, stats.Failures)
	assert.Zero(t, stats.Trips)
}

func TestCircuitBreaker_DeadlineExpiryIsNotAnUpstreamFailure(t *testing.T) {
	cb := newTestBreaker(time.Minute)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failingOp))
	require.Error(t, cb.Execute(ctx, failingOp))

	err := cb.Execute(ctx, func(ctx context.Context) error {
		return context.DeadlineExceeded
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The streak stands at two; one more real failure trips the circuit.
	assert.Equal(t, BreakerClosed, cb.State())
	require.Error(t, cb.Execute(ctx, failingOp))
	assert.Equal(t, BreakerOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := newTestBreaker(10 * time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.Error(t, cb.Execute(ctx, failingOp))
	}
	require.Equal(t, BreakerOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	// Successful probes close the circuit again.
	require.NoError(t, cb.Execute(ctx, succeedingOp))
	assert.Equal(t, BreakerHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ctx, succeedingOp))
	assert.Equal(t, BreakerClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := newTestBreaker(10 * time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.Error(t, cb.Execute(ctx, failingOp))
	}
	time.Sleep(20 * time.Millisecond)

	err := cb.Execute(ctx, failingOp)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, BreakerOpen, cb.State())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := newTestBreaker(time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.Error(t, cb.Execute(ctx, failingOp))
	}
	require.Equal(t, BreakerOpen, cb.State())

	cb.Reset()
	assert.Equal(t, BreakerClosed, cb.State())
	require.NoError(t, cb.Execute(ctx, succeedingOp))
}

func TestBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", BreakerClosed.String())
	assert.Equal(t, "open", BreakerOpen.String())
	assert.Equal(t, "half_open", BreakerHalfOpen.String())
}
