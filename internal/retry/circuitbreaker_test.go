package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotsetlabs/bellwether/internal/bwerrors"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test-breaker", 3, time.Minute)

	for i := 0; i < 3; i++ {
		err := cb.Call(func() error { return errors.New("boom") })
		require.Error(t, err)
	}
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Call(func() error { return nil })
	require.Error(t, err)
	assert.Equal(t, bwerrors.CircuitBreakerOpen, bwerrors.CodeOf(err))
}

func TestCircuitBreaker_ClosesOnSuccessBeforeThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test-breaker", 3, time.Minute)

	_ = cb.Call(func() error { return errors.New("boom") })
	_ = cb.Call(func() error { return nil })

	assert.Equal(t, StateClosed, cb.State())

	_ = cb.Call(func() error { return errors.New("boom") })
	_ = cb.Call(func() error { return errors.New("boom") })
	assert.Equal(t, StateClosed, cb.State(), "consecutive failure count resets on success")
}

func TestCircuitBreaker_HalfOpenProbeRecovers(t *testing.T) {
	cb := NewCircuitBreaker("test-breaker", 1, 10*time.Millisecond)

	err := cb.Call(func() error { return errors.New("boom") })
	require.Error(t, err)
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(15 * time.Millisecond)

	err = cb.Call(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("test-breaker", 1, 10*time.Millisecond)

	_ = cb.Call(func() error { return errors.New("boom") })
	time.Sleep(15 * time.Millisecond)

	err := cb.Call(func() error { return errors.New("still broken") })
	require.Error(t, err)
	assert.Equal(t, StateOpen, cb.State())
}
