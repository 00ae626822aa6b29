package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotsetlabs/bellwether/internal/bwerrors"
)

func TestDo_SucceedsWithoutRetryOnFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultPolicy, func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesRetryableErrorsUntilSuccess(t *testing.T) {
	calls := 0
	policy := Policy{MaxAttempts: 5, InitialBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond, Multiplier: 2}

	err := Do(context.Background(), policy, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return bwerrors.New(bwerrors.LLMConnection, "test", "op", errors.New("connection reset"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsImmediatelyOnTerminalError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultPolicy, func(ctx context.Context) error {
		calls++
		return bwerrors.New(bwerrors.LLMAuth, "test", "op", errors.New("bad key"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "terminal errors must not be retried")
}

func TestDo_StopsAfterMaxAttempts(t *testing.T) {
	calls := 0
	policy := Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 1}

	err := Do(context.Background(), policy, func(ctx context.Context) error {
		calls++
		return bwerrors.New(bwerrors.LLMConnection, "test", "op", errors.New("still failing"))
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_HonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{MaxAttempts: 5, InitialBackoff: 50 * time.Millisecond, MaxBackoff: time.Second, Multiplier: 2}

	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, policy, func(ctx context.Context) error {
		calls++
		return bwerrors.New(bwerrors.LLMConnection, "test", "op", errors.New("still failing"))
	})

	require.Error(t, err)
	assert.LessOrEqual(t, calls, 2)
}

func TestDo_HonorsServerRetryAfterHint(t *testing.T) {
	calls := 0
	var elapsed time.Duration
	start := time.Now()

	policy := Policy{MaxAttempts: 2, InitialBackoff: time.Hour, MaxBackoff: time.Hour, Multiplier: 1}
	_ = Do(context.Background(), policy, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return bwerrors.New(bwerrors.LLMRateLimit, "test", "op", errors.New("rate limited")).
				WithRetryAfter(5 * time.Millisecond)
		}
		elapsed = time.Since(start)
		return nil
	})

	assert.Equal(t, 2, calls)
	assert.Less(t, elapsed, time.Hour, "retry-after hint should override the huge configured backoff")
}

func TestDo_ServerRetryAfterHintIsCappedAtMaxBackoff(t *testing.T) {
	calls := 0
	var elapsed time.Duration
	start := time.Now()

	policy := Policy{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: 20 * time.Millisecond, Multiplier: 1}
	_ = Do(context.Background(), policy, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return bwerrors.New(bwerrors.LLMRateLimit, "test", "op", errors.New("rate limited")).
				WithRetryAfter(time.Hour)
		}
		elapsed = time.Since(start)
		return nil
	})

	assert.Equal(t, 2, calls)
	assert.Less(t, elapsed, time.Second, "a retry-after far beyond MaxBackoff must be capped, not honored verbatim")
}
