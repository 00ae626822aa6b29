package budget

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotsetlabs/bellwether/internal/bwerrors"
)

func TestRecordUsage_AccumulatesTokensAndCost(t *testing.T) {
	tr := NewTracker(0, WithPrices(map[string]ModelPrice{
		"test-model": {InputPerMillion: 1_000_000, OutputPerMillion: 2_000_000},
	}))

	tr.RecordUsage("test-model", 1, 1)
	status := tr.Status()

	assert.Equal(t, int64(1), status.InputTokens)
	assert.Equal(t, int64(1), status.OutputTokens)
	assert.InDelta(t, 3.0, status.CostUSD, 0.0001)
}

func TestRecordUsage_ConcurrentCallsSumExactly(t *testing.T) {
	tr := NewTracker(0)

	const goroutines = 50
	const callsEach = 20

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsEach; j++ {
				tr.RecordUsage("gpt-4o-mini", 10, 5)
			}
		}()
	}
	wg.Wait()

	status := tr.Status()
	assert.Equal(t, int64(goroutines*callsEach*10), status.InputTokens)
	assert.Equal(t, int64(goroutines*callsEach*5), status.OutputTokens)
}

func TestWouldExceed_FalseWhenHardCapIsZero(t *testing.T) {
	tr := NewTracker(0)
	assert.False(t, tr.WouldExceed("gpt-4o", 1_000_000_000, 1_000_000_000))
}

func TestWouldExceed_TrueWhenProjectedCostPassesCap(t *testing.T) {
	tr := NewTracker(1.0, WithPrices(map[string]ModelPrice{
		"test-model": {InputPerMillion: 1_000_000, OutputPerMillion: 0},
	}))
	assert.True(t, tr.WouldExceed("test-model", 2, 0))
	assert.False(t, tr.WouldExceed("test-model", 0, 0))
}

func TestRecordUsage_FiresSoftLimitCallbackExactlyOnce(t *testing.T) {
	var mu sync.Mutex
	calls := 0

	tr := NewTracker(1.0,
		WithPrices(map[string]ModelPrice{"m": {InputPerMillion: 1_000_000, OutputPerMillion: 0}}),
		WithSoftFraction(0.5),
		WithSoftLimitCallback(func(Status) {
			mu.Lock()
			calls++
			mu.Unlock()
		}),
	)

	tr.RecordUsage("m", 1, 0) // crosses 0.5 * 1.0 cap
	tr.RecordUsage("m", 1, 0) // stays warned, no second callback

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestCheckHardCap_ReturnsBudgetExceededOncePassed(t *testing.T) {
	tr := NewTracker(1.0, WithPrices(map[string]ModelPrice{
		"m": {InputPerMillion: 1_000_000, OutputPerMillion: 0},
	}))

	require.NoError(t, tr.CheckHardCap())

	tr.RecordUsage("m", 2, 0) // cost = 2.0 > 1.0 cap
	err := tr.CheckHardCap()
	require.Error(t, err)
	assert.Equal(t, bwerrors.BudgetExceeded, bwerrors.CodeOf(err))
}

func TestPace_ReturnsImmediatelyBeforeSoftLimit(t *testing.T) {
	tr := NewTracker(1.0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, tr.Pace(ctx))
}

func TestStatus_UnknownModelCostsNothing(t *testing.T) {
	tr := NewTracker(0)
	tr.RecordUsage("some-model-not-in-any-table", 1000, 1000)
	status := tr.Status()
	assert.Equal(t, int64(1000), status.InputTokens)
	assert.Equal(t, 0.0, status.CostUSD)
}
