package testsupport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock_ReturnsCurrentTime(t *testing.T) {
	before := time.Now()
	got := RealClock{}.Now()
	after := time.Now()

	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}

func TestManualClock_HoldsAndAdvancesTime(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	clock := NewManualClock(start)

	assert.True(t, clock.Now().Equal(start))

	clock.Advance(90 * time.Minute)
	assert.True(t, clock.Now().Equal(start.Add(90*time.Minute)))

	newTime := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	clock.Set(newTime)
	assert.True(t, clock.Now().Equal(newTime))
}

func TestManualClock_ZeroTimeDefaultsToNow(t *testing.T) {
	before := time.Now()
	clock := NewManualClock(time.Time{})
	after := time.Now()

	got := clock.Now()
	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}
