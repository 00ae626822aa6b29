package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestRecorder returns a Recorder backed by a ManualReader so tests can
// collect exactly what was recorded.
func newTestRecorder(t *testing.T) (*Recorder, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	r, err := NewRecorder(mp)
	require.NoError(t, err)
	return r, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewRecorder_CreatesWithoutError(t *testing.T) {
	r, _ := newTestRecorder(t)
	assert.NotNil(t, r)
}

func TestNewRecorder_WithNoopProviderCreatesWithoutError(t *testing.T) {
	r, err := NewRecorder(NoopProvider())
	require.NoError(t, err)
	require.NotNil(t, r)

	// A noop provider's instruments must be safe to call even though
	// nothing ever collects them.
	r.RecordInteraction(context.Background(), "security-reviewer", "create_widget", "happy_path", true)
}

func TestRecordInteraction_IncrementsCounterWithAttributes(t *testing.T) {
	r, reader := newTestRecorder(t)
	ctx := context.Background()

	r.RecordInteraction(ctx, "security-reviewer", "create_widget", "error", false)

	rm := collect(t, reader)
	m := findMetric(rm, "bellwether.interview.interactions")
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)
}

func TestRecordCacheHitAndMiss_AreDistinctCounters(t *testing.T) {
	r, reader := newTestRecorder(t)
	ctx := context.Background()

	r.RecordCacheHit(ctx, "create_widget")
	r.RecordCacheMiss(ctx, "create_widget")
	r.RecordCacheMiss(ctx, "create_widget")

	rm := collect(t, reader)

	hits := findMetric(rm, "bellwether.interview.cache_hits")
	require.NotNil(t, hits)
	hitSum := hits.Data.(metricdata.Sum[int64])
	assert.Equal(t, int64(1), hitSum.DataPoints[0].Value)

	misses := findMetric(rm, "bellwether.interview.cache_misses")
	require.NotNil(t, misses)
	missSum := misses.Data.(metricdata.Sum[int64])
	assert.Equal(t, int64(2), missSum.DataPoints[0].Value)
}

func TestRecordToolCall_RecordsHistogramObservation(t *testing.T) {
	r, reader := newTestRecorder(t)
	ctx := context.Background()

	r.RecordToolCall(ctx, "create_widget", 0.25, true)

	rm := collect(t, reader)
	m := findMetric(rm, "bellwether.tool.call.duration")
	require.NotNil(t, m)
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestRecordLLMUsage_SplitsInputAndOutputTokensAndRecordsCost(t *testing.T) {
	r, reader := newTestRecorder(t)
	ctx := context.Background()

	r.RecordLLMUsage(ctx, "anthropic", 100, 50, 0.02)

	rm := collect(t, reader)

	tokens := findMetric(rm, "bellwether.llm.tokens")
	require.NotNil(t, tokens)
	tokenSum := tokens.Data.(metricdata.Sum[int64])
	require.Len(t, tokenSum.DataPoints, 2)
	var total int64
	for _, dp := range tokenSum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(150), total)

	cost := findMetric(rm, "bellwether.llm.cost_usd")
	require.NotNil(t, cost)
	costSum := cost.Data.(metricdata.Sum[float64])
	require.Len(t, costSum.DataPoints, 1)
	assert.InDelta(t, 0.02, costSum.DataPoints[0].Value, 0.0001)
}

func TestRecordLLMUsage_ZeroCostSkipsCostCounter(t *testing.T) {
	r, reader := newTestRecorder(t)
	r.RecordLLMUsage(context.Background(), "anthropic", 10, 5, 0)

	rm := collect(t, reader)
	cost := findMetric(rm, "bellwether.llm.cost_usd")
	if cost != nil {
		costSum := cost.Data.(metricdata.Sum[float64])
		assert.Empty(t, costSum.DataPoints)
	}
}

func TestRecordDiffRisk_RecordsRiskScoreByBucket(t *testing.T) {
	r, reader := newTestRecorder(t)
	r.RecordDiffRisk(context.Background(), "breaking", 85)

	rm := collect(t, reader)
	m := findMetric(rm, "bellwether.diff.risk_score")
	require.NotNil(t, m)
	hist := m.Data.(metricdata.Histogram[int64])
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, int64(85), hist.DataPoints[0].Sum)
}

func TestRecordBaselineBuild_RecordsDurationAndToolCount(t *testing.T) {
	r, reader := newTestRecorder(t)
	r.RecordBaselineBuild(context.Background(), 12, 1.5)

	rm := collect(t, reader)

	duration := findMetric(rm, "bellwether.baseline.build.duration")
	require.NotNil(t, duration)
	durHist := duration.Data.(metricdata.Histogram[float64])
	assert.Equal(t, 1.5, durHist.DataPoints[0].Sum)

	count := findMetric(rm, "bellwether.baseline.tool_count")
	require.NotNil(t, count)
	countHist := count.Data.(metricdata.Histogram[int64])
	assert.Equal(t, int64(12), countHist.DataPoints[0].Sum)
}

func TestNewSDKProvider_BuildsAndShutsDownCleanly(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()

	mp, shutdown, err := NewSDKProvider(ctx, ProviderConfig{
		ServiceName:    "bellwether-test",
		ServiceVersion: "0.0.0-test",
		Readers:        []sdkmetric.Reader{reader},
	})
	require.NoError(t, err)
	require.NotNil(t, mp)
	t.Cleanup(func() { _ = shutdown(ctx) })

	r, err := NewRecorder(mp)
	require.NoError(t, err)
	r.RecordCacheHit(ctx, "create_widget")

	rm := collect(t, reader)
	assert.NotNil(t, findMetric(rm, "bellwether.interview.cache_hits"))
}
