package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for every Bellwether
// instrument.
const meterName = "github.com/dotsetlabs/bellwether"

// latencyBuckets bound the tool-call and baseline-build histograms, in
// seconds.
var latencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Recorder holds every OpenTelemetry instrument Bellwether records
// against during a run. All fields are safe for concurrent use.
type Recorder struct {
	interviewInteractions metric.Int64Counter
	cacheHits             metric.Int64Counter
	cacheMisses           metric.Int64Counter
	toolCallDuration      metric.Float64Histogram
	llmTokens             metric.Int64Counter
	llmCostUSD            metric.Float64Counter
	diffRiskScore         metric.Int64Histogram
	baselineBuildDuration metric.Float64Histogram
	baselineToolCount     metric.Int64Histogram
}

// NewRecorder builds a Recorder against the given MeterProvider. Pass
// [NoopProvider] to get a Recorder whose methods are safe no-ops.
func NewRecorder(mp metric.MeterProvider) (*Recorder, error) {
	m := mp.Meter(meterName)
	r := &Recorder{}
	var err error

	if r.interviewInteractions, err = m.Int64Counter("bellwether.interview.interactions",
		metric.WithDescription("Total interview question/tool-call interactions, by persona, tool, category, and outcome."),
	); err != nil {
		return nil, err
	}
	if r.cacheHits, err = m.Int64Counter("bellwether.interview.cache_hits",
		metric.WithDescription("Interview interactions served from the response cache."),
	); err != nil {
		return nil, err
	}
	if r.cacheMisses, err = m.Int64Counter("bellwether.interview.cache_misses",
		metric.WithDescription("Interview interactions that required an actual tool call."),
	); err != nil {
		return nil, err
	}
	if r.toolCallDuration, err = m.Float64Histogram("bellwether.tool.call.duration",
		metric.WithDescription("Latency of a single tool call made during an interview, scenario, or workflow run."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if r.llmTokens, err = m.Int64Counter("bellwether.llm.tokens",
		metric.WithDescription("Total LLM tokens consumed, by provider and direction (input/output)."),
	); err != nil {
		return nil, err
	}
	if r.llmCostUSD, err = m.Float64Counter("bellwether.llm.cost_usd",
		metric.WithDescription("Estimated LLM spend in US dollars, by provider."),
	); err != nil {
		return nil, err
	}
	if r.diffRiskScore, err = m.Int64Histogram("bellwether.diff.risk_score",
		metric.WithDescription("Risk score (0-100) of a baseline comparison, by severity."),
		metric.WithExplicitBucketBoundaries(0, 15, 40, 60, 80, 100),
	); err != nil {
		return nil, err
	}
	if r.baselineBuildDuration, err = m.Float64Histogram("bellwether.baseline.build.duration",
		metric.WithDescription("Latency of building a baseline against a live MCP server."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if r.baselineToolCount, err = m.Int64Histogram("bellwether.baseline.tool_count",
		metric.WithDescription("Number of tools captured in a built baseline."),
	); err != nil {
		return nil, err
	}

	return r, nil
}

// RecordInteraction records one interview interaction's outcome.
func (r *Recorder) RecordInteraction(ctx context.Context, persona, tool, category string, correct bool) {
	status := "incorrect"
	if correct {
		status = "correct"
	}
	r.interviewInteractions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("persona", persona),
		attribute.String("tool", tool),
		attribute.String("category", category),
		attribute.String("outcome", status),
	))
}

// RecordCacheHit records an interview question answered from the
// response cache instead of an actual tool call.
func (r *Recorder) RecordCacheHit(ctx context.Context, tool string) {
	r.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))
}

// RecordCacheMiss records an interview question that required an actual
// tool call.
func (r *Recorder) RecordCacheMiss(ctx context.Context, tool string) {
	r.cacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))
}

// RecordToolCall records the latency and outcome of a single tool call.
func (r *Recorder) RecordToolCall(ctx context.Context, tool string, seconds float64, succeeded bool) {
	status := "error"
	if succeeded {
		status = "ok"
	}
	r.toolCallDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
	))
}

// RecordLLMUsage records token consumption and estimated cost for one LLM
// call.
func (r *Recorder) RecordLLMUsage(ctx context.Context, provider string, inputTokens, outputTokens int64, costUSD float64) {
	r.llmTokens.Add(ctx, inputTokens, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("direction", "input"),
	))
	r.llmTokens.Add(ctx, outputTokens, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("direction", "output"),
	))
	if costUSD > 0 {
		r.llmCostUSD.Add(ctx, costUSD, metric.WithAttributes(attribute.String("provider", provider)))
	}
}

// RecordDiffRisk records a baseline comparison's risk score and severity
// band.
func (r *Recorder) RecordDiffRisk(ctx context.Context, severity string, risk int) {
	r.diffRiskScore.Record(ctx, int64(risk), metric.WithAttributes(attribute.String("severity", severity)))
}

// RecordBaselineBuild records the latency and tool count of a completed
// baseline build.
func (r *Recorder) RecordBaselineBuild(ctx context.Context, toolCount int, seconds float64) {
	r.baselineBuildDuration.Record(ctx, seconds)
	r.baselineToolCount.Record(ctx, int64(toolCount))
}
