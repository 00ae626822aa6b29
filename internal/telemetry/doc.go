// Package telemetry wraps the OpenTelemetry Metrics API with the
// instruments Bellwether records during a run: interview interactions,
// tool-call latency, cache hits, LLM token/cost usage, and diff risk
// scores. A Recorder is safe for concurrent use since the underlying
// OTel instruments handle their own synchronization.
//
// Callers that don't care about export wire a no-op provider via
// [NoopProvider]; callers that want real metrics build one with
// [NewSDKProvider] and pass its MeterProvider to [NewRecorder].
package telemetry
