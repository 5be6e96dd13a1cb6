// Package otel binds dashcore counters and the fetch latency histogram to
// OpenTelemetry observable instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter and one
// Int64ObservableGauge per histogram bucket. A single callback reads
// [dashcore.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
