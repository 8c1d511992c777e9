// Package otel provides OpenTelemetry metric exporter bindings for goAuthGate
// counters and histograms.
//
// [NewOTelExporter] registers Int64ObservableCounter instruments for each
// engine counter and an Int64ObservableGauge per histogram bucket. When the
// source also reports Stats, the state sizes are published as gauges. A
// single callback reads [goAuthGate.Engine.MetricsSnapshot] on each
// collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
