// Package prometheus exposes goAuthGate metrics as a prometheus.Collector.
//
// [NewPrometheusExporter] wraps a [goAuthGate.Engine]. Register the exporter
// with your own registry, or mount [PrometheusExporter.Handler] which
// serves it from a private one. Counter names are prefixed goauthgate_ and
// end in _total; latency histograms end in _latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
