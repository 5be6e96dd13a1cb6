// Package prometheus renders dashcore metrics in the Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts a [dashcore.Engine] and exposes an
// [http.Handler]. Counter names are dashcore_*_total; the single histogram is
// dashcore_fetch_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
