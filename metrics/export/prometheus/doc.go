// Package prometheus renders engine metrics in the Prometheus text
// exposition format without depending on the Prometheus client library.
//
// [NewPrometheusExporter] takes an [authkit.Engine] and returns an exporter
// whose Handler serves the current snapshot. Counter names carry the
// authkit_*_total suffix; the single histogram is
// authkit_validate_latency_seconds. Nothing is registered globally, and the
// exporter never mutates engine state.
package prometheus
