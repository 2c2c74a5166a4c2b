// Package prometheus provides Prometheus collectors for coupon metrics.
//
// [NewPrometheusExporter] accepts a [coupon.Engine] and exposes an [http.Handler]
// that renders all coupon counters and histograms in Prometheus text exposition
// format. Counter names are prefixed coupon_*_total; the single histogram is
// coupon_issue_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
