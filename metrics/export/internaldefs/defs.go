package internaldefs

import (
	coupon "github.com/rolandrocking/77x"
)

// CounterDef defines a public type used by coupon APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   coupon.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by coupon APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   coupon.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the coupon engine.
var CounterDefs = []CounterDef{
	{ID: coupon.MetricIssueSuccess, Name: "coupon_issue_success_total", Help: "Successfully issued tokens."},
	{ID: coupon.MetricIssueRejectedUser, Name: "coupon_issue_rejected_user_total", Help: "Issuance attempts rejected by the per-user ceiling."},
	{ID: coupon.MetricIssueRejectedGlobal, Name: "coupon_issue_rejected_global_total", Help: "Issuance attempts rejected by the global ceiling."},
	{ID: coupon.MetricIssueRateLimited, Name: "coupon_issue_rate_limited_total", Help: "Rate-limited issuance attempts."},
	{ID: coupon.MetricIssueReleased, Name: "coupon_issue_released_total", Help: "Reservations released after a failed issuance."},
	{ID: coupon.MetricIssueFailure, Name: "coupon_issue_failure_total", Help: "Issuance attempts that failed after admission."},
	{ID: coupon.MetricCheckValid, Name: "coupon_check_valid_total", Help: "Check calls returning a valid verdict."},
	{ID: coupon.MetricCheckExpired, Name: "coupon_check_expired_total", Help: "Check calls returning an expired verdict."},
	{ID: coupon.MetricCheckAlreadyUsed, Name: "coupon_check_already_used_total", Help: "Check calls returning an already-used verdict."},
	{ID: coupon.MetricCheckMalformed, Name: "coupon_check_malformed_total", Help: "Check calls returning a malformed verdict."},
	{ID: coupon.MetricRedeemSuccess, Name: "coupon_redeem_success_total", Help: "First-use redemptions."},
	{ID: coupon.MetricRedeemReplay, Name: "coupon_redeem_replay_total", Help: "Redemption attempts on already-used tokens."},
	{ID: coupon.MetricRedeemRejected, Name: "coupon_redeem_rejected_total", Help: "Redemption attempts rejected before the single-use check."},
	{ID: coupon.MetricStoreUnavailable, Name: "coupon_store_unavailable_total", Help: "Operations aborted because the counter store was unreachable."},
}

// HistogramDefs is an exported constant or variable used by the coupon engine.
var HistogramDefs = []HistogramDef{
	{ID: coupon.MetricIssueLatency, Name: "coupon_issue_latency_seconds", Help: "RequestToken latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the coupon engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the coupon engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
