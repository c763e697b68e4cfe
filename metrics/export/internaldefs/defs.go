package internaldefs

import (
	authkit "github.com/youthy-app/authkit"
)

// CounterDef binds a core metric id to its exported name and help text.
type CounterDef struct {
	ID   authkit.MetricID
	Name string
	Help string
}

// HistogramDef binds a core histogram id to its exported name and help text.
type HistogramDef struct {
	ID   authkit.MetricID
	Name string
	Help string
}

// CounterDefs is the shared counter naming table. Both exporters iterate it
// so the two surfaces can never disagree on names.
var CounterDefs = []CounterDef{
	{ID: authkit.MetricIssueSuccess, Name: "authkit_issue_success_total", Help: "Issued token pairs."},
	{ID: authkit.MetricIssueFailure, Name: "authkit_issue_failure_total", Help: "Failed issuance attempts."},
	{ID: authkit.MetricRotateSuccess, Name: "authkit_rotate_success_total", Help: "Successful refresh rotations."},
	{ID: authkit.MetricRotateFailure, Name: "authkit_rotate_failure_total", Help: "Failed refresh rotations."},
	{ID: authkit.MetricRefreshReuseDetected, Name: "authkit_refresh_reuse_detected_total", Help: "Spent refresh credentials presented again."},
	{ID: authkit.MetricVersionMismatch, Name: "authkit_version_mismatch_total", Help: "Tokens rejected for a superseded identity version."},
	{ID: authkit.MetricRevokeOne, Name: "authkit_revoke_one_total", Help: "Single-credential revocations."},
	{ID: authkit.MetricRevokeAll, Name: "authkit_revoke_all_total", Help: "Identity-wide revocations."},
	{ID: authkit.MetricValidateSuccess, Name: "authkit_validate_success_total", Help: "Access tokens that passed validation."},
	{ID: authkit.MetricValidateFailure, Name: "authkit_validate_failure_total", Help: "Access tokens that failed validation."},
}

// HistogramDefs is the shared histogram naming table.
var HistogramDefs = []HistogramDef{
	{ID: authkit.MetricValidateLatency, Name: "authkit_validate_latency_seconds", Help: "Access validation latency histogram."},
}

// HistogramBounds are the bucket upper bounds in seconds, matching the core
// histogram layout.
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

// HistogramBoundSuffix renders the same bounds as instrument name suffixes.
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

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form both
// exposition formats expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
