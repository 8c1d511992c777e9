package internaldefs

import (
	goAuthGate "github.com/MrEthical07/goAuthGate"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   goAuthGate.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram.
type HistogramDef struct {
	ID   goAuthGate.MetricID
	Name string
	Help string
}

// GaugeDef names one state-size gauge read from Engine.Stats.
type GaugeDef struct {
	Name  string
	Help  string
	Value func(goAuthGate.Stats) int
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goAuthGate.MetricLoginSuccess, Name: "goauthgate_login_success_total", Help: "Successful password logins."},
	{ID: goAuthGate.MetricLoginFailure, Name: "goauthgate_login_failure_total", Help: "Failed password logins."},
	{ID: goAuthGate.MetricLoginRateLimited, Name: "goauthgate_login_rate_limited_total", Help: "Login attempts denied by the attempt throttle."},
	{ID: goAuthGate.MetricSSORedirect, Name: "goauthgate_sso_redirect_total", Help: "Password logins redirected to an SSO provider."},
	{ID: goAuthGate.MetricSSOLoginSuccess, Name: "goauthgate_sso_login_success_total", Help: "Successful SSO logins."},
	{ID: goAuthGate.MetricSSOLoginFailure, Name: "goauthgate_sso_login_failure_total", Help: "Failed SSO logins."},
	{ID: goAuthGate.MetricProviderError, Name: "goauthgate_provider_error_total", Help: "Credential store or identity provider failures."},
	{ID: goAuthGate.MetricRefreshSuccess, Name: "goauthgate_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: goAuthGate.MetricRefreshFailure, Name: "goauthgate_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: goAuthGate.MetricRefreshTheftDetected, Name: "goauthgate_refresh_theft_detected_total", Help: "Refresh families purged after token reuse."},
	{ID: goAuthGate.MetricRefreshFamilyNotFound, Name: "goauthgate_refresh_family_not_found_total", Help: "Refresh attempts naming an unknown family."},
	{ID: goAuthGate.MetricLogout, Name: "goauthgate_logout_total", Help: "Logout operations."},
	{ID: goAuthGate.MetricAccessRevoked, Name: "goauthgate_access_revoked_total", Help: "Access tokens revoked before expiry."},
	{ID: goAuthGate.MetricValidateSuccess, Name: "goauthgate_validate_success_total", Help: "Accepted access tokens."},
	{ID: goAuthGate.MetricValidateFailure, Name: "goauthgate_validate_failure_total", Help: "Rejected access tokens."},
	{ID: goAuthGate.MetricStateBackendError, Name: "goauthgate_state_backend_error_total", Help: "Throttle or revocation backend failures."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goAuthGate.MetricAuthenticateLatency, Name: "goauthgate_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
	{ID: goAuthGate.MetricValidateLatency, Name: "goauthgate_validate_latency_seconds", Help: "ValidateAccess latency histogram."},
}

// GaugeDefs lists the state-size gauges.
var GaugeDefs = []GaugeDef{
	{Name: "goauthgate_active_families", Help: "Refresh families currently tracked.", Value: func(s goAuthGate.Stats) int { return s.ActiveFamilies }},
	{Name: "goauthgate_revoked_tokens", Help: "Entries in the revocation store.", Value: func(s goAuthGate.Stats) int { return s.RevokedTokens }},
	{Name: "goauthgate_throttle_counters", Help: "Live attempt-throttle counters.", Value: func(s goAuthGate.Stats) int { return s.ThrottleCounters }},
}

// AuditDroppedName and AuditDroppedHelp describe the audit drop counter.
const (
	AuditDroppedName = "goauthgate_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// engine bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that
// flatten buckets into separate instruments.
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

// NormalizeBuckets copies raw into a fixed-size array, zero-padding short
// input.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
