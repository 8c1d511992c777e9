package security

import (
	"fmt"
	"time"
)

// Report is a read-only view of an engine's security posture.
type Report struct {
	SigningAlgorithm   string        `json:"signingAlgorithm"`
	AccessTTL          time.Duration `json:"accessTtl"`
	RefreshTTL         time.Duration `json:"refreshTtl"`
	ClockSkewTolerance time.Duration `json:"clockSkewTolerance"`
	RefreshHistorySize int           `json:"refreshHistorySize"`
	ThrottleActive     bool          `json:"throttleActive"`
	ThrottleLimit      int           `json:"throttleLimit"`
	ThrottleWindow     time.Duration `json:"throttleWindow"`
	SharedState        bool          `json:"sharedState"`
	SSODomains         []string      `json:"ssoDomains,omitempty"`
	SSOCircuitBreaker  bool          `json:"ssoCircuitBreaker"`
	AuditEnabled       bool          `json:"auditEnabled"`
	MetricsEnabled     bool          `json:"metricsEnabled"`
	Warnings           []string      `json:"warnings,omitempty"`
}

// ReportInput carries the configuration values a Report is derived from.
type ReportInput struct {
	SigningAlgorithm      string
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	Leeway                time.Duration
	HistorySize           int
	ThrottleEnabled       bool
	MaxAttempts           int
	ThrottleWindow        time.Duration
	SharedState           bool
	SSODomains            []string
	SSOBreakerMaxFailures int
	AuditEnabled          bool
	MetricsEnabled        bool
}

const (
	longAccessTTL = time.Hour
	wideLeeway    = time.Minute
)

// BuildReport derives a Report and its warnings from input.
func BuildReport(input ReportInput) Report {
	throttleActive := input.ThrottleEnabled && input.MaxAttempts > 0 && input.ThrottleWindow > 0

	r := Report{
		SigningAlgorithm:   input.SigningAlgorithm,
		AccessTTL:          input.AccessTTL,
		RefreshTTL:         input.RefreshTTL,
		ClockSkewTolerance: input.Leeway,
		RefreshHistorySize: input.HistorySize,
		ThrottleActive:     throttleActive,
		ThrottleLimit:      input.MaxAttempts,
		ThrottleWindow:     input.ThrottleWindow,
		SharedState:        input.SharedState,
		SSODomains:         append([]string(nil), input.SSODomains...),
		SSOCircuitBreaker:  len(input.SSODomains) > 0 && input.SSOBreakerMaxFailures > 0,
		AuditEnabled:       input.AuditEnabled,
		MetricsEnabled:     input.MetricsEnabled,
	}

	if !throttleActive {
		r.Warnings = append(r.Warnings, "attempt throttle disabled")
	}
	if input.AccessTTL > longAccessTTL {
		r.Warnings = append(r.Warnings, fmt.Sprintf("access TTL %s exceeds %s", input.AccessTTL, longAccessTTL))
	}
	if input.Leeway > wideLeeway {
		r.Warnings = append(r.Warnings, fmt.Sprintf("clock skew tolerance %s exceeds %s", input.Leeway, wideLeeway))
	}
	if !input.SharedState {
		r.Warnings = append(r.Warnings, "revocations and attempt counters are process-local")
	}
	if !input.AuditEnabled {
		r.Warnings = append(r.Warnings, "audit disabled; theft detections are only logged")
	}

	return r
}
