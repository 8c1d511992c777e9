package goAuthGate

import (
	"strings"

	"github.com/MrEthical07/goAuthGate/internal/security"
)

// SecurityReport summarizes the engine's effective security settings and
// lists configuration warnings.
type SecurityReport = security.Report

// SecurityReport returns a snapshot of the engine's security posture.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	var domains []string
	if e.ssoEnabled {
		domains = e.config.SSO.EnabledDomains
	}

	return security.BuildReport(security.ReportInput{
		SigningAlgorithm:      strings.ToLower(e.config.JWT.SigningMethod),
		AccessTTL:             e.config.JWT.AccessTTL,
		RefreshTTL:            e.config.JWT.RefreshTTL,
		Leeway:                e.config.JWT.Leeway,
		HistorySize:           e.config.Lineage.HistorySize,
		ThrottleEnabled:       e.config.Throttle.Enabled,
		MaxAttempts:           e.config.Throttle.MaxAttempts,
		ThrottleWindow:        e.config.Throttle.Window,
		SharedState:           e.sharedState,
		SSODomains:            domains,
		SSOBreakerMaxFailures: int(e.config.SSO.BreakerMaxFailures),
		AuditEnabled:          e.config.Audit.Enabled,
		MetricsEnabled:        e.config.Metrics.Enabled,
	})
}
