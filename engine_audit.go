package goAuthGate

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAuthGate/throttle"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginRateLimited      = "login_rate_limited"
	auditEventSSORedirectRequired   = "sso_redirect_required"
	auditEventSSOLoginSuccess       = "sso_login_success"
	auditEventSSOLoginFailure       = "sso_login_failure"
	auditEventProviderError         = "provider_error"
	auditEventRefreshSuccess        = "refresh_success"
	auditEventRefreshFailure        = "refresh_failure"
	auditEventRefreshTheftDetected  = "refresh_theft_detected"
	auditEventRefreshFamilyNotFound = "refresh_family_not_found"
	auditEventLogout                = "logout"
	auditEventAccessRevoked         = "access_revoked"
)

// AuditErrorCode is the machine-readable error recorded on audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrSSORedirect         AuditErrorCode = "sso_redirect_required"
	auditErrRateLimited         AuditErrorCode = "rate_limited"
	auditErrInvalidToken        AuditErrorCode = "invalid_token"
	auditErrTokenRevoked        AuditErrorCode = "token_revoked"
	auditErrFamilyNotFound      AuditErrorCode = "family_not_found"
	auditErrTheftDetected       AuditErrorCode = "theft_detected"
	auditErrNotInFamily         AuditErrorCode = "invalid_token_for_refresh"
	auditErrProviderUnavailable AuditErrorCode = "provider_unavailable"
	auditErrUnavailable         AuditErrorCode = "backend_unavailable"
	auditErrInternal            AuditErrorCode = "internal_error"
)

type auditRecord struct {
	eventType string
	success   bool
	threat    bool
	principal string
	familyID  string
	err       error
	metadata  func() map[string]string
}

func (e *Engine) emitAudit(ctx context.Context, rec auditRecord) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: rec.eventType,
		Principal: rec.principal,
		TenantID:  tenantIDFromContext(ctx),
		FamilyID:  rec.familyID,
		IP:        clientIPFromContext(ctx),
		Success:   rec.success,
		Threat:    rec.threat,
	}
	if rec.metadata != nil {
		event.Metadata = rec.metadata()
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if event.Metadata == nil {
			event.Metadata = make(map[string]string, 1)
		}
		event.Metadata["user_agent"] = ua
	}
	if code := auditErrorCode(rec.err); code != "" {
		event.Error = string(code)
		if !errors.Is(rec.err, ErrInvalidCredentials) {
			if event.Metadata == nil {
				event.Metadata = make(map[string]string, 1)
			}
			event.Metadata["cause"] = rec.err.Error()
		}
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrSSORedirectRequired):
		return auditErrSSORedirect
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrTheftDetected):
		return auditErrTheftDetected
	case errors.Is(err, ErrInvalidTokenForRefresh):
		return auditErrNotInFamily
	case errors.Is(err, ErrFamilyNotFound):
		return auditErrFamilyNotFound
	case errors.Is(err, ErrTokenRevoked):
		return auditErrTokenRevoked
	case errors.Is(err, ErrInvalidRefreshToken),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrTokenMalformed),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrWrongTokenType):
		return auditErrInvalidToken
	case errors.Is(err, ErrProviderUnavailable),
		errors.Is(err, ErrNoProvider),
		errors.Is(err, ErrSSONotSupported):
		return auditErrProviderUnavailable
	case errors.Is(err, ErrStateUnavailable),
		errors.Is(err, throttle.ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
