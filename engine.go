package goAuthGate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	internalaudit "github.com/MrEthical07/goAuthGate/internal/audit"
	"github.com/MrEthical07/goAuthGate/internal/sweep"
	"github.com/MrEthical07/goAuthGate/jwt"
	"github.com/MrEthical07/goAuthGate/lineage"
	"github.com/MrEthical07/goAuthGate/revocation"
	"github.com/MrEthical07/goAuthGate/throttle"
)

// Engine composes the router, token issuer, refresh lineages, revocation
// store and attempt throttle. Build one with New().Build(). All methods are
// safe for concurrent use.
type Engine struct {
	config     Config
	router     *Router
	jwtManager *jwt.Manager
	tracker    *lineage.Tracker
	revocation revocation.Store
	throttle   *throttle.Throttle
	audit      *internalaudit.Dispatcher
	metrics    *Metrics
	logger     *zap.Logger
	now        func() time.Time

	sharedState bool
	ssoEnabled  bool

	sweepers  []*sweep.Runner
	closeOnce sync.Once
}

// Close stops background sweeps and drains the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		for _, s := range e.sweepers {
			s.Stop()
		}
		e.audit.Close()
	})
}

// AuditDropped returns the number of audit events dropped because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Metrics returns the engine's metric registry for exporters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// MetricsSnapshot copies every metric.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return NewMetrics(MetricsConfig{}).Snapshot()
	}
	return e.metrics.Snapshot()
}

// RegisterProvider routes principals of domain to p. It may be called
// while the engine is serving.
func (e *Engine) RegisterProvider(domain string, p AuthProvider) {
	e.router.RegisterProvider(domain, p)
}

// RequiresSSO reports whether principal must authenticate through an
// external identity provider.
func (e *Engine) RequiresSSO(principal string) bool {
	return e.router.RequiresSSO(principal)
}

/*
====================================
AUTHENTICATION
====================================
*/

type loginKind uint8

const (
	loginPassword loginKind = iota
	loginSSO
)

// Authenticate checks principal and secret with the provider for the
// principal's domain and, on success, issues an access token and opens a
// new refresh lineage.
//
// The returned AuthResult is never nil. The error is nil on success and
// otherwise one of ErrInvalidCredentials, ErrSSORedirectRequired,
// *RateLimitError, ErrProviderUnavailable or ErrStateUnavailable.
func (e *Engine) Authenticate(ctx context.Context, principal, secret string) (*AuthResult, error) {
	if e == nil || e.router == nil {
		res := Failed(MessageServiceUnavailable, ErrEngineNotReady)
		return &res, ErrEngineNotReady
	}
	start := time.Now()
	defer func() { e.metrics.Observe(MetricAuthenticateLatency, time.Since(start)) }()

	if res, err := e.gate(ctx, principal); res != nil {
		return res, err
	}
	res := e.router.Authenticate(ctx, principal, secret)
	return e.complete(ctx, principal, res, loginPassword)
}

// AuthenticateWithAuthorizationCode completes an SSO login for the
// provider registered for principal's domain. principal may be any
// address of that domain.
func (e *Engine) AuthenticateWithAuthorizationCode(ctx context.Context, principal, code, redirectURI string) (*AuthResult, error) {
	sso, ok := e.router.ssoFor(principal)
	if !ok {
		return e.complete(ctx, principal, Failed(MessageAuthenticationFailed, ErrSSONotSupported), loginSSO)
	}
	if res, err := e.gate(ctx, principal); res != nil {
		return res, err
	}
	return e.complete(ctx, principal, sso.AuthenticateWithAuthorizationCode(ctx, code, redirectURI), loginSSO)
}

// AuthenticateWithExternalToken logs in with a token issued by the
// identity provider registered for principal's domain.
func (e *Engine) AuthenticateWithExternalToken(ctx context.Context, principal, token string) (*AuthResult, error) {
	sso, ok := e.router.ssoFor(principal)
	if !ok {
		return e.complete(ctx, principal, Failed(MessageAuthenticationFailed, ErrSSONotSupported), loginSSO)
	}
	if res, err := e.gate(ctx, principal); res != nil {
		return res, err
	}
	return e.complete(ctx, principal, sso.ValidateExternalToken(ctx, token), loginSSO)
}

// gate returns a non-nil result when the attempt must not proceed.
func (e *Engine) gate(ctx context.Context, principal string) (*AuthResult, error) {
	ip := clientIPFromContext(ctx)
	decision, err := e.throttle.Allow(ctx, ip, principal)
	if err != nil {
		e.metrics.Inc(MetricStateBackendError)
		e.logger.Error("throttle backend failed", zap.Error(err))
		e.emitAudit(ctx, auditRecord{
			eventType: auditEventLoginFailure,
			principal: principal,
			err:       err,
		})
		res := Failed(MessageServiceUnavailable, err)
		return &res, ErrStateUnavailable
	}
	if decision.Allowed {
		return nil, nil
	}

	e.metrics.Inc(MetricLoginRateLimited)
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventLoginRateLimited,
		principal: principal,
		err:       ErrRateLimited,
		metadata: func() map[string]string {
			return map[string]string{"retry_after": decision.RetryAfter.String()}
		},
	})
	res := Failed(MessageRateLimitExceeded, ErrRateLimited)
	res.RetryAfterSeconds = retryAfterSeconds(decision.RetryAfter)
	return &res, &RateLimitError{RetryAfter: decision.RetryAfter}
}

func (e *Engine) complete(ctx context.Context, principal string, res AuthResult, kind loginKind) (*AuthResult, error) {
	if res.Success {
		return e.loginSucceeded(ctx, principal, res, kind)
	}

	switch {
	case res.Message == MessageSSORedirectRequired:
		e.metrics.Inc(MetricSSORedirect)
		e.emitAudit(ctx, auditRecord{
			eventType: auditEventSSORedirectRequired,
			principal: principal,
			err:       ErrSSORedirectRequired,
		})
		return &res, ErrSSORedirectRequired

	case errors.Is(res.cause, ErrProviderUnavailable), errors.Is(res.cause, ErrNoProvider), errors.Is(res.cause, ErrSSONotSupported):
		e.metrics.Inc(MetricProviderError)
		e.emitAudit(ctx, auditRecord{
			eventType: auditEventProviderError,
			principal: principal,
			err:       res.cause,
		})
		if res.Message == MessageInvalidCredentials {
			return &res, ErrInvalidCredentials
		}
		return &res, ErrProviderUnavailable
	}

	if err := e.throttle.RecordFailures(ctx, clientIPFromContext(ctx), principal); err != nil {
		e.metrics.Inc(MetricStateBackendError)
		e.logger.Warn("record failed attempt", zap.Error(err))
	}

	cause := res.cause
	if cause == nil {
		cause = ErrInvalidCredentials
	}
	if kind == loginSSO {
		e.metrics.Inc(MetricSSOLoginFailure)
		e.emitAudit(ctx, auditRecord{eventType: auditEventSSOLoginFailure, principal: principal, err: cause})
	} else {
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, auditRecord{eventType: auditEventLoginFailure, principal: principal, err: cause})
	}
	return &res, ErrInvalidCredentials
}

func (e *Engine) loginSucceeded(ctx context.Context, attempted string, res AuthResult, kind loginKind) (*AuthResult, error) {
	if err := e.throttle.ResetActor(ctx, clientIPFromContext(ctx), attempted); err != nil {
		e.logger.Warn("reset attempt counters", zap.Error(err))
	}

	out, err := e.IssueTokens(ctx, res.Principal, res.Roles)
	if err != nil {
		return out, err
	}

	if kind == loginSSO {
		e.metrics.Inc(MetricSSOLoginSuccess)
	} else {
		e.metrics.Inc(MetricLoginSuccess)
	}
	event := auditEventLoginSuccess
	if kind == loginSSO {
		event = auditEventSSOLoginSuccess
	}
	e.emitAudit(ctx, auditRecord{
		eventType: event,
		success:   true,
		principal: out.Principal,
	})
	return out, nil
}

// IssueTokens mints an access token and opens a refresh lineage for a
// principal that was authenticated outside the engine.
func (e *Engine) IssueTokens(ctx context.Context, principal string, roles []string) (*AuthResult, error) {
	if principal == "" {
		res := Failed(MessageAuthenticationFailed, ErrInvalidCredentials)
		return &res, ErrInvalidCredentials
	}

	res := Succeeded(principal, roles)
	access, err := e.jwtManager.CreateAccess(principal, res.Roles, nil)
	if err != nil {
		e.logger.Error("issue access token", zap.Error(err))
		failed := Failed(MessageAuthenticationFailed, err)
		return &failed, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := e.tracker.Issue(ctx, principal, res.Roles)
	if err != nil {
		e.logger.Error("issue refresh token", zap.Error(err))
		failed := Failed(MessageAuthenticationFailed, err)
		return &failed, fmt.Errorf("issue refresh token: %w", err)
	}

	res.AccessToken = access.Token
	res.RefreshToken = refresh.Token
	res.ExpiresInSeconds = int64(e.jwtManager.AccessTTL() / time.Second)
	return &res, nil
}

/*
====================================
REFRESH / LOGOUT
====================================
*/

// Refresh rotates refreshToken.
//
// A replayed superseded token returns TOKEN_THEFT_DETECTED with a
// *TheftError; its whole lineage is revoked and forgotten.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if e == nil || e.tracker == nil {
		res := Failed(MessageServiceUnavailable, ErrEngineNotReady)
		return &res, ErrEngineNotReady
	}
	rot, err := e.tracker.Rotate(ctx, refreshToken)
	if err != nil {
		return e.refreshFailed(ctx, err)
	}

	res := Succeeded(rot.Family.Principal, rot.Family.Roles)
	res.AccessToken = rot.Access.Token
	res.RefreshToken = rot.Refresh.Token
	res.ExpiresInSeconds = int64(e.jwtManager.AccessTTL() / time.Second)

	e.metrics.Inc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventRefreshSuccess,
		success:   true,
		principal: rot.Family.Principal,
		familyID:  rot.Family.ID,
	})
	return &res, nil
}

func (e *Engine) refreshFailed(ctx context.Context, err error) (*AuthResult, error) {
	var theft *TheftError
	if errors.As(err, &theft) {
		e.metrics.Inc(MetricRefreshTheftDetected)
		message := MessageTokenTheftDetected
		if errors.Is(err, ErrInvalidTokenForRefresh) {
			message = MessageInvalidTokenForRefresh
		}
		e.emitAudit(ctx, auditRecord{
			eventType: auditEventRefreshTheftDetected,
			threat:    true,
			principal: theft.Family.Principal,
			familyID:  theft.Family.ID,
			err:       err,
			metadata: func() map[string]string {
				return map[string]string{"revoked_tokens": fmt.Sprint(theft.Revoked)}
			},
		})
		res := Failed(message, err)
		return &res, err
	}

	var (
		message string
		public  error
		event   = auditEventRefreshFailure
	)
	switch {
	case errors.Is(err, ErrInvalidRefreshToken):
		message, public = MessageInvalidRefreshToken, ErrInvalidRefreshToken
	case errors.Is(err, ErrTokenRevoked):
		message, public = MessageTokenRevoked, ErrTokenRevoked
	case errors.Is(err, ErrFamilyNotFound):
		message, public, event = MessageFamilyNotFound, ErrFamilyNotFound, auditEventRefreshFamilyNotFound
		e.metrics.Inc(MetricRefreshFamilyNotFound)
	case errors.Is(err, revocation.ErrBackendUnavailable):
		e.metrics.Inc(MetricStateBackendError)
		e.logger.Error("revocation backend failed during refresh", zap.Error(err))
		message, public = MessageServiceUnavailable, ErrStateUnavailable
	default:
		e.logger.Error("refresh failed", zap.Error(err))
		message, public = MessageAuthenticationFailed, fmt.Errorf("refresh: %w", err)
	}

	e.metrics.Inc(MetricRefreshFailure)
	e.emitAudit(ctx, auditRecord{eventType: event, err: err})
	res := Failed(message, err)
	return &res, public
}

// Logout ends the lineage of refreshToken. Expired refresh tokens are
// accepted as long as their signature verifies. The provider for the
// lineage's principal is notified with the family id; its error is logged,
// not returned.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.tracker == nil {
		return ErrEngineNotReady
	}
	fam, err := e.tracker.Invalidate(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, revocation.ErrBackendUnavailable) {
			e.metrics.Inc(MetricStateBackendError)
			return ErrStateUnavailable
		}
		return err
	}

	e.metrics.Inc(MetricLogout)
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventLogout,
		success:   true,
		principal: fam.Principal,
		familyID:  fam.ID,
	})

	if fam.ID == "" {
		return nil
	}
	if p := e.router.Resolve(fam.Principal); p != nil {
		if err := p.Logout(ctx, fam.ID); err != nil {
			e.logger.Warn("provider logout failed",
				zap.String("family_id", fam.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

/*
====================================
ACCESS TOKENS
====================================
*/

// RevokeAccessToken denylists an access token until its expiry. Expired
// tokens are accepted and need no entry.
func (e *Engine) RevokeAccessToken(ctx context.Context, token string) error {
	if e == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}
	claims, err := e.jwtManager.ParseClaims(token)
	if err != nil {
		return err
	}
	if claims.Type != jwt.TypeAccess {
		return ErrWrongTokenType
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := e.revocation.Revoke(ctx, token, expiresAt); err != nil {
		e.metrics.Inc(MetricStateBackendError)
		return ErrStateUnavailable
	}

	e.metrics.Inc(MetricAccessRevoked)
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventAccessRevoked,
		success:   true,
		principal: claims.Subject,
	})
	return nil
}

// ValidateAccess verifies signature, expiry and type of an access token
// and rejects revoked tokens.
func (e *Engine) ValidateAccess(ctx context.Context, token string) (*jwt.Claims, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()

	claims, err := e.jwtManager.ParseAs(token, jwt.TypeAccess)
	if err != nil {
		e.metrics.Inc(MetricValidateFailure)
		return nil, err
	}

	revoked, err := e.revocation.IsRevoked(ctx, token)
	if err != nil {
		e.metrics.Inc(MetricValidateFailure)
		e.metrics.Inc(MetricStateBackendError)
		return nil, ErrStateUnavailable
	}
	if revoked {
		e.metrics.Inc(MetricValidateFailure)
		return nil, ErrTokenRevoked
	}

	e.metrics.Inc(MetricValidateSuccess)
	return claims, nil
}

// LineageState reports the state of a refresh family.
func (e *Engine) LineageState(familyID string) lineage.State {
	return e.tracker.State(familyID)
}

// Stats reports current state sizes.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	revoked, err := e.revocation.Len(ctx)
	if err != nil {
		return Stats{}, err
	}
	counters, err := e.throttle.Len(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		ActiveFamilies:   e.tracker.Len(),
		RevokedTokens:    revoked,
		ThrottleCounters: counters,
	}, nil
}
