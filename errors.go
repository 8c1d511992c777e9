package goAuthGate

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAuthGate/jwt"
	"github.com/MrEthical07/goAuthGate/lineage"
)

var (
	// ErrInvalidCredentials is returned when a credential check fails. It
	// never distinguishes unknown principals from wrong secrets.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSSORedirectRequired is returned when a password is presented to a
	// provider that only accepts external SSO.
	ErrSSORedirectRequired = errors.New("sso redirect required")
	// ErrRateLimited is an exported constant or variable used by the authentication engine.
	ErrRateLimited = errors.New("too many authentication attempts")
	// ErrProviderUnavailable is returned when a provider collaborator failed,
	// timed out, panicked, or its circuit breaker is open.
	ErrProviderUnavailable = errors.New("authentication provider unavailable")
	// ErrNoProvider is an exported constant or variable used by the authentication engine.
	ErrNoProvider = errors.New("no authentication provider configured")
	// ErrSSONotSupported is returned when an SSO entry point resolves to a
	// provider without SSO capability.
	ErrSSONotSupported = errors.New("provider does not support external sso")
	// ErrStateUnavailable is returned when the throttle or revocation backend
	// cannot be reached. Callers are denied.
	ErrStateUnavailable = errors.New("token state backend unavailable")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrTokenMalformed is an exported constant or variable used by the authentication engine.
	ErrTokenMalformed = jwt.ErrTokenMalformed
	// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrTokenInvalid = jwt.ErrTokenInvalid
	// ErrTokenExpired is an exported constant or variable used by the authentication engine.
	ErrTokenExpired = jwt.ErrTokenExpired
	// ErrWrongTokenType is an exported constant or variable used by the authentication engine.
	ErrWrongTokenType = jwt.ErrWrongTokenType

	// ErrTokenRevoked is an exported constant or variable used by the authentication engine.
	ErrTokenRevoked = lineage.ErrTokenRevoked
	// ErrInvalidRefreshToken is an exported constant or variable used by the authentication engine.
	ErrInvalidRefreshToken = lineage.ErrInvalidRefreshToken
	// ErrFamilyNotFound is an exported constant or variable used by the authentication engine.
	ErrFamilyNotFound = lineage.ErrFamilyNotFound
	// ErrTheftDetected is an exported constant or variable used by the authentication engine.
	ErrTheftDetected = lineage.ErrTheftDetected
	// ErrInvalidTokenForRefresh is an exported constant or variable used by the authentication engine.
	ErrInvalidTokenForRefresh = lineage.ErrInvalidTokenForRefresh
)

// TheftError carries the purged family after reuse detection.
type TheftError = lineage.TheftError

// RateLimitError is returned by Authenticate when the throttle denies the
// caller. It unwraps to ErrRateLimited.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%v: retry after %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
