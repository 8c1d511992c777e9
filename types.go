package goAuthGate

import (
	"context"
	"slices"
	"time"
)

// ProviderKind names a provider capability.
type ProviderKind string

const (
	// ProviderLocal checks a principal and secret against a credential store.
	ProviderLocal ProviderKind = "local"
	// ProviderExternalSSO delegates to an external identity provider.
	ProviderExternalSSO ProviderKind = "external_sso"
)

// Stable AuthResult.Message codes.
const (
	MessageSuccess                = "SUCCESS"
	MessageInvalidCredentials     = "ERROR_INVALID_CREDENTIALS"
	MessageSSORedirectRequired    = "SSO_REDIRECT_REQUIRED"
	MessageRateLimitExceeded      = "RATE_LIMIT_EXCEEDED"
	MessageInvalidRefreshToken    = "INVALID_REFRESH_TOKEN"
	MessageTokenRevoked           = "TOKEN_REVOKED"
	MessageFamilyNotFound         = "FAMILY_NOT_FOUND"
	MessageTokenTheftDetected     = "TOKEN_THEFT_DETECTED"
	MessageInvalidTokenForRefresh = "INVALID_TOKEN_FOR_REFRESH"
	MessageAuthenticationFailed   = "AUTHENTICATION_FAILED"
	MessageServiceUnavailable     = "SERVICE_UNAVAILABLE"
)

// AuthResult is the outcome of every authentication and refresh call.
//
// A failed result may carry an internal cause. The cause reaches the audit
// sink and logs but is never serialized or exposed to callers.
type AuthResult struct {
	Success           bool     `json:"success"`
	Principal         string   `json:"principal,omitempty"`
	Message           string   `json:"message"`
	AccessToken       string   `json:"accessToken,omitempty"`
	RefreshToken      string   `json:"refreshToken,omitempty"`
	ExpiresInSeconds  int64    `json:"expiresIn,omitempty"`
	Roles             []string `json:"roles,omitempty"`
	RetryAfterSeconds int64    `json:"retryAfter,omitempty"`

	cause error
}

// Succeeded returns a successful result for principal. Duplicate roles are
// dropped preserving order.
func Succeeded(principal string, roles []string) AuthResult {
	return AuthResult{
		Success:   true,
		Principal: principal,
		Message:   MessageSuccess,
		Roles:     uniqueRoles(roles),
	}
}

// Failed returns a failed result with a stable message code and an
// optional internal cause.
func Failed(message string, cause error) AuthResult {
	return AuthResult{Message: message, cause: cause}
}

func uniqueRoles(roles []string) []string {
	if len(roles) == 0 {
		return nil
	}
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r != "" && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

// AuthProvider checks credentials for the principals of one or more
// identity domains.
type AuthProvider interface {
	Authenticate(ctx context.Context, principal, secret string) AuthResult
	Supports(kind ProviderKind) bool
	// Logout is called with the refresh family id when a session ends.
	Logout(ctx context.Context, sessionID string) error
}

// SSOProvider is an AuthProvider whose real authentication happens through
// an external identity provider.
type SSOProvider interface {
	AuthProvider
	AuthenticateWithAuthorizationCode(ctx context.Context, code, redirectURI string) AuthResult
	ValidateExternalToken(ctx context.Context, token string) AuthResult
}

// CredentialStore verifies a principal's secret. Implementations should
// bound their own I/O with ctx.
type CredentialStore interface {
	Authenticate(ctx context.Context, principal, secret string) (bool, error)
}

// RoleSource is optionally implemented by a CredentialStore to attach roles
// to a successful local authentication.
type RoleSource interface {
	Roles(ctx context.Context, principal string) ([]string, error)
}

// Profile is the identity returned by an external identity provider.
type Profile struct {
	Subject     string
	Email       string
	DisplayName string
	Roles       []string
}

// ExchangeResult is returned by an authorization-code exchange.
type ExchangeResult struct {
	AccessToken string
	Profile     *Profile
}

// TokenValidation is returned when an external token is checked.
type TokenValidation struct {
	Valid   bool
	Message string
	Profile *Profile
}

// TokenExchanger is the boundary to an external OAuth/OIDC provider.
type TokenExchanger interface {
	AcquireTokenByAuthorizationCode(ctx context.Context, code, redirectURI string, scopes []string) (ExchangeResult, error)
	GetUserProfile(ctx context.Context, accessToken string) (Profile, error)
	ValidateToken(ctx context.Context, token string) (TokenValidation, error)
}

// Stats is a point-in-time view of engine state sizes.
type Stats struct {
	ActiveFamilies   int `json:"activeFamilies"`
	RevokedTokens    int `json:"revokedTokens"`
	ThrottleCounters int `json:"throttleCounters"`
}

func retryAfterSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}
