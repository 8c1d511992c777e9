package goAuthGate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var errEmptyProfile = fmt.Errorf("%w: identity provider returned no subject", ErrInvalidCredentials)

// ExternalSSOProvider delegates authentication to an external identity
// provider through a TokenExchanger.
//
// Password authentication always fails with SSO_REDIRECT_REQUIRED.
// Exchanger calls run behind a circuit breaker and are bounded by
// SSOConfig.CallTimeout; breaker rejections, exchanger errors and panics
// yield AUTHENTICATION_FAILED.
type ExternalSSOProvider struct {
	name      string
	exchanger TokenExchanger
	scopes    []string
	timeout   time.Duration
	breaker   *gobreaker.CircuitBreaker
	logger    *zap.Logger
}

// NewExternalSSOProvider returns a provider named name over exchanger.
func NewExternalSSOProvider(name string, exchanger TokenExchanger, cfg SSOConfig, logger *zap.Logger) (*ExternalSSOProvider, error) {
	if exchanger == nil {
		return nil, errors.New("sso provider requires a token exchanger")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "sso"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &ExternalSSOProvider{
		name:      name,
		exchanger: exchanger,
		scopes:    slices.Clone(cfg.Scopes),
		timeout:   cfg.CallTimeout,
		logger:    logger.Named("sso").With(zap.String("provider", name)),
	}

	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			p.logger.Warn("sso circuit breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return p, nil
}

// Name returns the provider name.
func (p *ExternalSSOProvider) Name() string { return p.name }

// BreakerState returns the current circuit breaker state.
func (p *ExternalSSOProvider) BreakerState() gobreaker.State {
	return p.breaker.State()
}

// Supports reports ProviderExternalSSO only.
func (p *ExternalSSOProvider) Supports(kind ProviderKind) bool {
	return kind == ProviderExternalSSO
}

// Authenticate never checks secret.
func (p *ExternalSSOProvider) Authenticate(context.Context, string, string) AuthResult {
	return Failed(MessageSSORedirectRequired, ErrSSORedirectRequired)
}

// AuthenticateWithAuthorizationCode exchanges an OAuth authorization code
// and maps the resulting profile into an AuthResult.
func (p *ExternalSSOProvider) AuthenticateWithAuthorizationCode(ctx context.Context, code, redirectURI string) AuthResult {
	if strings.TrimSpace(code) == "" {
		return Failed(MessageAuthenticationFailed, ErrInvalidCredentials)
	}

	exchanged, err := call(ctx, p, "acquire_token", func(ctx context.Context) (ExchangeResult, error) {
		return p.exchanger.AcquireTokenByAuthorizationCode(ctx, code, redirectURI, p.scopes)
	})
	if err != nil {
		return p.failed(err)
	}

	profile := exchanged.Profile
	if profile == nil {
		fetched, err := p.fetchProfile(ctx, exchanged.AccessToken)
		if err != nil {
			return p.failed(err)
		}
		profile = &fetched
	}
	return resultFromProfile(profile)
}

// ValidateExternalToken accepts a token already issued by the identity
// provider.
func (p *ExternalSSOProvider) ValidateExternalToken(ctx context.Context, token string) AuthResult {
	if strings.TrimSpace(token) == "" {
		return Failed(MessageAuthenticationFailed, ErrInvalidCredentials)
	}

	v, err := call(ctx, p, "validate_token", func(ctx context.Context) (TokenValidation, error) {
		return p.exchanger.ValidateToken(ctx, token)
	})
	if err != nil {
		return p.failed(err)
	}
	if !v.Valid {
		return Failed(MessageAuthenticationFailed, fmt.Errorf("%w: %s", ErrInvalidCredentials, v.Message))
	}

	profile := v.Profile
	if profile == nil {
		fetched, err := p.fetchProfile(ctx, token)
		if err != nil {
			return p.failed(err)
		}
		profile = &fetched
	}
	return resultFromProfile(profile)
}

// Logout is a no-op. Token revocation is handled by the Engine.
func (p *ExternalSSOProvider) Logout(context.Context, string) error {
	return nil
}

func (p *ExternalSSOProvider) fetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	return call(ctx, p, "get_profile", func(ctx context.Context) (Profile, error) {
		return p.exchanger.GetUserProfile(ctx, accessToken)
	})
}

func (p *ExternalSSOProvider) failed(err error) AuthResult {
	return Failed(MessageAuthenticationFailed, fmt.Errorf("%w: %w", ErrProviderUnavailable, err))
}

// call runs fn behind the breaker with the provider timeout. Panics count
// as breaker failures and are returned as errors.
func call[T any](ctx context.Context, p *ExternalSSOProvider, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	out, err := p.breaker.Execute(func() (res interface{}, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				res, err = nil, fmt.Errorf("token exchanger panic: %v", rec)
			}
		}()
		return fn(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			p.logger.Warn("sso call rejected by circuit breaker", zap.String("op", op))
		} else {
			p.logger.Warn("sso call failed", zap.String("op", op), zap.Error(err))
		}
		return zero, err
	}
	v, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("sso %s: unexpected result %T", op, out)
	}
	return v, nil
}

func resultFromProfile(profile *Profile) AuthResult {
	principal := strings.TrimSpace(profile.Email)
	if principal == "" {
		principal = strings.TrimSpace(profile.Subject)
	}
	if principal == "" {
		return Failed(MessageAuthenticationFailed, errEmptyProfile)
	}
	return Succeeded(principal, profile.Roles)
}
