package goAuthGate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// LocalProvider authenticates against a CredentialStore.
//
// Every failure, including store errors and panics, yields the same
// ERROR_INVALID_CREDENTIALS result so callers cannot tell unknown
// principals from wrong secrets. The underlying cause is only visible to
// the audit path.
type LocalProvider struct {
	store   CredentialStore
	roles   RoleSource
	timeout time.Duration
	logger  *zap.Logger
}

// NewLocalProvider wraps store. If store also implements RoleSource its
// roles are attached to successful results. A positive timeout bounds each
// store call.
func NewLocalProvider(store CredentialStore, timeout time.Duration, logger *zap.Logger) *LocalProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &LocalProvider{
		store:   store,
		timeout: timeout,
		logger:  logger.Named("local"),
	}
	if rs, ok := store.(RoleSource); ok {
		p.roles = rs
	}
	return p
}

// Supports reports ProviderLocal only.
func (p *LocalProvider) Supports(kind ProviderKind) bool {
	return kind == ProviderLocal
}

// Authenticate checks secret for principal.
func (p *LocalProvider) Authenticate(ctx context.Context, principal, secret string) AuthResult {
	if p == nil || p.store == nil {
		return Failed(MessageInvalidCredentials, ErrNoProvider)
	}
	if principal == "" || secret == "" {
		return Failed(MessageInvalidCredentials, ErrInvalidCredentials)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	ok, err := p.check(ctx, principal, secret)
	if err != nil {
		p.logger.Warn("credential store failed", zap.Error(err))
		return Failed(MessageInvalidCredentials, fmt.Errorf("%w: %w", ErrProviderUnavailable, err))
	}
	if !ok {
		return Failed(MessageInvalidCredentials, ErrInvalidCredentials)
	}

	var roles []string
	if p.roles != nil {
		roles, err = p.lookupRoles(ctx, principal)
		if err != nil {
			p.logger.Warn("role lookup failed", zap.Error(err))
			return Failed(MessageInvalidCredentials, fmt.Errorf("%w: %w", ErrProviderUnavailable, err))
		}
	}
	return Succeeded(principal, roles)
}

func (p *LocalProvider) check(ctx context.Context, principal, secret string) (ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ok, err = false, fmt.Errorf("credential store panic: %v", rec)
		}
	}()
	return p.store.Authenticate(ctx, principal, secret)
}

func (p *LocalProvider) lookupRoles(ctx context.Context, principal string) (roles []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			roles, err = nil, fmt.Errorf("role source panic: %v", rec)
		}
	}()
	return p.roles.Roles(ctx, principal)
}

// Logout is a no-op. Token revocation is handled by the Engine.
func (p *LocalProvider) Logout(context.Context, string) error {
	return nil
}
