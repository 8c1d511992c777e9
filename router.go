package goAuthGate

import (
	"context"
	"strings"
	"sync"
)

type route struct {
	provider AuthProvider
	sso      SSOProvider
}

func newRoute(p AuthProvider) route {
	r := route{provider: p}
	if p == nil {
		return r
	}
	if s, ok := p.(SSOProvider); ok && p.Supports(ProviderExternalSSO) {
		r.sso = s
	}
	return r
}

// Router selects an AuthProvider by the identity domain of a principal.
// Capabilities are resolved once at registration. Safe for concurrent use.
type Router struct {
	mu       sync.RWMutex
	byDomain map[string]route
	fallback route
}

// NewRouter returns a Router that sends unknown domains to defaultProvider.
func NewRouter(defaultProvider AuthProvider) *Router {
	return &Router{
		byDomain: make(map[string]route),
		fallback: newRoute(defaultProvider),
	}
}

// DomainOf returns everything after the last '@' in principal, lower-cased.
// A principal without '@' has the empty domain.
func DomainOf(principal string) string {
	at := strings.LastIndexByte(principal, '@')
	if at < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(principal[at+1:]))
}

// RegisterProvider maps domain to p, replacing any previous mapping.
// Domains are case-insensitive. A nil provider removes the mapping.
func (r *Router) RegisterProvider(domain string, p AuthProvider) {
	domain = strings.ToLower(strings.TrimSpace(domain))

	r.mu.Lock()
	defer r.mu.Unlock()
	if p == nil {
		delete(r.byDomain, domain)
		return
	}
	r.byDomain[domain] = newRoute(p)
}

// SetDefault replaces the fallback provider.
func (r *Router) SetDefault(p AuthProvider) {
	r.mu.Lock()
	r.fallback = newRoute(p)
	r.mu.Unlock()
}

func (r *Router) resolve(principal string) route {
	domain := DomainOf(principal)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if rt, ok := r.byDomain[domain]; ok {
		return rt
	}
	return r.fallback
}

// Resolve returns the provider for principal, or nil when neither the
// domain nor a default is configured.
func (r *Router) Resolve(principal string) AuthProvider {
	return r.resolve(principal).provider
}

// Authenticate delegates one attempt to the resolved provider.
func (r *Router) Authenticate(ctx context.Context, principal, secret string) AuthResult {
	p := r.Resolve(principal)
	if p == nil {
		return Failed(MessageAuthenticationFailed, ErrNoProvider)
	}
	return p.Authenticate(ctx, principal, secret)
}

// RequiresSSO reports whether principal resolves to an SSO provider.
func (r *Router) RequiresSSO(principal string) bool {
	return r.resolve(principal).sso != nil
}

// ssoFor returns the SSO provider for principal, if any.
func (r *Router) ssoFor(principal string) (SSOProvider, bool) {
	s := r.resolve(principal).sso
	return s, s != nil
}
