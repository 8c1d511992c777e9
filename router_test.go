package goAuthGate

import (
	"context"
	"errors"
	"testing"
)

type stubProvider struct {
	kind   ProviderKind
	result AuthResult
	calls  int
}

func (p *stubProvider) Authenticate(context.Context, string, string) AuthResult {
	p.calls++
	return p.result
}

func (p *stubProvider) Supports(kind ProviderKind) bool { return kind == p.kind }

func (p *stubProvider) Logout(context.Context, string) error { return nil }

func TestDomainOf(t *testing.T) {
	cases := map[string]string{
		"a@gmail.com":        "gmail.com",
		"A@GMail.COM":        "gmail.com",
		"weird@name@corp.io": "corp.io",
		"no-at-sign":         "",
		"trailing@":          "",
		"":                   "",
	}
	for in, want := range cases {
		if got := DomainOf(in); got != want {
			t.Fatalf("DomainOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRouterSSODomainRequiresRedirect(t *testing.T) {
	creds := newMemCredentials()
	local := NewLocalProvider(creds, 0, nil)
	sso, err := NewExternalSSOProvider("google", &fakeExchanger{}, DefaultConfig().SSO, nil)
	if err != nil {
		t.Fatalf("new sso provider: %v", err)
	}

	r := NewRouter(local)
	r.RegisterProvider("gmail.com", sso)

	res := r.Authenticate(context.Background(), "a@gmail.com", "pw")
	if res.Success || res.Message != MessageSSORedirectRequired {
		t.Fatalf("expected SSO_REDIRECT_REQUIRED, got %+v", res)
	}
	if creds.calls.Load() != 0 {
		t.Fatalf("sso domain must not reach the credential store")
	}

	res = r.Authenticate(context.Background(), "a@corp.com", "pw")
	if res.Message != MessageInvalidCredentials {
		t.Fatalf("expected local path, got %+v", res)
	}
	if creds.calls.Load() != 1 {
		t.Fatalf("expected one credential store call, got %d", creds.calls.Load())
	}

	res = r.Authenticate(context.Background(), "alice@corp.com", "correct-password-123")
	if !res.Success || res.Principal != "alice@corp.com" {
		t.Fatalf("expected local success, got %+v", res)
	}
}

func TestRouterFallsBackToDefault(t *testing.T) {
	def := &stubProvider{kind: ProviderLocal, result: Succeeded("x", nil)}
	mapped := &stubProvider{kind: ProviderLocal, result: Succeeded("y", nil)}

	r := NewRouter(def)
	r.RegisterProvider("Corp.COM", mapped)

	for _, principal := range []string{"a@corp.com", "A@CORP.com"} {
		r.Authenticate(context.Background(), principal, "pw")
	}
	for _, principal := range []string{"a@other.com", "no-domain", ""} {
		r.Authenticate(context.Background(), principal, "pw")
	}

	if mapped.calls != 2 {
		t.Fatalf("mapped provider calls = %d, want 2", mapped.calls)
	}
	if def.calls != 3 {
		t.Fatalf("default provider calls = %d, want 3", def.calls)
	}
}

func TestRouterRegisterOverwrites(t *testing.T) {
	first := &stubProvider{kind: ProviderLocal}
	second := &stubProvider{kind: ProviderLocal}

	r := NewRouter(nil)
	r.RegisterProvider("corp.com", first)
	r.RegisterProvider("CORP.com", second)
	r.RegisterProvider("CORP.com", second)

	r.Authenticate(context.Background(), "a@corp.com", "pw")
	if first.calls != 0 || second.calls != 1 {
		t.Fatalf("expected only the latest registration to be used, got first=%d second=%d", first.calls, second.calls)
	}

	r.RegisterProvider("corp.com", nil)
	if r.Resolve("a@corp.com") != nil {
		t.Fatalf("expected mapping removed")
	}
}

func TestRouterWithoutProvider(t *testing.T) {
	r := NewRouter(nil)
	res := r.Authenticate(context.Background(), "a@corp.com", "pw")
	if res.Success || res.Message != MessageAuthenticationFailed {
		t.Fatalf("expected AUTHENTICATION_FAILED, got %+v", res)
	}
	if !errors.Is(res.cause, ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider cause, got %v", res.cause)
	}
}

func TestRouterRequiresSSO(t *testing.T) {
	sso, err := NewExternalSSOProvider("google", &fakeExchanger{}, DefaultConfig().SSO, nil)
	if err != nil {
		t.Fatalf("new sso provider: %v", err)
	}
	// Claims SSO support without implementing the SSO entry points.
	pretender := &stubProvider{kind: ProviderExternalSSO}

	r := NewRouter(NewLocalProvider(newMemCredentials(), 0, nil))
	r.RegisterProvider("gmail.com", sso)
	r.RegisterProvider("fake.com", pretender)

	if !r.RequiresSSO("a@GMAIL.com") {
		t.Fatalf("expected gmail.com to require SSO")
	}
	if r.RequiresSSO("a@corp.com") {
		t.Fatalf("expected default local provider to not require SSO")
	}
	if r.RequiresSSO("a@fake.com") {
		t.Fatalf("expected provider without SSO entry points to not require SSO")
	}
	if pretender.calls != 0 {
		t.Fatalf("RequiresSSO must not authenticate")
	}
}
