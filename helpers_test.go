package goAuthGate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef-test"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memCredentials struct {
	users map[string]string
	roles map[string][]string
	calls atomic.Int64
	err   error
	panic bool
}

func newMemCredentials() *memCredentials {
	return &memCredentials{
		users: map[string]string{
			"alice@corp.com": "correct-password-123",
			"bob@corp.com":   "hunter2-hunter2",
		},
		roles: map[string][]string{
			"alice@corp.com": {"admin", "user", "admin"},
		},
	}
}

func (s *memCredentials) Authenticate(_ context.Context, principal, secret string) (bool, error) {
	s.calls.Add(1)
	if s.panic {
		panic("credential store exploded")
	}
	if s.err != nil {
		return false, s.err
	}
	want, ok := s.users[strings.ToLower(principal)]
	return ok && want == secret, nil
}

func (s *memCredentials) Roles(_ context.Context, principal string) ([]string, error) {
	return s.roles[strings.ToLower(principal)], nil
}

type fakeExchanger struct {
	mu          sync.Mutex
	profile     *Profile
	withProfile bool
	err         error
	panic       bool
	valid       bool
	calls       int
	scopes      []string
}

func (f *fakeExchanger) AcquireTokenByAuthorizationCode(_ context.Context, code, _ string, scopes []string) (ExchangeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.scopes = scopes
	if f.panic {
		panic("exchanger exploded")
	}
	if f.err != nil {
		return ExchangeResult{}, f.err
	}
	res := ExchangeResult{AccessToken: "idp-token-" + code}
	if f.withProfile {
		res.Profile = f.profile
	}
	return res, nil
}

func (f *fakeExchanger) GetUserProfile(_ context.Context, accessToken string) (Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return Profile{}, f.err
	}
	if f.profile == nil {
		return Profile{}, errors.New("no profile")
	}
	return *f.profile, nil
}

func (f *fakeExchanger) ValidateToken(_ context.Context, token string) (TokenValidation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return TokenValidation{}, f.err
	}
	if !f.valid {
		return TokenValidation{Valid: false, Message: "token expired"}, nil
	}
	return TokenValidation{Valid: true, Profile: f.profile}, nil
}

func (f *fakeExchanger) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.Throttle.MaxAttempts = 3
	cfg.Throttle.Window = time.Minute
	cfg.Throttle.SweepInterval = 0
	cfg.Revocation.SweepInterval = 0
	cfg.Lineage.SweepInterval = 0
	cfg.SSO.EnabledDomains = []string{"gmail.com"}
	return cfg
}

type testEngine struct {
	*Engine
	clock     *testClock
	creds     *memCredentials
	exchanger *fakeExchanger
}

func newTestEngine(t testing.TB, cfg Config, configure ...func(*Builder)) *testEngine {
	t.Helper()

	clock := newTestClock()
	creds := newMemCredentials()
	exchanger := &fakeExchanger{
		profile: &Profile{Subject: "g-123", Email: "carol@gmail.com", Roles: []string{"user"}},
		valid:   true,
	}

	b := New().
		WithConfig(cfg).
		WithClock(clock.Now).
		WithCredentialStore(creds).
		WithSSOProvider("google", exchanger)
	for _, fn := range configure {
		fn(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEngine{Engine: engine, clock: clock, creds: creds, exchanger: exchanger}
}

func withIP(ip string) context.Context {
	return WithClientIP(context.Background(), ip)
}
