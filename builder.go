package goAuthGate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	internalaudit "github.com/MrEthical07/goAuthGate/internal/audit"
	"github.com/MrEthical07/goAuthGate/internal/sweep"
	"github.com/MrEthical07/goAuthGate/jwt"
	"github.com/MrEthical07/goAuthGate/lineage"
	"github.com/MrEthical07/goAuthGate/revocation"
	"github.com/MrEthical07/goAuthGate/throttle"
)

type namedProvider struct {
	domain   string
	provider AuthProvider
}

type ssoRegistration struct {
	name      string
	exchanger TokenExchanger
}

// Builder assembles an Engine. A Builder can build exactly once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	logger *zap.Logger
	now    func() time.Time

	credentials     CredentialStore
	defaultProvider AuthProvider
	providers       []namedProvider
	sso             []ssoRegistration
	auditSink       AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis stores revocations and attempt counters in Redis so several
// processes share them. Refresh lineages stay in process.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the operational logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for every component.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithCredentialStore installs a LocalProvider over store as the default
// provider.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.credentials = store
	return b
}

// WithDefaultProvider sets the provider for domains without a mapping. It
// takes precedence over WithCredentialStore.
func (b *Builder) WithDefaultProvider(p AuthProvider) *Builder {
	b.defaultProvider = p
	return b
}

// WithProvider routes domain to p.
func (b *Builder) WithProvider(domain string, p AuthProvider) *Builder {
	b.providers = append(b.providers, namedProvider{domain: domain, provider: p})
	return b
}

// WithSSOProvider registers an ExternalSSOProvider over exchanger for each
// of Config.SSO.EnabledDomains.
func (b *Builder) WithSSOProvider(name string, exchanger TokenExchanger) *Builder {
	b.sso = append(b.sso, ssoRegistration{name: name, exchanger: exchanger})
	return b
}

// WithAuditSink sets the audit destination. Auditing must also be enabled
// in Config.Audit.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and starts the engine's background
// sweeps.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.defaultProvider == nil && b.credentials == nil && len(b.providers) == 0 && len(b.sso) == 0 {
		return nil, errors.New("at least one authentication provider is required")
	}
	if len(b.sso) > 0 && len(cfg.SSO.EnabledDomains) == 0 {
		return nil, errors.New("SSO provider registered without SSO EnabledDomains")
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- TOKEN ISSUER --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(strings.ToLower(cfg.JWT.SigningMethod)),
		PrivateKey:    signingKey(cfg.JWT),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	// -------- STATE STORES --------
	var (
		revStore      revocation.Store
		throttleStore throttle.Store
	)
	if b.redis != nil {
		revStore = revocation.NewRedis(b.redis, cfg.Revocation.RedisPrefix, now)
		throttleStore = throttle.NewRedisStore(b.redis, cfg.Throttle.RedisPrefix)
	} else {
		revStore = revocation.NewMemory(now)
		throttleStore = throttle.NewMemoryStore()
	}

	th, err := throttle.New(throttleStore, throttle.Config{
		Enabled:     cfg.Throttle.Enabled,
		MaxAttempts: cfg.Throttle.MaxAttempts,
		Window:      cfg.Throttle.Window,
	}, now)
	if err != nil {
		return nil, err
	}

	tracker, err := lineage.NewTracker(jm, revStore, lineage.Config{
		HistorySize: cfg.Lineage.HistorySize,
		Now:         now,
		Logger:      logger.Named("lineage"),
	})
	if err != nil {
		return nil, err
	}

	// -------- PROVIDERS --------
	fallback := b.defaultProvider
	if fallback == nil && b.credentials != nil {
		fallback = NewLocalProvider(b.credentials, cfg.Local.CallTimeout, logger)
	}
	router := NewRouter(fallback)
	for _, np := range b.providers {
		router.RegisterProvider(np.domain, np.provider)
	}
	for _, reg := range b.sso {
		p, err := NewExternalSSOProvider(reg.name, reg.exchanger, cfg.SSO, logger)
		if err != nil {
			return nil, fmt.Errorf("sso provider %q: %w", reg.name, err)
		}
		for _, domain := range cfg.SSO.EnabledDomains {
			router.RegisterProvider(domain, p)
		}
	}

	engine := &Engine{
		config:     cfg,
		router:     router,
		jwtManager: jm,
		tracker:    tracker,
		revocation: revStore,
		throttle:   th,
		metrics:    NewMetrics(cfg.Metrics),
		logger:     logger,
		now:        now,

		sharedState: b.redis != nil,
		ssoEnabled:  len(b.sso) > 0,
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink, logger.Named("audit"))

	// -------- SWEEPS --------
	if s, ok := revStore.(revocation.Sweeper); ok {
		engine.sweepers = append(engine.sweepers,
			sweep.Start("revocation", cfg.Revocation.SweepInterval, s.Sweep, now, logger))
	}
	if b.redis == nil {
		engine.sweepers = append(engine.sweepers,
			sweep.Start("throttle", cfg.Throttle.SweepInterval, th.Sweep, now, logger))
	}
	engine.sweepers = append(engine.sweepers,
		sweep.Start("lineage", cfg.Lineage.SweepInterval, tracker.Sweep, now, logger))

	b.built = true

	return engine, nil
}

func signingKey(cfg JWTConfig) []byte {
	if jwt.SigningMethod(strings.ToLower(cfg.SigningMethod)) == jwt.MethodEd25519 {
		return cloneBytes(cfg.PrivateKey)
	}
	return []byte(cfg.Secret)
}
