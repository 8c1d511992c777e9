package goAuthGate

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/goAuthGate/jwt"
)

// Config is the full engine configuration. Start from DefaultConfig and
// override fields, or load YAML with LoadConfig.
type Config struct {
	JWT        JWTConfig        `yaml:"jwt"`
	Throttle   ThrottleConfig   `yaml:"throttle"`
	Revocation RevocationConfig `yaml:"revocation"`
	Lineage    LineageConfig    `yaml:"lineage"`
	Local      LocalConfig      `yaml:"local"`
	SSO        SSOConfig        `yaml:"sso"`
	Audit      AuditConfig      `yaml:"audit"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures token signing.
//
// With SigningMethod "hs256" (default) Secret is the shared key. With
// "ed25519" PrivateKey and PublicKey hold raw or PEM keys.
type JWTConfig struct {
	AccessTTL     time.Duration `yaml:"access_ttl"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl"`
	SigningMethod string        `yaml:"signing_method"`
	Secret        string        `yaml:"secret"`
	PrivateKey    []byte        `yaml:"-"`
	PublicKey     []byte        `yaml:"-"`
	KeyID         string        `yaml:"key_id"`
	Issuer        string        `yaml:"issuer"`
	Audience      string        `yaml:"audience"`
	// Leeway is the clock-skew tolerance applied to exp. Zero means strict.
	Leeway time.Duration `yaml:"leeway"`
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig configures the fixed-window attempt throttle.
type ThrottleConfig struct {
	Enabled       bool          `yaml:"enabled"`
	MaxAttempts   int           `yaml:"max_attempts"`
	Window        time.Duration `yaml:"window"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	RedisPrefix   string        `yaml:"redis_prefix"`
}

/*
====================================
REVOCATION / LINEAGE CONFIG
====================================
*/

// RevocationConfig configures the revocation store.
type RevocationConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	RedisPrefix   string        `yaml:"redis_prefix"`
}

// LineageConfig configures refresh families.
type LineageConfig struct {
	HistorySize   int           `yaml:"history_size"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

/*
====================================
PROVIDER CONFIG
====================================
*/

// LocalConfig bounds credential-store calls.
type LocalConfig struct {
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// SSOConfig configures external SSO providers registered with
// Builder.WithSSOProvider.
type SSOConfig struct {
	// EnabledDomains are routed to the SSO provider.
	EnabledDomains     []string      `yaml:"enabled_domains"`
	Scopes             []string      `yaml:"scopes"`
	CallTimeout        time.Duration `yaml:"call_timeout"`
	BreakerMaxFailures uint32        `yaml:"breaker_max_failures"`
	BreakerOpenTimeout time.Duration `yaml:"breaker_open_timeout"`
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// DefaultConfig returns production defaults. JWT.Secret must still be set.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: string(jwt.MethodHS256),
			Issuer:        "goauthgate",
		},
		Throttle: ThrottleConfig{
			Enabled:       true,
			MaxAttempts:   5,
			Window:        time.Minute,
			SweepInterval: 5 * time.Minute,
		},
		Revocation: RevocationConfig{
			SweepInterval: time.Hour,
		},
		Lineage: LineageConfig{
			HistorySize:   10,
			SweepInterval: time.Hour,
		},
		Local: LocalConfig{
			CallTimeout: 5 * time.Second,
		},
		SSO: SSOConfig{
			Scopes:             []string{"openid", "profile", "email"},
			CallTimeout:        10 * time.Second,
			BreakerMaxFailures: 5,
			BreakerOpenTimeout: 30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// LoadConfig reads a YAML file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over DefaultConfig. Durations use Go syntax
// ("15m", "168h").
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.SSO.EnabledDomains = slices.Clone(cfg.SSO.EnabledDomains)
	out.SSO.Scopes = slices.Clone(cfg.SSO.Scopes)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	switch jwt.SigningMethod(strings.ToLower(c.JWT.SigningMethod)) {
	case jwt.MethodHS256, "":
		if len(c.JWT.Secret) < jwt.MinSecretBytes {
			return fmt.Errorf("JWT Secret must be at least %d bytes", jwt.MinSecretBytes)
		}
	case jwt.MethodEd25519:
		if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PrivateKey and PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}

	// Throttle
	if c.Throttle.Enabled {
		if c.Throttle.MaxAttempts <= 0 {
			return errors.New("Throttle MaxAttempts must be > 0")
		}
		if c.Throttle.Window <= 0 {
			return errors.New("Throttle Window must be > 0")
		}
	}
	if c.Throttle.SweepInterval < 0 || c.Revocation.SweepInterval < 0 || c.Lineage.SweepInterval < 0 {
		return errors.New("sweep intervals must be >= 0")
	}

	// Lineage
	if c.Lineage.HistorySize <= 0 {
		return errors.New("Lineage HistorySize must be > 0")
	}

	// Providers
	if c.Local.CallTimeout < 0 || c.SSO.CallTimeout < 0 {
		return errors.New("provider CallTimeout must be >= 0")
	}
	if c.SSO.BreakerOpenTimeout < 0 {
		return errors.New("SSO BreakerOpenTimeout must be >= 0")
	}
	for _, d := range c.SSO.EnabledDomains {
		if strings.TrimSpace(d) == "" {
			return errors.New("SSO EnabledDomains contains an empty domain")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
