package throttle

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Config defines the fixed window.
type Config struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
}

// DefaultConfig allows 5 failures per minute.
func DefaultConfig() Config {
	return Config{Enabled: true, MaxAttempts: 5, Window: time.Minute}
}

// Decision is the outcome of Allow.
type Decision struct {
	Allowed bool
	// RetryAfter is how long until every blocking key's window elapses,
	// rounded up to whole seconds. Zero when allowed.
	RetryAfter time.Duration
	// Remaining is the smallest number of failures either key can still
	// absorb in its current window.
	Remaining int
}

// Throttle gates authentication attempts. Safe for concurrent use.
type Throttle struct {
	store Store
	cfg   Config
	now   func() time.Time
}

// New validates cfg and returns a Throttle over store.
func New(store Store, cfg Config, now func() time.Time) (*Throttle, error) {
	if store == nil {
		return nil, errors.New("throttle store is nil")
	}
	if cfg.Enabled && (cfg.MaxAttempts <= 0 || cfg.Window <= 0) {
		return nil, errors.New("throttle requires MaxAttempts > 0 and Window > 0")
	}
	if now == nil {
		now = time.Now
	}
	return &Throttle{store: store, cfg: cfg, now: now}, nil
}

// IPKey namespaces an IP address. Empty input yields the empty key.
func IPKey(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}
	return "ip:" + ip
}

// PrincipalKey namespaces and case-folds a principal.
func PrincipalKey(principal string) string {
	principal = strings.ToLower(strings.TrimSpace(principal))
	if principal == "" {
		return ""
	}
	return "principal:" + principal
}

// IsAllowed reports whether key has failures left in its window.
func (t *Throttle) IsAllowed(ctx context.Context, key string) (bool, error) {
	if !t.cfg.Enabled || key == "" {
		return true, nil
	}
	c, ok, err := t.store.Current(ctx, key, t.now(), t.cfg.Window)
	if err != nil {
		return false, err
	}
	return !ok || c.Count < t.cfg.MaxAttempts, nil
}

// Allow applies the AND gate over the IP and principal keys.
func (t *Throttle) Allow(ctx context.Context, ip, principal string) (Decision, error) {
	if !t.cfg.Enabled {
		return Decision{Allowed: true, Remaining: t.cfg.MaxAttempts}, nil
	}

	now := t.now()
	d := Decision{Allowed: true, Remaining: t.cfg.MaxAttempts}
	for _, key := range []string{IPKey(ip), PrincipalKey(principal)} {
		if key == "" {
			continue
		}
		c, ok, err := t.store.Current(ctx, key, now, t.cfg.Window)
		if err != nil {
			return Decision{Allowed: false}, err
		}
		if !ok {
			continue
		}
		if left := t.cfg.MaxAttempts - c.Count; left < d.Remaining {
			d.Remaining = max(left, 0)
		}
		if c.Count >= t.cfg.MaxAttempts {
			d.Allowed = false
			if wait := t.retryAfter(c, now); wait > d.RetryAfter {
				d.RetryAfter = wait
			}
		}
	}
	return d, nil
}

// RetryAfter returns how long the actor must wait before Allow succeeds
// again. Zero when the actor is not blocked.
func (t *Throttle) RetryAfter(ctx context.Context, ip, principal string) (time.Duration, error) {
	d, err := t.Allow(ctx, ip, principal)
	if err != nil {
		return 0, err
	}
	return d.RetryAfter, nil
}

// RecordFailure counts one failure against key.
func (t *Throttle) RecordFailure(ctx context.Context, key string) error {
	if !t.cfg.Enabled || key == "" {
		return nil
	}
	_, err := t.store.Increment(ctx, key, t.now(), t.cfg.Window)
	return err
}

// RecordFailures counts one failure against both the IP and principal keys.
func (t *Throttle) RecordFailures(ctx context.Context, ip, principal string) error {
	return errors.Join(
		t.RecordFailure(ctx, IPKey(ip)),
		t.RecordFailure(ctx, PrincipalKey(principal)),
	)
}

// Reset removes the counter for key.
func (t *Throttle) Reset(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return t.store.Reset(ctx, key)
}

// ResetActor removes both counters after a successful authentication.
func (t *Throttle) ResetActor(ctx context.Context, ip, principal string) error {
	keys := make([]string, 0, 2)
	for _, k := range []string{IPKey(ip), PrincipalKey(principal)} {
		if k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return t.store.Reset(ctx, keys...)
}

// Remaining returns how many more failures key can absorb in its window.
func (t *Throttle) Remaining(ctx context.Context, key string) (int, error) {
	if !t.cfg.Enabled || key == "" {
		return t.cfg.MaxAttempts, nil
	}
	c, ok, err := t.store.Current(ctx, key, t.now(), t.cfg.Window)
	if err != nil {
		return 0, err
	}
	if !ok {
		return t.cfg.MaxAttempts, nil
	}
	return max(t.cfg.MaxAttempts-c.Count, 0), nil
}

// Len returns the number of live counters.
func (t *Throttle) Len(ctx context.Context) (int, error) {
	return t.store.Len(ctx)
}

// Sweep removes elapsed counters from stores that need it.
func (t *Throttle) Sweep(now time.Time) int {
	s, ok := t.store.(interface {
		SweepExpired(now time.Time, window time.Duration) int
	})
	if !ok {
		return 0
	}
	return s.SweepExpired(now, t.cfg.Window)
}

// retryAfter is the time until now - windowStart exceeds the window.
func (t *Throttle) retryAfter(c Counter, now time.Time) time.Duration {
	wait := c.WindowStart.Add(t.cfg.Window).Sub(now) + time.Nanosecond
	if wait <= 0 {
		return 0
	}
	secs := (wait + time.Second - 1) / time.Second
	return secs * time.Second
}
