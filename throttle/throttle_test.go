package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newThrottle(t *testing.T, store Store, maxAttempts int, window time.Duration) (*Throttle, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	th, err := New(store, Config{Enabled: true, MaxAttempts: maxAttempts, Window: window}, c.Now)
	require.NoError(t, err)
	return th, c
}

func TestScenarioThreeFailuresBlockUntilWindowElapses(t *testing.T) {
	ctx := context.Background()
	th, c := newThrottle(t, NewMemoryStore(), 3, 60*time.Second)

	for i := 0; i < 3; i++ {
		d, err := th.Allow(ctx, "1.2.3.4", "a@x.com")
		require.NoError(t, err)
		require.True(t, d.Allowed, "attempt %d", i+1)
		require.NoError(t, th.RecordFailures(ctx, "1.2.3.4", "a@x.com"))
	}

	d, err := th.Allow(ctx, "1.2.3.4", "a@x.com")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 61*time.Second, d.RetryAfter)

	c.t = c.t.Add(60 * time.Second)
	d, _ = th.Allow(ctx, "1.2.3.4", "a@x.com")
	assert.False(t, d.Allowed, "window has not been exceeded at exactly its length")

	c.t = c.t.Add(time.Millisecond)
	d, err = th.Allow(ctx, "1.2.3.4", "a@x.com")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 3, d.Remaining)
}

func TestIsAllowedBelowAndAtLimit(t *testing.T) {
	ctx := context.Background()
	th, _ := newThrottle(t, NewMemoryStore(), 2, time.Minute)
	key := IPKey("10.0.0.1")

	ok, err := th.IsAllowed(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, th.RecordFailure(ctx, key))
	ok, _ = th.IsAllowed(ctx, key)
	assert.True(t, ok)
	remaining, _ := th.Remaining(ctx, key)
	assert.Equal(t, 1, remaining)

	require.NoError(t, th.RecordFailure(ctx, key))
	ok, _ = th.IsAllowed(ctx, key)
	assert.False(t, ok)
}

func TestAllowUsesAndSemantics(t *testing.T) {
	ctx := context.Background()
	th, _ := newThrottle(t, NewMemoryStore(), 2, time.Minute)

	for i := 0; i < 2; i++ {
		require.NoError(t, th.RecordFailure(ctx, IPKey("9.9.9.9")))
	}
	d, _ := th.Allow(ctx, "9.9.9.9", "fresh@x.com")
	assert.False(t, d.Allowed, "noisy ip blocks any principal")

	for i := 0; i < 2; i++ {
		require.NoError(t, th.RecordFailure(ctx, PrincipalKey("victim@x.com")))
	}
	d, _ = th.Allow(ctx, "8.8.8.8", "victim@x.com")
	assert.False(t, d.Allowed, "targeted principal is blocked from any ip")

	d, _ = th.Allow(ctx, "8.8.8.8", "other@x.com")
	assert.True(t, d.Allowed)
}

func TestPrincipalKeysAreCaseFolded(t *testing.T) {
	ctx := context.Background()
	th, _ := newThrottle(t, NewMemoryStore(), 1, time.Minute)

	require.NoError(t, th.RecordFailures(ctx, "", "Alice@Example.COM"))
	d, _ := th.Allow(ctx, "", "alice@example.com")
	assert.False(t, d.Allowed)
}

func TestEmptyKeysBypassThrottle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	th, _ := newThrottle(t, store, 1, time.Minute)

	for i := 0; i < 5; i++ {
		require.NoError(t, th.RecordFailures(ctx, "", ""))
	}
	d, err := th.Allow(ctx, "", "")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	n, _ := store.Len(ctx)
	assert.Equal(t, 0, n)
}

func TestResetActorClearsBothKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	th, _ := newThrottle(t, store, 1, time.Minute)

	require.NoError(t, th.RecordFailures(ctx, "1.1.1.1", "u@x.com"))
	d, _ := th.Allow(ctx, "1.1.1.1", "u@x.com")
	require.False(t, d.Allowed)

	require.NoError(t, th.ResetActor(ctx, "1.1.1.1", "u@x.com"))
	d, _ = th.Allow(ctx, "1.1.1.1", "u@x.com")
	assert.True(t, d.Allowed)
	n, _ := store.Len(ctx)
	assert.Equal(t, 0, n)
}

func TestRecordFailureAfterElapsedWindowStartsFresh(t *testing.T) {
	ctx := context.Background()
	th, c := newThrottle(t, NewMemoryStore(), 2, time.Minute)
	key := PrincipalKey("u@x.com")

	require.NoError(t, th.RecordFailure(ctx, key))
	require.NoError(t, th.RecordFailure(ctx, key))
	c.t = c.t.Add(2 * time.Minute)
	require.NoError(t, th.RecordFailure(ctx, key))

	ok, _ := th.IsAllowed(ctx, key)
	assert.True(t, ok)
	remaining, _ := th.Remaining(ctx, key)
	assert.Equal(t, 1, remaining)
}

func TestDisabledThrottleAlwaysAllows(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	th, err := New(store, Config{Enabled: false}, nil)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, th.RecordFailures(ctx, "1.1.1.1", "u@x.com"))
	}
	d, _ := th.Allow(ctx, "1.1.1.1", "u@x.com")
	assert.True(t, d.Allowed)
	n, _ := store.Len(ctx)
	assert.Equal(t, 0, n)
}

func TestSweepDropsElapsedCounters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	th, c := newThrottle(t, store, 3, time.Minute)

	require.NoError(t, th.RecordFailure(ctx, "old"))
	c.t = c.t.Add(50 * time.Second)
	require.NoError(t, th.RecordFailure(ctx, "new"))
	c.t = c.t.Add(20 * time.Second)

	assert.Equal(t, 1, th.Sweep(c.Now()))
	n, _ := th.Len(ctx)
	assert.Equal(t, 1, n)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(NewMemoryStore(), Config{Enabled: true, MaxAttempts: 0, Window: time.Minute}, nil)
	assert.Error(t, err)
	_, err = New(nil, DefaultConfig(), nil)
	assert.Error(t, err)
}
