package throttle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisThrottle(t *testing.T, maxAttempts int) (*Throttle, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	th, err := New(NewRedisStore(client, ""), Config{Enabled: true, MaxAttempts: maxAttempts, Window: time.Minute}, nil)
	require.NoError(t, err)
	return th, mr
}

func TestRedisStoreBlocksAndExpires(t *testing.T) {
	ctx := context.Background()
	th, mr := newRedisThrottle(t, 2)

	require.NoError(t, th.RecordFailures(ctx, "1.2.3.4", "A@x.com"))
	require.NoError(t, th.RecordFailures(ctx, "1.2.3.4", "a@x.com"))

	d, err := th.Allow(ctx, "1.2.3.4", "a@x.com")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Minute+time.Second)

	ttl := mr.TTL(DefaultRedisPrefix + PrincipalKey("a@x.com"))
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(time.Minute + time.Millisecond)
	d, err = th.Allow(ctx, "1.2.3.4", "a@x.com")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisStoreReset(t *testing.T) {
	ctx := context.Background()
	th, _ := newRedisThrottle(t, 1)

	require.NoError(t, th.RecordFailures(ctx, "1.2.3.4", "a@x.com"))
	n, err := th.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, th.ResetActor(ctx, "1.2.3.4", "a@x.com"))
	n, _ = th.Len(ctx)
	assert.Equal(t, 0, n)
}

func TestRedisStoreFailsClosed(t *testing.T) {
	ctx := context.Background()
	th, mr := newRedisThrottle(t, 1)
	mr.Close()

	d, err := th.Allow(ctx, "1.2.3.4", "a@x.com")
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.False(t, d.Allowed)
}
