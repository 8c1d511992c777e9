package revocation

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

func newRedisStore(t *testing.T) (*Redis, *miniredis.Miniredis, *clock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := newClock()
	return NewRedis(client, "", c.Now), mr, c
}

func TestRedisRevokeAndExpire(t *testing.T) {
	ctx := context.Background()
	s, mr, c := newRedisStore(t)

	require.NoError(t, s.Revoke(ctx, "T", c.t.Add(time.Minute)))
	revoked, err := s.IsRevoked(ctx, "T")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, mr.Exists(DefaultRedisPrefix+Digest("T")))

	mr.FastForward(time.Minute)
	revoked, err = s.IsRevoked(ctx, "T")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisRevokePastIsNoop(t *testing.T) {
	ctx := context.Background()
	s, _, c := newRedisStore(t)

	require.NoError(t, s.Revoke(ctx, "T", c.t.Add(-time.Second)))
	revoked, err := s.IsRevoked(ctx, "T")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisRevokeManyAndLen(t *testing.T) {
	ctx := context.Background()
	s, _, c := newRedisStore(t)

	require.NoError(t, s.RevokeMany(ctx, []string{"a", "b", "c"}, c.t.Add(time.Hour)))
	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	revoked, _ := s.IsRevoked(ctx, "")
	assert.True(t, revoked)
}

func TestRedisUnavailableIsReported(t *testing.T) {
	ctx := context.Background()
	s, mr, c := newRedisStore(t)
	mr.Close()

	err := s.Revoke(ctx, "T", c.t.Add(time.Hour))
	assert.True(t, errors.Is(err, ErrBackendUnavailable))

	_, err = s.IsRevoked(ctx, "T")
	assert.True(t, errors.Is(err, ErrBackendUnavailable))
}
