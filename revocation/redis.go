package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces revocation keys.
const DefaultRedisPrefix = "goauthgate:revoked:"

// Redis is a Store shared by every process connected to the same Redis.
type Redis struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedis returns a Redis-backed Store. An empty prefix selects
// DefaultRedisPrefix.
func NewRedis(client redis.UniversalClient, prefix string, now func() time.Time) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &Redis{client: client, prefix: prefix, now: now}
}

func (r *Redis) key(token string) string {
	return r.prefix + Digest(token)
}

// Revoke stores the entry with a millisecond TTL ending at expiresAt.
func (r *Redis) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if token == "" || ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.key(token), 1, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// RevokeMany writes every entry in one pipeline.
func (r *Redis) RevokeMany(ctx context.Context, tokens []string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 || len(tokens) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, t := range tokens {
		if t == "" {
			continue
		}
		pipe.Set(ctx, r.key(t), 1, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// IsRevoked checks key existence; Redis drops expired keys on access.
func (r *Redis) IsRevoked(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return true, nil
	}
	n, err := r.client.Exists(ctx, r.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return n > 0, nil
}

// Len counts keys under the prefix with SCAN.
func (r *Redis) Len(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 512).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}
