package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces counter keys.
const DefaultRedisPrefix = "goauthgate:attempts:"

// RedisStore keeps counters in Redis so every process shares one budget.
//
// The window is enforced by key expiry: the first failure sets a PEXPIRE of
// Window, so the counter disappears when the window elapses.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore returns a Store backed by client.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Current implements Store. WindowStart is derived from the remaining TTL.
func (s *RedisStore) Current(ctx context.Context, key string, now time.Time, window time.Duration) (Counter, bool, error) {
	pipe := s.client.Pipeline()
	getCmd := pipe.Get(ctx, s.prefix+key)
	ttlCmd := pipe.PTTL(ctx, s.prefix+key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Counter{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	count, err := getCmd.Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Counter{}, false, nil
		}
		return Counter{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	ttl := ttlCmd.Val()
	if ttl < 0 {
		// Key lost its expiry; restart the window from now.
		ttl = window
		if err := s.client.PExpire(ctx, s.prefix+key, window).Err(); err != nil {
			return Counter{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return Counter{Count: count, WindowStart: now.Add(ttl - window)}, true, nil
}

// Increment implements Store.
func (s *RedisStore) Increment(ctx context.Context, key string, now time.Time, window time.Duration) (Counter, error) {
	count, err := s.client.Incr(ctx, s.prefix+key).Result()
	if err != nil {
		return Counter{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := s.client.PExpire(ctx, s.prefix+key, window).Err(); err != nil {
			return Counter{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return Counter{Count: 1, WindowStart: now}, nil
	}

	ttl, err := s.client.PTTL(ctx, s.prefix+key).Result()
	if err != nil {
		return Counter{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if ttl < 0 {
		ttl = window
	}
	return Counter{Count: int(count), WindowStart: now.Add(ttl - window)}, nil
}

// Reset implements Store.
func (s *RedisStore) Reset(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Len counts live counters with SCAN.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 512).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}
