package revocation

import (
	"context"
	"time"

	"github.com/MrEthical07/goAuthGate/internal/shardmap"
)

// Memory is a process-local Store.
type Memory struct {
	entries *shardmap.Map[time.Time]
	now     func() time.Time
}

// NewMemory returns an empty Memory store. now may be nil.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		entries: shardmap.New[time.Time](shardmap.DefaultShards),
		now:     now,
	}
}

// Revoke records token until expiresAt. A later expiry extends an existing
// entry; an earlier one never shortens it.
func (m *Memory) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	if token == "" || !expiresAt.After(m.now()) {
		return nil
	}
	m.entries.Compute(Digest(token), func(cur time.Time, ok bool) (time.Time, bool) {
		if ok && cur.After(expiresAt) {
			return cur, true
		}
		return expiresAt, true
	})
	return nil
}

// RevokeMany revokes every token with the same expiry.
func (m *Memory) RevokeMany(ctx context.Context, tokens []string, expiresAt time.Time) error {
	for _, t := range tokens {
		if err := m.Revoke(ctx, t, expiresAt); err != nil {
			return err
		}
	}
	return nil
}

// IsRevoked reports whether token has an unexpired entry.
func (m *Memory) IsRevoked(_ context.Context, token string) (bool, error) {
	if token == "" {
		return true, nil
	}
	expiresAt, ok := m.entries.Get(Digest(token))
	if !ok {
		return false, nil
	}
	return m.now().Before(expiresAt), nil
}

// Sweep removes entries whose expiry is at or before now.
func (m *Memory) Sweep(now time.Time) int {
	return m.entries.DeleteIf(func(_ string, expiresAt time.Time) bool {
		return !now.Before(expiresAt)
	})
}

// Len returns the number of stored entries, including expired ones not yet
// swept.
func (m *Memory) Len(context.Context) (int, error) {
	return m.entries.Len(), nil
}
