package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrBackendUnavailable wraps failures of a remote backend.
var ErrBackendUnavailable = errors.New("revocation backend unavailable")

// Store records revoked tokens until their expiry.
type Store interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	RevokeMany(ctx context.Context, tokens []string, expiresAt time.Time) error
	// IsRevoked reports true for the empty token.
	IsRevoked(ctx context.Context, token string) (bool, error)
	Len(ctx context.Context) (int, error)
}

// Sweeper is implemented by stores that need explicit reclamation.
type Sweeper interface {
	Sweep(now time.Time) int
}

// Digest returns the storage key for token.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
