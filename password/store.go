package password

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
)

type record struct {
	hash  string
	roles []string
}

// MemoryStore is an in-process credential store backed by Argon2 hashes.
// It satisfies goAuthGate.CredentialStore and goAuthGate.RoleSource.
//
// Principals are matched case-insensitively. Unknown principals are
// verified against a dummy hash so lookups take the same time as real
// failures.
type MemoryStore struct {
	hasher *Argon2
	dummy  string

	mu    sync.RWMutex
	users map[string]record
}

// NewMemoryStore creates an empty store. A nil hasher uses DefaultConfig.
func NewMemoryStore(hasher *Argon2) (*MemoryStore, error) {
	if hasher == nil {
		var err error
		hasher, err = NewArgon2(DefaultConfig())
		if err != nil {
			return nil, err
		}
	}

	seed := make([]byte, 16)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	dummy, err := hasher.Hash(hex.EncodeToString(seed))
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}

	return &MemoryStore{
		hasher: hasher,
		dummy:  dummy,
		users:  make(map[string]record),
	}, nil
}

// Put hashes password and stores it for principal, replacing any previous
// entry.
func (s *MemoryStore) Put(principal, password string, roles ...string) error {
	key := normalize(principal)
	if key == "" {
		return errors.New("principal is required")
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	s.store(key, hash, roles)
	return nil
}

// PutHash stores an existing PHC hash for principal.
func (s *MemoryStore) PutHash(principal, encodedHash string, roles ...string) error {
	key := normalize(principal)
	if key == "" {
		return errors.New("principal is required")
	}
	if _, err := parsePHC(encodedHash); err != nil {
		return err
	}
	s.store(key, encodedHash, roles)
	return nil
}

// Delete removes principal. Deleting an unknown principal is a no-op.
func (s *MemoryStore) Delete(principal string) {
	s.mu.Lock()
	delete(s.users, normalize(principal))
	s.mu.Unlock()
}

// Len returns the number of stored principals.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Authenticate verifies secret for principal. It returns an error only
// when the stored hash is unreadable or ctx is done; a wrong or over-long
// secret is a plain false.
//
// A match against a hash with weaker parameters is re-hashed in place.
func (s *MemoryStore) Authenticate(ctx context.Context, principal, secret string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	key := normalize(principal)
	s.mu.RLock()
	rec, found := s.users[key]
	s.mu.RUnlock()

	hash := s.dummy
	if found {
		hash = rec.hash
	}

	ok, err := s.hasher.Verify(secret, hash)
	if errors.Is(err, ErrPasswordTooLong) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !found || !ok {
		return false, nil
	}

	if upgrade, _ := s.hasher.NeedsUpgrade(rec.hash); upgrade {
		if fresh, err := s.hasher.Hash(secret); err == nil {
			s.mu.Lock()
			if cur, still := s.users[key]; still && cur.hash == rec.hash {
				cur.hash = fresh
				s.users[key] = cur
			}
			s.mu.Unlock()
		}
	}
	return true, nil
}

// Roles returns a copy of principal's roles. Unknown principals have none.
func (s *MemoryStore) Roles(_ context.Context, principal string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[normalize(principal)]
	if !ok || len(rec.roles) == 0 {
		return nil, nil
	}
	return append([]string(nil), rec.roles...), nil
}

func (s *MemoryStore) store(key, hash string, roles []string) {
	s.mu.Lock()
	s.users[key] = record{hash: hash, roles: append([]string(nil), roles...)}
	s.mu.Unlock()
}

func (s *MemoryStore) hashOf(principal string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[normalize(principal)].hash
}

func normalize(principal string) string {
	return strings.ToLower(strings.TrimSpace(principal))
}
