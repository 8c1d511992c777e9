package lineage

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRefreshToken is returned when the presented token fails
	// signature, expiry or type verification.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrTokenRevoked is returned when the presented token is denylisted.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrFamilyNotFound is returned when the token's family does not exist.
	ErrFamilyNotFound = errors.New("token family not found")
	// ErrTheftDetected is returned when a superseded token is replayed.
	ErrTheftDetected = errors.New("refresh token reuse detected")
	// ErrInvalidTokenForRefresh is returned when a correctly signed token
	// names a family whose history does not contain it.
	ErrInvalidTokenForRefresh = errors.New("token not part of family history")
)

// TheftError describes a family that was compromised and purged.
// It unwraps to ErrTheftDetected or ErrInvalidTokenForRefresh.
type TheftError struct {
	Family  Family
	Revoked int
	cause   error
}

func (e *TheftError) Error() string {
	return fmt.Sprintf("%v: family %s of %s, %d tokens revoked",
		e.cause, e.Family.ID, e.Family.Principal, e.Revoked)
}

func (e *TheftError) Unwrap() error { return e.cause }
