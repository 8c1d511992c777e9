package jwt

import "errors"

var (
	// ErrTokenMalformed is returned when a token cannot be decoded or its
	// signature cannot be checked.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenInvalid is returned for any verification failure other than
	// expiry: bad signature, wrong algorithm, issuer or audience mismatch.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned when now >= exp + leeway.
	ErrTokenExpired = errors.New("token expired")
	// ErrWrongTokenType is returned when an access token is presented where a
	// refresh token is required, or the reverse.
	ErrWrongTokenType = errors.New("wrong token type")
)
