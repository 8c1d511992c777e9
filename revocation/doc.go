// Package revocation implements the expiring denylist of tokens that must be
// rejected even though they still carry a valid signature.
//
// # Expiry semantics
//
// An entry is meaningful only until its expiresAt. IsRevoked re-checks expiry
// on every read, so an entry past expiry behaves as absent whether or not a
// sweep has reclaimed it. Revoke with expiresAt <= now is a no-op.
//
// Entries are keyed by the SHA-256 digest of the token, never the token
// itself.
//
// # Backends
//
//   - Memory: sharded in-process map; call Sweep periodically to bound memory.
//   - Redis: one key per entry with a PX expiry; Redis reclaims entries itself.
package revocation
