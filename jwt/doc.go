// Package jwt issues and verifies the compact signed access and refresh
// tokens used by goAuthGate.
//
// Tokens are standard JWS compact serializations (header.payload.signature)
// signed with HS256 by default, or Ed25519 when configured with key pairs,
// so any compliant verifier holding the key can check them offline.
//
// # Expiry
//
// Verification is strict: a token is valid only while now < exp + Leeway.
// Leeway defaults to zero. exp is carried with whole-second precision.
//
// # What this package must NOT do
//
//   - Track refresh lineages or revocation state; see packages lineage and revocation.
//   - Read the wall clock directly when Config.Now is set.
package jwt
