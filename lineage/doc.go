// Package lineage tracks refresh-token families and detects refresh-token
// reuse.
//
// A family is created when a refresh token is first issued for a principal.
// Every successful rotation appends the new token to a bounded history and
// revokes the consumed one. Presenting a token that is in the history but is
// no longer current is treated as theft: the family is deleted in the same
// atomic step that detected the reuse, and every token it ever held is
// revoked.
//
// # States
//
//   - Active: the family exists and has a current token.
//   - Compromised: terminal; reported on the snapshot carried by TheftError.
//   - Absent: never created, logged out, compromised and deleted, or swept.
//
// Lookups that miss fail closed with ErrFamilyNotFound. A family is never
// recreated implicitly, except for legacy tokens that carry no family id.
//
// # Concurrency
//
// Each family is updated with a single per-key atomic step, so concurrent
// rotations of the same token yield exactly one success.
package lineage
