// Package goAuthGate is a multi-tenant authentication and token lifecycle
// engine: domain-routed credential checks, HS256 access tokens, rotating
// refresh tokens with reuse detection, token revocation and attempt
// throttling.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goAuthGate is the public surface. It exposes [Engine], [Builder], [Config],
// [Router], the provider variants ([LocalProvider], [ExternalSSOProvider])
// and value types ([AuthResult], [Stats], [MetricsSnapshot]). Reusable
// primitives live in leaf packages:
//
//   - jwt: token signing and verification
//   - lineage: refresh-token families and theft detection
//   - revocation: the revoked-token store (memory or Redis)
//   - throttle: fixed-window failure counters (memory or Redis)
//
// Audit dispatch, the sharded map and sweep scheduling live under internal/.
//
// # What this package must NOT do
//
//   - Return collaborator error details in an AuthResult.
//   - Rely on background sweeps for correctness. Every read re-checks expiry.
//   - Import any sub-package that re-imports goAuthGate (no import cycles).
package goAuthGate
