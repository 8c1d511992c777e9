// Package middleware adapts goAuthGate.Engine access-token validation to
// HTTP servers.
//
// # Guards
//
//   - [RequireAccess] wraps a net/http handler.
//   - [GinRequireAccess] is the gin equivalent.
//   - [RequireRoles] and [GinRequireRoles] additionally demand at least one
//     role from the validated token.
//
// Each guard reads the Authorization bearer token, calls
// Engine.ValidateAccess, and stores the claims on the request context.
// Rejected tokens get 401. A revocation backend outage gets 503.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly.
//   - Access Redis.
//   - Make decisions beyond pass or reject from Engine.ValidateAccess.
package middleware
