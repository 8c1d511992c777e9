// Package internal groups machinery that is private to goAuthGate.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - security: security posture report derived from configuration
//   - shardmap: sharded concurrent map with per-key atomic updates
//   - sweep: periodic background cleanup with a start/stop lifecycle
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAuthGate API.
//   - Be imported by any package outside the goAuthGate module.
package internal
