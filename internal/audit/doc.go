// Package audit implements async event dispatching for security-relevant
// authentication outcomes.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, zap, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured audit record with timestamp, type, principal, family, IP, metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; the Engine does. A panicking sink is recovered and logged so delivery
// failures never reach the authentication call.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import goAuthGate or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
