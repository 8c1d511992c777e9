// Package throttle implements fixed-window failure counters keyed by actor.
//
// # Window semantics
//
// A counter starts at the first recorded failure (windowStart = now). While
// now - windowStart <= Window the key is allowed iff count < MaxAttempts. Once
// the window has elapsed the counter is treated as reset without any explicit
// call. Reset removes the counter outright (used after a successful login).
//
// Allow combines an IP key and a principal key with AND semantics: either key
// alone can block the caller. Principal keys are case-folded. An empty key is
// always allowed and never counted.
//
// # Failure mode
//
// Store errors fail closed: Allow returns a denying Decision together with
// the error.
//
// # What this package must NOT do
//
//   - Decide what counts as a failure; callers report failures explicitly.
//   - Use sliding or token-bucket windows.
package throttle
