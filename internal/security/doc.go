// Package security derives a security posture report from engine
// configuration. It holds no state and performs no I/O.
package security
