// Package password hashes passwords with Argon2id and provides an
// in-memory credential store for goAuthGate's local provider.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters.
// [MemoryStore] uses it to re-hash on the next successful login.
//
// # What this package must NOT do
//
//   - Import any other goAuthGate package.
//   - Log plaintext passwords or hash parameters.
package password
