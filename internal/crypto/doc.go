// Package crypto exposes the minimal primitives used by peerseal.
//
// Contents
//
//   - X25519 key generation, clamping and Diffie–Hellman (NewKeyPair, DH)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// All functions return fixed-size array types defined in internal/domain to
// avoid accidental reallocations. Callers should treat returned secrets as
// sensitive and wipe them with memzero.Zero when practical.
package crypto
