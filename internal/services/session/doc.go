// Package session advances per-peer ratchets and persists every step.
//
// Each call loads the peer's state, runs one ratchet transition and saves the
// result before returning the key, all under a lock held for that peer only.
// Calls for different peers run in parallel.
package session
