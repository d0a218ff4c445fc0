// Package ratchet implements the Double Ratchet key schedule following
// Signal's design.
//
// The algorithm maintains a root key and two message chains (send and
// receive). Each message advances a KDF chain so that keys are forward
// secure. When a party changes its DH ratchet public key, both sides derive
// new chain keys from a new root derived via DH.
//
// The engine only produces message keys. Callers feed them to an AEAD of
// their choice; Seal and Open provide a ChaCha20-Poly1305 binding that
// authenticates the header alongside the ciphertext.
//
// # Out-of-order delivery
//
// Keys for messages that have not arrived yet are derived ahead of need and
// cached on the state. One Decrypt call may cache at most MaxSkip keys, the
// whole cache is capped at MaxSkippedKeys with the oldest entries evicted
// first, and Prune drops entries older than a given age.
//
// Concurrency: RatchetState is NOT safe for concurrent use. Callers must
// serialise access per peer.
package ratchet
