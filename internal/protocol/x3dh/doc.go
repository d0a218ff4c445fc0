// Package x3dh implements the X3DH key agreement used to bootstrap a Double
// Ratchet session between two parties.
//
// # Overview
//
// X3DH lets an initiator derive a shared 32-byte root key with a responder who
// has published a Bundle. The bundle contains:
//   - Identity key (X25519)
//   - Signed pre-key (X25519), which also serves as the responder's first
//     ratchet key
//   - Optional one-time pre-key (X25519)
//
// # Flows
//
// Initiator:
//  1. Generate an ephemeral X25519 key pair.
//  2. Compute DH values (IKa·SPKb, EKa·IKb, EKa·SPKb[, EKa·OPKb]).
//  3. HKDF over the concatenated DH transcript to produce the root key.
//  4. Return the root key and the InitialMessage for the responder.
//
// Responder:
//  1. Receive the InitialMessage (initiator IK, ephemeral EK[, OPK id]).
//  2. Look up and consume the one-time pre-key if one was used.
//  3. Compute the symmetric DH set (SPKb·IKa, IKb·EKa, SPKb·EKa[, OPKb·EKa]).
//  4. HKDF the same transcript to the identical root key.
//
// Bundles are not signed here; authenticity of the identity key is
// established out of band with safety numbers.
package x3dh
