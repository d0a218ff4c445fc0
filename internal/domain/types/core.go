package types

// PeerID identifies the remote party of a session.
type PeerID string

// String returns the string form of the peer id.
func (p PeerID) String() string { return string(p) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// PreKeyID identifies a one-time pre-key.
type PreKeyID uint32
