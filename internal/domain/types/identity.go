package types

import "time"

// IdentityKeys holds the long-lived identity key pair and the current signed
// pre-key pair.
type IdentityKeys struct {
	IdentityKeyPair  KeyPair   `json:"identity"`
	SignedPreKeyPair KeyPair   `json:"signed_prekey"`
	LastRotated      time.Time `json:"last_rotated"`
}

// PreKeyEntry is a one-time pre-key with its id.
type PreKeyEntry struct {
	ID      PreKeyID `json:"id"`
	KeyPair KeyPair  `json:"pair"`
}
