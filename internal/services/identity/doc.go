// Package identity manages the local long-term keys: the X25519 identity
// pair, the current signed pre-key and the pool of one-time pre-keys handed
// out for X3DH.
package identity
