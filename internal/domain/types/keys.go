package types

import (
	"encoding/base64"
	"fmt"
)

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// IsZero reports whether the key is unset.
func (p X25519Public) IsZero() bool { return p == X25519Public{} }

// MarshalText encodes the key as unpadded base64url.
func (p X25519Public) MarshalText() ([]byte, error) { return encodeKey(p[:]), nil }

// UnmarshalText decodes a key produced by MarshalText.
func (p *X25519Public) UnmarshalText(b []byte) error { return decodeKey(p[:], b) }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// MarshalText encodes the key as unpadded base64url.
func (k X25519Private) MarshalText() ([]byte, error) { return encodeKey(k[:]), nil }

// UnmarshalText decodes a key produced by MarshalText.
func (k *X25519Private) UnmarshalText(b []byte) error { return decodeKey(k[:], b) }

// KeyPair is a Diffie-Hellman key pair. It is used both for long-lived
// identity and pre-keys and for per-step ratchet keys.
type KeyPair struct {
	Public  X25519Public  `json:"pub"`
	Private X25519Private `json:"priv"`
}

func encodeKey(k []byte) []byte {
	out := make([]byte, base64.RawURLEncoding.EncodedLen(len(k)))
	base64.RawURLEncoding.Encode(out, k)
	return out
}

func decodeKey(dst, src []byte) error {
	if n := base64.RawURLEncoding.DecodedLen(len(src)); n != len(dst) {
		return fmt.Errorf("key: want %d bytes, got %d", len(dst), n)
	}
	_, err := base64.RawURLEncoding.Decode(dst, src)
	return err
}
