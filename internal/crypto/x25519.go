package crypto

import (
	"io"

	"golang.org/x/crypto/curve25519"

	"peerseal/internal/domain"
)

// NewKeyPair draws a private key from r and derives its public half.
func NewKeyPair(r io.Reader) (domain.KeyPair, error) {
	var kp domain.KeyPair
	if _, err := io.ReadFull(r, kp.Private[:]); err != nil {
		return domain.KeyPair{}, err
	}
	clamp(&kp.Private)
	pb, err := curve25519.X25519(kp.Private.Slice(), curve25519.Basepoint)
	if err != nil {
		return domain.KeyPair{}, err
	}
	copy(kp.Public[:], pb)
	return kp, nil
}

// DH computes X25519 Diffie–Hellman. It fails on low-order peer keys.
func DH(priv domain.X25519Private, pub domain.X25519Public) (out [32]byte, err error) {
	secret, err := curve25519.X25519(priv.Slice(), pub.Slice())
	if err != nil {
		return out, err
	}
	copy(out[:], secret)
	return out, nil
}

func clamp(k *domain.X25519Private) {
	kb := k[:]
	kb[0] &= 248
	kb[31] &= 127
	kb[31] |= 64
}
