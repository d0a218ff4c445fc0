package ratchet

import (
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"

	"peerseal/internal/domain"
)

var (
	// ErrMalformedHeader is returned by ParseHeader for input of the wrong size.
	ErrMalformedHeader = errors.New("ratchet: malformed header")
	// ErrMessageAuth is returned by Open when the ciphertext, header or
	// associated data fail authentication.
	ErrMessageAuth = errors.New("ratchet: message authentication failed")
)

// Seal encrypts plaintext under a message key from EncryptNext. The header
// is authenticated together with ad.
func Seal(mk []byte, header domain.RatchetHeader, ad, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(mk)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonceFor(header), plaintext, headerAD(header, ad)), nil
}

// Open reverses Seal with the key returned by Decrypt.
func Open(mk []byte, header domain.RatchetHeader, ad, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(mk)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, nonceFor(header), ciphertext, headerAD(header, ad))
	if err != nil {
		return nil, ErrMessageAuth
	}
	return pt, nil
}

// ParseHeader decodes the output of RatchetHeader.Bytes.
func ParseHeader(b []byte) (domain.RatchetHeader, error) {
	var h domain.RatchetHeader
	if len(b) != domain.HeaderSize {
		return h, ErrMalformedHeader
	}
	copy(h.RatchetKey[:], b[:32])
	h.PreviousChainLength = binary.BigEndian.Uint32(b[32:36])
	h.MessageNumber = binary.BigEndian.Uint32(b[36:40])
	return h, nil
}

// Message keys are single-use.
func nonceFor(h domain.RatchetHeader) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint32(nonce[len(nonce)-4:], h.MessageNumber)
	return nonce
}

func headerAD(h domain.RatchetHeader, ad []byte) []byte {
	out := make([]byte, 0, len(ad)+domain.HeaderSize)
	out = append(out, ad...)
	return append(out, h.Bytes()...)
}
