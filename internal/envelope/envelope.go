// Package envelope seals data at rest with the device key.
//
// Blob layout: nonce (12 bytes) || AES-256-GCM ciphertext || tag (16 bytes).
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"peerseal/internal/domain"
)

const (
	nonceSize = 12
	tagSize   = 16
)

// ErrDecryption is returned for truncated blobs, a failed integrity check or
// a missing device key.
var ErrDecryption = errors.New("envelope: decryption failed")

// Cipher is the device-bound AEAD used by the stores.
type Cipher struct {
	keys domain.DeviceKeyProvider
	rand io.Reader
}

// New returns a Cipher keyed by keys.
func New(keys domain.DeviceKeyProvider) *Cipher {
	return &Cipher{keys: keys, rand: rand.Reader}
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	key, err := c.keys.GetOrCreateDeviceKey()
	if err != nil {
		return nil, fmt.Errorf("envelope: device key: %w", err)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize, nonceSize+len(plaintext)+tagSize)
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return nil, fmt.Errorf("envelope: nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a blob produced by Encrypt. It never returns unauthenticated
// plaintext.
func (c *Cipher) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < nonceSize+tagSize {
		return nil, fmt.Errorf("%w: blob too short (%d bytes)", ErrDecryption, len(blob))
	}
	if !c.keys.DeviceKeyExists() {
		return nil, fmt.Errorf("%w: no device key", ErrDecryption)
	}
	key, err := c.keys.GetOrCreateDeviceKey()
	if err != nil {
		return nil, fmt.Errorf("envelope: device key: %w", err)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	pt, err := gcm.Open(nil, blob[:nonceSize], blob[nonceSize:], nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return pt, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("envelope: device key has %d bytes, want 32", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Compile-time assertion that Cipher implements domain.EnvelopeCipher.
var _ domain.EnvelopeCipher = (*Cipher)(nil)
