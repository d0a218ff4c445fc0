package keystore

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	// The current supported version of the device key blob stored on disk.
	formatVersion = 1

	kdfNone   = "none"
	kdfScrypt = "scrypt"
)

var (
	// ErrWrongPassphrase is returned when the passphrase is incorrect or the
	// ciphertext has been modified / corrupted.
	ErrWrongPassphrase = errors.New("keystore: wrong passphrase or corrupted device key")
	// ErrPassphraseRequired is returned when a sealed key is opened without a
	// passphrase.
	ErrPassphraseRequired = errors.New("keystore: device key is sealed; passphrase required")
)

// blob is the on‑disk JSON structure holding the key and KDF parameters.
type blob struct {
	V      int    `json:"v"`
	KDF    string `json:"kdf"`
	Salt   []byte `json:"salt,omitempty"`
	N      int    `json:"scrypt_N,omitempty"`
	R      int    `json:"scrypt_r,omitempty"`
	P      int    `json:"scrypt_p,omitempty"`
	Cipher []byte `json:"cipher"`
}

// seal wraps raw into a JSON blob. With an empty passphrase the key is stored
// as is and relies on file permissions alone.
func seal(passphrase string, raw []byte, n, r, p int) ([]byte, error) {
	if passphrase == "" {
		return json.Marshal(blob{V: formatVersion, KDF: kdfNone, Cipher: raw})
	}
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	key, err := scrypt.Key([]byte(passphrase), salt[:], n, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [12]byte // zero nonce; salt‑bound key guarantees uniqueness
	ct := aead.Seal(nil, nonce[:], raw, salt[:])

	return json.Marshal(blob{
		V:      formatVersion,
		KDF:    kdfScrypt,
		Salt:   salt[:],
		N:      n,
		R:      r,
		P:      p,
		Cipher: ct,
	})
}

// unseal opens a blob produced by seal.
func unseal(passphrase string, b []byte) ([]byte, error) {
	var bl blob
	if err := json.Unmarshal(b, &bl); err != nil {
		return nil, fmt.Errorf("keystore: malformed device key: %w", err)
	}
	if bl.V > formatVersion {
		return nil, fmt.Errorf("keystore: unsupported device key version %d", bl.V)
	}
	switch bl.KDF {
	case kdfNone:
		return bl.Cipher, nil
	case kdfScrypt:
	default:
		return nil, fmt.Errorf("keystore: unknown kdf %q", bl.KDF)
	}
	if passphrase == "" {
		return nil, ErrPassphraseRequired
	}

	key, err := scrypt.Key([]byte(passphrase), bl.Salt, bl.N, bl.R, bl.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [12]byte
	pt, err := aead.Open(nil, nonce[:], bl.Cipher, bl.Salt)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

// Tunables for scrypt key derivation.
func scryptParamsDefault() (n, r, p int) { return 1 << 15, 8, 1 }
