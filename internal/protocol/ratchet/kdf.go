package ratchet

import (
	"crypto/hmac"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

const keySize = 32

var rootInfo = []byte("peerseal/ratchet/root")

// kdfRK mixes a DH output into the root key and yields the next root key and
// a fresh chain key.
func kdfRK(rk, dh []byte) (newRK, ck []byte) {
	r := hkdf.New(sha256.New, dh, rk, rootInfo)
	newRK = make([]byte, keySize)
	ck = make([]byte, keySize)
	_, _ = io.ReadFull(r, newRK)
	_, _ = io.ReadFull(r, ck)
	return
}

// kdfCK advances a chain key by one step.
func kdfCK(ck []byte) (nextCK, mk []byte) {
	return hmacConst(ck, 0x02), hmacConst(ck, 0x01)
}

func hmacConst(key []byte, c byte) []byte {
	m := hmac.New(sha256.New, key)
	m.Write([]byte{c})
	return m.Sum(nil)
}
