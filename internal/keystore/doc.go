// Package keystore provides device key providers for the envelope cipher.
//
// File stores the key next to the rest of the local state. When a
// passphrase is configured the key is sealed with a scrypt-derived
// ChaCha20-Poly1305 key inside a small versioned JSON blob:
//
//	{"v":1,"kdf":"scrypt","salt":...,"scrypt_N":32768,"scrypt_r":8,"scrypt_p":1,"cipher":...}
//
// Without a passphrase the key is written as {"v":1,"kdf":"none",...} and is
// protected by 0600 file permissions only. Memory keeps the key in process
// memory and never touches disk.
//
// A platform keystore can replace both by implementing
// domain.DeviceKeyProvider.
package keystore
