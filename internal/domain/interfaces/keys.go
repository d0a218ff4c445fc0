package interfaces

// DeviceKeyProvider hands out the device-bound secret that protects data at
// rest. Implementations may be backed by a platform keystore.
type DeviceKeyProvider interface {
	GetOrCreateDeviceKey() ([]byte, error)
	DeleteDeviceKey() error
	DeviceKeyExists() bool
}

// EnvelopeCipher seals and opens blobs with the device key.
type EnvelopeCipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(blob []byte) ([]byte, error)
}
