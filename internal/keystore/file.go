package keystore

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"peerseal/internal/domain"
	"peerseal/internal/util/fileio"
)

const (
	deviceKeyFilename = "device.key"
	// DeviceKeySize is the length of the device key in bytes.
	DeviceKeySize = 32
)

// File keeps the device key in a file under dir, optionally sealed with a
// passphrase. The unsealed key is cached for the lifetime of the value.
type File struct {
	path       string
	passphrase string
	n, r, p    int

	mu     sync.Mutex
	cached []byte
}

// FileOption configures a File.
type FileOption func(*File)

// WithScryptParams overrides the scrypt cost used when sealing a new key.
func WithScryptParams(n, r, p int) FileOption {
	return func(f *File) { f.n, f.r, f.p = n, r, p }
}

// NewFile returns a File provider rooted at dir.
func NewFile(dir, passphrase string, opts ...FileOption) *File {
	f := &File{path: filepath.Join(dir, deviceKeyFilename), passphrase: passphrase}
	f.n, f.r, f.p = scryptParamsDefault()
	for _, o := range opts {
		o(f)
	}
	return f
}

// GetOrCreateDeviceKey returns a copy of the device key, creating and
// persisting one on first use.
func (f *File) GetOrCreateDeviceKey() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cached != nil {
		return clone(f.cached), nil
	}
	b, err := fileio.Read(f.path)
	if err != nil {
		return nil, fmt.Errorf("keystore: read device key: %w", err)
	}
	if b != nil {
		key, err := unseal(f.passphrase, b)
		if err != nil {
			return nil, err
		}
		if len(key) != DeviceKeySize {
			return nil, fmt.Errorf("keystore: device key has %d bytes, want %d", len(key), DeviceKeySize)
		}
		f.cached = key
		return clone(key), nil
	}

	key := make([]byte, DeviceKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	sealed, err := seal(f.passphrase, key, f.n, f.r, f.p)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return nil, fmt.Errorf("keystore: create dir: %w", err)
	}
	if err := fileio.WriteAtomic(f.path, sealed, 0o600); err != nil {
		return nil, fmt.Errorf("keystore: write device key: %w", err)
	}
	f.cached = key
	return clone(key), nil
}

// DeleteDeviceKey removes the key file. Everything sealed with it becomes
// unreadable.
func (f *File) DeleteDeviceKey() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cached = nil
	if err := fileio.Remove(f.path); err != nil {
		return fmt.Errorf("keystore: delete device key: %w", err)
	}
	return nil
}

// DeviceKeyExists reports whether a key file is present.
func (f *File) DeviceKeyExists() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cached != nil {
		return true
	}
	_, err := os.Stat(f.path)
	return err == nil
}

func clone(b []byte) []byte { return append([]byte(nil), b...) }

// Compile-time assertion that File implements domain.DeviceKeyProvider.
var _ domain.DeviceKeyProvider = (*File)(nil)
