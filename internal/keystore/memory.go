package keystore

import (
	"crypto/rand"
	"sync"

	"peerseal/internal/domain"
)

// Memory keeps the device key in process memory only. Useful for tests and
// ephemeral sessions.
type Memory struct {
	mu  sync.Mutex
	key []byte
}

// NewMemory returns an empty in-memory provider.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) GetOrCreateDeviceKey() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.key == nil {
		key := make([]byte, DeviceKeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		m.key = key
	}
	return clone(m.key), nil
}

func (m *Memory) DeleteDeviceKey() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.key = nil
	return nil
}

func (m *Memory) DeviceKeyExists() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.key != nil
}

var _ domain.DeviceKeyProvider = (*Memory)(nil)
