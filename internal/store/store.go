package store

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"peerseal/internal/domain"
)

// Store persists sessions, identity keys and one-time pre-keys as sealed
// JSON blobs in a Backend. It holds no process-wide state; create one per
// storage root.
type Store struct {
	backend Backend
	cipher  domain.EnvelopeCipher
	log     *zap.Logger
	now     func() time.Time

	preKeyMu sync.Mutex // guards the one-time pre-key read-modify-write
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for degraded loads.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New returns a Store writing to backend through cipher.
func New(backend Backend, cipher domain.EnvelopeCipher, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		cipher:  cipher,
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Close releases the backend.
func (s *Store) Close() error { return s.backend.Close() }

// Compile-time assertions that Store implements the domain storage interfaces.
var (
	_ domain.SessionStore  = (*Store)(nil)
	_ domain.IdentityStore = (*Store)(nil)
	_ domain.PreKeyStore   = (*Store)(nil)
)
