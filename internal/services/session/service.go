package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"peerseal/internal/domain"
	"peerseal/internal/protocol/ratchet"
	"peerseal/internal/verify/fingerprint"
)

// DefaultSkippedKeyMaxAge is how long an unused skipped key is kept.
const DefaultSkippedKeyMaxAge = 7 * 24 * time.Hour

var (
	// ErrNoSession indicates there is no stored session with the peer.
	ErrNoSession = errors.New("session: no session with peer; run a handshake first")
	// ErrEmptyPeer is returned for an empty peer id.
	ErrEmptyPeer = errors.New("session: empty peer id")
)

// Manager serializes ratchet steps per peer and persists each one before
// handing out its key.
type Manager struct {
	store  domain.SessionStore
	engine *ratchet.Engine
	maxAge time.Duration
	log    *zap.Logger
	locks  *peerLocks
}

// Option configures a Manager.
type Option func(*Manager)

// WithEngine sets the ratchet engine.
func WithEngine(e *ratchet.Engine) Option {
	return func(m *Manager) {
		if e != nil {
			m.engine = e
		}
	}
}

// WithSkippedKeyMaxAge sets how long skipped keys survive. Zero disables
// pruning.
func WithSkippedKeyMaxAge(d time.Duration) Option { return func(m *Manager) { m.maxAge = d } }

// WithLogger sets the manager logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// New returns a Manager persisting to st.
func New(st domain.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:  st,
		engine: ratchet.New(),
		maxAge: DefaultSkippedKeyMaxAge,
		log:    zap.NewNop(),
		locks:  newPeerLocks(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Establish stores the initial state for peer, replacing any previous
// session.
func (m *Manager) Establish(ctx context.Context, peer domain.PeerID, state domain.RatchetState, associatedData []byte) error {
	if peer == "" {
		return ErrEmptyPeer
	}
	unlock := m.locks.lock(peer)
	defer unlock()

	if err := m.store.SaveSession(ctx, peer, state, associatedData); err != nil {
		return err
	}
	m.log.Info("session established", zap.String("peer", peer.String()))
	return nil
}

// EncryptNext returns the header and key for the next message to peer.
func (m *Manager) EncryptNext(ctx context.Context, peer domain.PeerID) (domain.RatchetHeader, []byte, error) {
	var (
		h  domain.RatchetHeader
		mk []byte
	)
	err := m.step(ctx, peer, func(sess *domain.PersistentSession) error {
		var err error
		h, mk, err = m.engine.EncryptNext(&sess.State)
		return err
	})
	if err != nil {
		return domain.RatchetHeader{}, nil, err
	}
	return h, mk, nil
}

// Decrypt returns the key for a message from peer carrying header.
func (m *Manager) Decrypt(ctx context.Context, peer domain.PeerID, header domain.RatchetHeader) ([]byte, error) {
	var mk []byte
	err := m.step(ctx, peer, func(sess *domain.PersistentSession) error {
		var err error
		mk, err = m.engine.Decrypt(&sess.State, header)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mk, nil
}

// Seal encrypts plaintext for peer, binding the session's associated data.
func (m *Manager) Seal(ctx context.Context, peer domain.PeerID, plaintext []byte) (domain.RatchetHeader, []byte, error) {
	var (
		h  domain.RatchetHeader
		ct []byte
	)
	err := m.step(ctx, peer, func(sess *domain.PersistentSession) error {
		var (
			mk  []byte
			err error
		)
		h, mk, err = m.engine.EncryptNext(&sess.State)
		if err != nil {
			return err
		}
		ct, err = ratchet.Seal(mk, h, sess.AssociatedData, plaintext)
		return err
	})
	if err != nil {
		return domain.RatchetHeader{}, nil, err
	}
	return h, ct, nil
}

// Open decrypts a message from peer. A ciphertext that fails
// authentication leaves the stored session untouched.
func (m *Manager) Open(ctx context.Context, peer domain.PeerID, header domain.RatchetHeader, ciphertext []byte) ([]byte, error) {
	var pt []byte
	err := m.step(ctx, peer, func(sess *domain.PersistentSession) error {
		mk, err := m.engine.Decrypt(&sess.State, header)
		if err != nil {
			return err
		}
		pt, err = ratchet.Open(mk, header, sess.AssociatedData, ciphertext)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pt, nil
}

// Close deletes the session with peer.
func (m *Manager) Close(ctx context.Context, peer domain.PeerID) error {
	if peer == "" {
		return ErrEmptyPeer
	}
	unlock := m.locks.lock(peer)
	defer unlock()

	if err := m.store.DeleteSession(ctx, peer); err != nil {
		return err
	}
	m.log.Info("session closed", zap.String("peer", peer.String()))
	return nil
}

// Peers lists peers with a stored session.
func (m *Manager) Peers(ctx context.Context) []domain.PeerID {
	return m.store.ListSessionIDs(ctx)
}

// Fingerprint returns the session fingerprint for peer computed from our
// current sending ratchet key, the peer's current ratchet key and the
// session's associated data. Both sides agree on it while neither has sent a
// message the other has not yet received.
func (m *Manager) Fingerprint(ctx context.Context, peer domain.PeerID) (string, error) {
	sess, ok := m.store.LoadSession(ctx, peer)
	if !ok {
		return "", ErrNoSession
	}
	return fingerprint.Generate(
		sess.State.SendRatchetKeyPair.Public.Slice(),
		sess.State.ReceiveRatchetKey.Slice(),
		sess.AssociatedData,
	), nil
}

// step runs fn against a copy of the peer's session and saves the copy only
// if fn succeeds.
func (m *Manager) step(ctx context.Context, peer domain.PeerID, fn func(*domain.PersistentSession) error) error {
	if peer == "" {
		return ErrEmptyPeer
	}
	unlock := m.locks.lock(peer)
	defer unlock()

	sess, ok := m.store.LoadSession(ctx, peer)
	if !ok {
		return ErrNoSession
	}
	work := sess
	work.State = sess.State.Clone()

	if err := fn(&work); err != nil {
		m.log.Debug("ratchet step rejected", zap.String("peer", peer.String()), zap.Error(err))
		return err
	}
	if m.maxAge > 0 {
		if n := m.engine.Prune(&work.State, m.maxAge); n > 0 {
			m.log.Debug("pruned skipped keys", zap.String("peer", peer.String()), zap.Int("count", n))
		}
	}
	if err := m.store.SaveSession(ctx, peer, work.State, work.AssociatedData); err != nil {
		return fmt.Errorf("session: persist %s: %w", peer, err)
	}
	return nil
}

// Compile-time assertion that Manager implements domain.SessionManager.
var _ domain.SessionManager = (*Manager)(nil)
