package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"peerseal/internal/domain"
)

const sessionPrefix = "session/"

// ErrEmptyPeerID is returned when saving a session without a peer id.
var ErrEmptyPeerID = errors.New("store: empty peer id")

type sessionRecord struct {
	V int `json:"v"`
	domain.PersistentSession
}

func sessionName(peer domain.PeerID) string { return sessionPrefix + string(peer) }

// SaveSession overwrites the session unit for peer. Errors are always
// returned: losing a ratchet step makes later messages undecryptable.
func (s *Store) SaveSession(ctx context.Context, peer domain.PeerID, state domain.RatchetState, associatedData []byte) error {
	if peer == "" {
		return ErrEmptyPeerID
	}
	rec := sessionRecord{
		V: recordVersion,
		PersistentSession: domain.PersistentSession{
			PeerID:         peer,
			State:          state,
			AssociatedData: associatedData,
			LastUpdated:    s.now().UTC(),
		},
	}
	if err := s.putJSON(ctx, sessionName(peer), rec); err != nil {
		return fmt.Errorf("store: save session %q: %w", peer, err)
	}
	return nil
}

// LoadSession returns the session for peer, or false if there is none or it
// cannot be read. Unreadable units are logged and left in place.
func (s *Store) LoadSession(ctx context.Context, peer domain.PeerID) (domain.PersistentSession, bool) {
	var rec sessionRecord
	if !s.getJSON(ctx, sessionName(peer), &rec) {
		return domain.PersistentSession{}, false
	}
	if rec.PeerID != peer {
		s.log.Warn("store: session belongs to another peer",
			zap.String("peer", string(peer)), zap.String("stored", string(rec.PeerID)))
		return domain.PersistentSession{}, false
	}
	if rec.State.SkippedMessageKeys == nil {
		rec.State.SkippedMessageKeys = make(map[string]domain.SkippedMessageKey)
	}
	return rec.PersistentSession, true
}

// DeleteSession removes the session unit for peer. A missing unit is not an
// error.
func (s *Store) DeleteSession(ctx context.Context, peer domain.PeerID) error {
	if err := s.backend.Delete(ctx, sessionName(peer)); err != nil {
		return fmt.Errorf("store: delete session %q: %w", peer, err)
	}
	return nil
}

// ListSessionIDs returns the peers with a stored session, sorted. It returns
// an empty slice when the backend cannot be enumerated.
func (s *Store) ListSessionIDs(ctx context.Context) []domain.PeerID {
	names, err := s.backend.List(ctx, sessionPrefix)
	if err != nil {
		s.log.Warn("store: list sessions failed", zap.Error(err))
		return []domain.PeerID{}
	}
	ids := make([]domain.PeerID, 0, len(names))
	for _, n := range names {
		ids = append(ids, domain.PeerID(strings.TrimPrefix(n, sessionPrefix)))
	}
	return ids
}
