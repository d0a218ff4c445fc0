package interfaces

import (
	"context"

	domaintypes "peerseal/internal/domain/types"
)

// SessionStore keeps one encrypted unit of ratchet state per peer.
//
// Saves propagate every failure. Loads degrade to "none" and never return an
// error: a missing or unreadable session is recovered by a new handshake.
type SessionStore interface {
	SaveSession(ctx context.Context, peer domaintypes.PeerID, state domaintypes.RatchetState, associatedData []byte) error
	LoadSession(ctx context.Context, peer domaintypes.PeerID) (domaintypes.PersistentSession, bool)
	DeleteSession(ctx context.Context, peer domaintypes.PeerID) error
	ListSessionIDs(ctx context.Context) []domaintypes.PeerID
}

// IdentityStore persists your long-term identity and signed pre-key.
type IdentityStore interface {
	SaveIdentityKeys(ctx context.Context, identity, signedPreKey domaintypes.KeyPair) error
	LoadIdentityKeys(ctx context.Context) (domaintypes.IdentityKeys, bool)
}

// PreKeyStore manages one-time pre-keys.
type PreKeyStore interface {
	SaveOneTimePreKeys(ctx context.Context, keys map[domaintypes.PreKeyID]domaintypes.KeyPair) error
	LoadOneTimePreKeys(ctx context.Context) map[domaintypes.PreKeyID]domaintypes.KeyPair
	ReadOneTimePreKeys(ctx context.Context) (map[domaintypes.PreKeyID]domaintypes.KeyPair, error)
	AddOneTimePreKeys(ctx context.Context, pairs []domaintypes.KeyPair) (domaintypes.PreKeyID, error)
	ConsumeOneTimePreKey(ctx context.Context, id domaintypes.PreKeyID) (domaintypes.KeyPair, bool, error)
}
