package interfaces

import (
	"context"

	domaintypes "peerseal/internal/domain/types"
)

// IdentityService creates, rotates and inspects your long-term keys.
type IdentityService interface {
	Generate(ctx context.Context, oneTimeCount int) (domaintypes.IdentityKeys, domaintypes.Fingerprint, error)
	Load(ctx context.Context) (domaintypes.IdentityKeys, error)
	Fingerprint(ctx context.Context) (domaintypes.Fingerprint, error)
	RotateSignedPreKey(ctx context.Context) (domaintypes.KeyPair, error)
	Replenish(ctx context.Context, target int) (int, error)
}

// SessionManager advances per-peer ratchets and persists every step.
type SessionManager interface {
	Establish(ctx context.Context, peer domaintypes.PeerID, state domaintypes.RatchetState, associatedData []byte) error
	EncryptNext(ctx context.Context, peer domaintypes.PeerID) (domaintypes.RatchetHeader, []byte, error)
	Decrypt(ctx context.Context, peer domaintypes.PeerID, header domaintypes.RatchetHeader) ([]byte, error)
	Seal(ctx context.Context, peer domaintypes.PeerID, plaintext []byte) (domaintypes.RatchetHeader, []byte, error)
	Open(ctx context.Context, peer domaintypes.PeerID, header domaintypes.RatchetHeader, ciphertext []byte) ([]byte, error)
	Close(ctx context.Context, peer domaintypes.PeerID) error
	Peers(ctx context.Context) []domaintypes.PeerID
}
