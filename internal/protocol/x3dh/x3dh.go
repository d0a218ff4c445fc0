package x3dh

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"

	"peerseal/internal/crypto"
	"peerseal/internal/domain"
	"peerseal/internal/util/memzero"
)

// ErrMissingOneTimePreKey is returned to the responder when the initial
// message names a one-time pre-key it no longer holds.
var ErrMissingOneTimePreKey = errors.New("x3dh: one-time pre-key not available")

var info = []byte("peerseal-x3dh")

// Bundle is the public material a responder publishes.
type Bundle struct {
	IdentityKey     domain.X25519Public
	SignedPreKey    domain.X25519Public
	OneTimePreKeyID domain.PreKeyID
	OneTimePreKey   *domain.X25519Public
}

// InitialMessage is what the initiator sends so the responder can derive
// the same root key.
type InitialMessage struct {
	IdentityKey       domain.X25519Public
	EphemeralKey      domain.X25519Public
	UsedOneTimePreKey bool
	OneTimePreKeyID   domain.PreKeyID
}

// InitiatorRoot derives the root key for the initiator and the message the
// responder needs.
func InitiatorRoot(ourIdentity domain.KeyPair, bundle Bundle) ([]byte, InitialMessage, error) {
	eph, err := crypto.NewKeyPair(rand.Reader)
	if err != nil {
		return nil, InitialMessage{}, err
	}
	defer memzero.Zero(eph.Private[:])

	privs := []domain.X25519Private{ourIdentity.Private, eph.Private, eph.Private}
	pubs := []domain.X25519Public{bundle.SignedPreKey, bundle.IdentityKey, bundle.SignedPreKey}
	msg := InitialMessage{IdentityKey: ourIdentity.Public, EphemeralKey: eph.Public}
	if bundle.OneTimePreKey != nil {
		privs = append(privs, eph.Private)
		pubs = append(pubs, *bundle.OneTimePreKey)
		msg.UsedOneTimePreKey = true
		msg.OneTimePreKeyID = bundle.OneTimePreKeyID
	}
	root, err := agree(privs, pubs)
	if err != nil {
		return nil, InitialMessage{}, err
	}
	return root, msg, nil
}

// ResponderRoot recomputes the initiator's root key. oneTime must be the
// pair named by msg when msg.UsedOneTimePreKey is set.
func ResponderRoot(ourIdentity, signedPreKey domain.KeyPair, oneTime *domain.KeyPair, msg InitialMessage) ([]byte, error) {
	if msg.UsedOneTimePreKey && oneTime == nil {
		return nil, ErrMissingOneTimePreKey
	}
	privs := []domain.X25519Private{signedPreKey.Private, ourIdentity.Private, signedPreKey.Private}
	pubs := []domain.X25519Public{msg.IdentityKey, msg.EphemeralKey, msg.EphemeralKey}
	if msg.UsedOneTimePreKey {
		privs = append(privs, oneTime.Private)
		pubs = append(pubs, msg.EphemeralKey)
	}
	return agree(privs, pubs)
}

// agree runs the DH set pairwise and feeds F || DH1 || ... into HKDF.
func agree(privs []domain.X25519Private, pubs []domain.X25519Public) ([]byte, error) {
	transcript := make([]byte, 0, 32*(len(privs)+1))
	transcript = append(transcript, filler()...)
	defer func() { memzero.Zero(transcript) }()
	for i := range privs {
		out, err := crypto.DH(privs[i], pubs[i])
		if err != nil {
			return nil, err
		}
		transcript = append(transcript, out[:]...)
		memzero.Zero(out[:])
	}
	return deriveRoot(transcript)
}

// filler is the 32 0xFF bytes X3DH prepends for X25519.
func filler() []byte {
	f := make([]byte, 32)
	for i := range f {
		f[i] = 0xFF
	}
	return f
}

func deriveRoot(ikm []byte) ([]byte, error) {
	root := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, make([]byte, sha256.Size), info), root); err != nil {
		return nil, err
	}
	return root, nil
}
