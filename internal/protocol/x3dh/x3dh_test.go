package x3dh_test

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"peerseal/internal/crypto"
	"peerseal/internal/domain"
	"peerseal/internal/protocol/x3dh"
)

// makePair creates a fresh X25519 pair.
func makePair(t *testing.T) domain.KeyPair {
	t.Helper()
	kp, err := crypto.NewKeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("NewKeyPair: %v", err)
	}
	return kp
}

func TestInitiatorAndResponderRoot_NoOneTimePreKey(t *testing.T) {
	alice := makePair(t)
	bob := makePair(t)
	bobSPK := makePair(t)

	bundle := x3dh.Bundle{IdentityKey: bob.Public, SignedPreKey: bobSPK.Public}
	rootInitiator, msg, err := x3dh.InitiatorRoot(alice, bundle)
	if err != nil {
		t.Fatalf("InitiatorRoot: %v", err)
	}
	if msg.UsedOneTimePreKey {
		t.Fatal("want no one-time pre-key in message")
	}
	rootResponder, err := x3dh.ResponderRoot(bob, bobSPK, nil, msg)
	if err != nil {
		t.Fatalf("ResponderRoot: %v", err)
	}
	if !bytes.Equal(rootInitiator, rootResponder) {
		t.Fatal("root keys differ (no OPK)")
	}
}

func TestInitiatorAndResponderRoot_WithOneTimePreKey(t *testing.T) {
	alice := makePair(t)
	bob := makePair(t)
	bobSPK := makePair(t)
	bobOPK := makePair(t)

	bundle := x3dh.Bundle{
		IdentityKey:     bob.Public,
		SignedPreKey:    bobSPK.Public,
		OneTimePreKeyID: 7,
		OneTimePreKey:   &bobOPK.Public,
	}
	rootInitiator, msg, err := x3dh.InitiatorRoot(alice, bundle)
	if err != nil {
		t.Fatalf("InitiatorRoot: %v", err)
	}
	if !msg.UsedOneTimePreKey || msg.OneTimePreKeyID != 7 {
		t.Fatalf("unexpected one-time pre-key in message: %+v", msg)
	}

	if _, err := x3dh.ResponderRoot(bob, bobSPK, nil, msg); !errors.Is(err, x3dh.ErrMissingOneTimePreKey) {
		t.Fatalf("got %v, want ErrMissingOneTimePreKey", err)
	}
	rootResponder, err := x3dh.ResponderRoot(bob, bobSPK, &bobOPK, msg)
	if err != nil {
		t.Fatalf("ResponderRoot: %v", err)
	}
	if !bytes.Equal(rootInitiator, rootResponder) {
		t.Fatal("root keys differ (with OPK)")
	}

	// Wrong one-time key yields a different root.
	other := makePair(t)
	rootWrong, err := x3dh.ResponderRoot(bob, bobSPK, &other, msg)
	if err != nil {
		t.Fatalf("ResponderRoot: %v", err)
	}
	if bytes.Equal(rootInitiator, rootWrong) {
		t.Fatal("root key ignores the one-time pre-key")
	}
}
