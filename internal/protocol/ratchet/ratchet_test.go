package ratchet_test

import (
	"bytes"
	"crypto/rand"
	"errors"
	"math"
	"testing"
	"time"

	"peerseal/internal/crypto"
	"peerseal/internal/domain"
	"peerseal/internal/protocol/ratchet"
)

// makePair returns a fresh X25519 key pair.
func makePair(t *testing.T) domain.KeyPair {
	t.Helper()
	kp, err := crypto.NewKeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("NewKeyPair: %v", err)
	}
	return kp
}

// makeSessions returns matching initiator (alice) and responder (bob) states.
func makeSessions(t *testing.T, e *ratchet.Engine) (alice, bob domain.RatchetState) {
	t.Helper()
	// Shared root key from a prior X3DH (simulate).
	rk := bytes.Repeat([]byte{0x42}, 32)
	bobPair := makePair(t)

	alice, err := e.InitAsInitiator(rk, bobPair.Public)
	if err != nil {
		t.Fatalf("InitAsInitiator: %v", err)
	}
	bob, err = e.InitAsResponder(rk, bobPair, alice.SendRatchetKeyPair.Public)
	if err != nil {
		t.Fatalf("InitAsResponder: %v", err)
	}
	return alice, bob
}

type sent struct {
	header domain.RatchetHeader
	key    []byte
}

func sendN(t *testing.T, e *ratchet.Engine, st *domain.RatchetState, n int) []sent {
	t.Helper()
	out := make([]sent, 0, n)
	for i := 0; i < n; i++ {
		h, mk, err := e.EncryptNext(st)
		if err != nil {
			t.Fatalf("EncryptNext #%d: %v", i, err)
		}
		out = append(out, sent{h, mk})
	}
	return out
}

func mustDecrypt(t *testing.T, e *ratchet.Engine, st *domain.RatchetState, s sent) {
	t.Helper()
	mk, err := e.Decrypt(st, s.header)
	if err != nil {
		t.Fatalf("Decrypt n=%d: %v", s.header.MessageNumber, err)
	}
	if !bytes.Equal(mk, s.key) {
		t.Fatalf("Decrypt n=%d: key mismatch", s.header.MessageNumber)
	}
}

func TestDoubleRatchet_OneRoundTrip(t *testing.T) {
	alice, bob := makeSessions(t, ratchet.New())

	header, mk, err := ratchet.EncryptNext(&alice)
	if err != nil {
		t.Fatalf("EncryptNext: %v", err)
	}
	ct, err := ratchet.Seal(mk, header, []byte("ad"), []byte("hi"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	rk, err := ratchet.Decrypt(&bob, header)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	pt, err := ratchet.Open(rk, header, []byte("ad"), ct)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(pt) != "hi" {
		t.Fatalf("got %q, want %q", pt, "hi")
	}
	if _, err := ratchet.Open(rk, header, []byte("other"), ct); err == nil {
		t.Fatal("Open accepted mismatched associated data")
	}
}

func TestForwardProgress(t *testing.T) {
	e := ratchet.New()
	alice, bob := makeSessions(t, e)

	const n = 10
	msgs := sendN(t, e, &alice, n)
	if alice.SendMessageNumber != n {
		t.Fatalf("SendMessageNumber = %d, want %d", alice.SendMessageNumber, n)
	}
	seen := map[string]bool{}
	for _, m := range msgs {
		mustDecrypt(t, e, &bob, m)
		seen[string(m.key)] = true
	}
	if bob.ReceiveMessageNumber != n {
		t.Fatalf("ReceiveMessageNumber = %d, want %d", bob.ReceiveMessageNumber, n)
	}
	if len(seen) != n {
		t.Fatalf("got %d distinct keys, want %d", len(seen), n)
	}
}

func TestOutOfOrder_ServedFromCache(t *testing.T) {
	e := ratchet.New()
	alice, bob := makeSessions(t, e)
	msgs := sendN(t, e, &alice, 3)

	mustDecrypt(t, e, &bob, msgs[0])
	mustDecrypt(t, e, &bob, msgs[2])
	if got := len(bob.SkippedMessageKeys); got != 1 {
		t.Fatalf("cached keys = %d, want 1", got)
	}
	mustDecrypt(t, e, &bob, msgs[1])
	if got := len(bob.SkippedMessageKeys); got != 0 {
		t.Fatalf("cached keys = %d, want 0 after consumption", got)
	}
	if bytes.Equal(msgs[0].key, msgs[1].key) || bytes.Equal(msgs[1].key, msgs[2].key) {
		t.Fatal("message keys are not distinct")
	}
}

func TestReplay_Rejected(t *testing.T) {
	e := ratchet.New()
	alice, bob := makeSessions(t, e)
	msgs := sendN(t, e, &alice, 3)

	mustDecrypt(t, e, &bob, msgs[0])
	mustDecrypt(t, e, &bob, msgs[2])
	mustDecrypt(t, e, &bob, msgs[1])

	for _, m := range msgs {
		if _, err := e.Decrypt(&bob, m.header); !errors.Is(err, ratchet.ErrReplayOrUnknown) {
			t.Fatalf("replay n=%d: got %v, want ErrReplayOrUnknown", m.header.MessageNumber, err)
		}
	}
}

func TestBoundedSkip(t *testing.T) {
	e := ratchet.New(ratchet.WithMaxSkip(5))
	alice, bob := makeSessions(t, e)

	far := domain.RatchetHeader{RatchetKey: alice.SendRatchetKeyPair.Public, MessageNumber: 1 << 20}
	if _, err := e.Decrypt(&bob, far); !errors.Is(err, ratchet.ErrSkipLimitExceeded) {
		t.Fatalf("got %v, want ErrSkipLimitExceeded", err)
	}
	if len(bob.SkippedMessageKeys) != 0 || bob.ReceiveMessageNumber != 0 {
		t.Fatalf("state changed on rejected header: cache=%d nr=%d",
			len(bob.SkippedMessageKeys), bob.ReceiveMessageNumber)
	}

	// Exactly at the bound is accepted.
	msgs := sendN(t, e, &alice, 6)
	mustDecrypt(t, e, &bob, msgs[5])
	if got := len(bob.SkippedMessageKeys); got != 5 {
		t.Fatalf("cached keys = %d, want 5", got)
	}
}

func TestBoundedSkip_NewChain(t *testing.T) {
	e := ratchet.New(ratchet.WithMaxSkip(5))
	alice, bob := makeSessions(t, e)
	mustDecrypt(t, e, &bob, sendN(t, e, &alice, 1)[0])

	stranger := makePair(t)
	h := domain.RatchetHeader{RatchetKey: stranger.Public, PreviousChainLength: 4, MessageNumber: 3}
	if _, err := e.Decrypt(&bob, h); !errors.Is(err, ratchet.ErrSkipLimitExceeded) {
		t.Fatalf("got %v, want ErrSkipLimitExceeded", err)
	}
	if bob.ReceiveRatchetKey != alice.SendRatchetKeyPair.Public {
		t.Fatal("receive ratchet key replaced on rejected header")
	}
}

func TestPingPong_ManySteps(t *testing.T) {
	e := ratchet.New()
	alice, bob := makeSessions(t, e)

	roots := map[string]bool{}
	for round := 0; round < 6; round++ {
		for _, m := range sendN(t, e, &alice, round+1) {
			mustDecrypt(t, e, &bob, m)
		}
		for _, m := range sendN(t, e, &bob, 2) {
			mustDecrypt(t, e, &alice, m)
		}
		if !bytes.Equal(alice.RootKey, bob.RootKey) {
			t.Fatalf("round %d: root keys diverged", round)
		}
		if roots[string(alice.RootKey)] {
			t.Fatalf("round %d: root key reused", round)
		}
		roots[string(alice.RootKey)] = true
	}
	if alice.PreviousSendChainLength != 6 {
		t.Fatalf("alice PreviousSendChainLength = %d, want 6", alice.PreviousSendChainLength)
	}
	if alice.SendMessageNumber != 0 || len(alice.SendChainKey) != 0 {
		t.Fatal("alice send chain should be retired after receiving a new ratchet key")
	}
}

func TestResponderFirstSend_StartsChain(t *testing.T) {
	e := ratchet.New()
	alice, bob := makeSessions(t, e)
	initial := bob.SendRatchetKeyPair.Public
	if len(bob.SendChainKey) != 0 {
		t.Fatal("responder should start without a send chain")
	}
	msgs := sendN(t, e, &bob, 1)
	if bob.SendRatchetKeyPair.Public == initial {
		t.Fatal("responder reused its published ratchet key")
	}
	mustDecrypt(t, e, &alice, msgs[0])
}

func TestLateMessageFromPreviousChain(t *testing.T) {
	e := ratchet.New()
	alice, bob := makeSessions(t, e)

	a := sendN(t, e, &alice, 2) // bob only sees a[0] for now
	mustDecrypt(t, e, &bob, a[0])

	b := sendN(t, e, &bob, 1)
	mustDecrypt(t, e, &alice, b[0])

	a2 := sendN(t, e, &alice, 1)[0]
	if a2.header.PreviousChainLength != 2 {
		t.Fatalf("header PN = %d, want 2", a2.header.PreviousChainLength)
	}
	mustDecrypt(t, e, &bob, a2)
	if got := len(bob.SkippedMessageKeys); got != 1 {
		t.Fatalf("cached keys = %d, want 1 (drained old chain)", got)
	}
	mustDecrypt(t, e, &bob, a[1])

	// a[0] belongs to a retired chain and was consumed long ago.
	before := bob.Clone()
	if _, err := e.Decrypt(&bob, a[0].header); !errors.Is(err, ratchet.ErrReplayOrUnknown) {
		t.Fatalf("got %v, want ErrReplayOrUnknown", err)
	}
	if !bytes.Equal(before.RootKey, bob.RootKey) || before.ReceiveRatchetKey != bob.ReceiveRatchetKey {
		t.Fatal("state changed on replayed header")
	}
}

func TestGlobalCap_EvictsOldest(t *testing.T) {
	e := ratchet.New(ratchet.WithMaxSkippedKeys(3))
	alice, bob := makeSessions(t, e)
	msgs := sendN(t, e, &alice, 6)

	mustDecrypt(t, e, &bob, msgs[5])
	if got := len(bob.SkippedMessageKeys); got != 3 {
		t.Fatalf("cached keys = %d, want 3", got)
	}
	for _, i := range []int{2, 3, 4} {
		mustDecrypt(t, e, &bob, msgs[i])
	}
	if _, err := e.Decrypt(&bob, msgs[0].header); !errors.Is(err, ratchet.ErrReplayOrUnknown) {
		t.Fatalf("evicted key: got %v, want ErrReplayOrUnknown", err)
	}
}

func TestPrune_ByAge(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e := ratchet.New(ratchet.WithClock(func() time.Time { return now }))
	alice, bob := makeSessions(t, e)
	msgs := sendN(t, e, &alice, 3)
	mustDecrypt(t, e, &bob, msgs[2])

	if n := e.Prune(&bob, time.Hour); n != 0 {
		t.Fatalf("pruned %d fresh keys", n)
	}
	now = now.Add(2 * time.Hour)
	if n := e.Prune(&bob, time.Hour); n != 2 {
		t.Fatalf("pruned %d keys, want 2", n)
	}
	if len(bob.SkippedMessageKeys) != 0 {
		t.Fatal("cache not empty after prune")
	}
}

func TestCounterOverflow_FailsClosed(t *testing.T) {
	e := ratchet.New(ratchet.WithMaxSkip(math.MaxUint32))
	alice, bob := makeSessions(t, e)

	h := domain.RatchetHeader{RatchetKey: alice.SendRatchetKeyPair.Public, MessageNumber: math.MaxUint32}
	if _, err := e.Decrypt(&bob, h); !errors.Is(err, ratchet.ErrReplayOrUnknown) {
		t.Fatalf("got %v, want ErrReplayOrUnknown", err)
	}

	alice.SendMessageNumber = math.MaxUint32
	if _, _, err := e.EncryptNext(&alice); !errors.Is(err, ratchet.ErrChainExhausted) {
		t.Fatalf("got %v, want ErrChainExhausted", err)
	}
}

func TestInit_Errors(t *testing.T) {
	peer := makePair(t)
	if _, err := ratchet.InitAsInitiator([]byte("short"), peer.Public); !errors.Is(err, ratchet.ErrInvalidRootKey) {
		t.Fatalf("got %v, want ErrInvalidRootKey", err)
	}
	e := ratchet.New(ratchet.WithRandom(bytes.NewReader(nil)))
	if _, err := e.InitAsInitiator(make([]byte, 32), peer.Public); err == nil {
		t.Fatal("expected error from exhausted random source")
	}
}

func TestClone_IsDeep(t *testing.T) {
	e := ratchet.New()
	alice, bob := makeSessions(t, e)
	msgs := sendN(t, e, &alice, 3)
	mustDecrypt(t, e, &bob, msgs[2])

	snapshot := bob.Clone()
	mustDecrypt(t, e, &bob, msgs[1])
	if len(snapshot.SkippedMessageKeys) != 2 {
		t.Fatal("clone shares the skipped-key map")
	}
	mustDecrypt(t, e, &snapshot, msgs[0])
}

func TestParseHeader(t *testing.T) {
	h := domain.RatchetHeader{RatchetKey: domain.X25519Public{9}, PreviousChainLength: 7, MessageNumber: 3}
	got, err := ratchet.ParseHeader(h.Bytes())
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
	if _, err := ratchet.ParseHeader(h.Bytes()[:10]); !errors.Is(err, ratchet.ErrMalformedHeader) {
		t.Fatalf("got %v, want ErrMalformedHeader", err)
	}
}
