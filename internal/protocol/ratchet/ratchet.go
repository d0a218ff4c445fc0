package ratchet

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"peerseal/internal/crypto"
	"peerseal/internal/domain"
	"peerseal/internal/util/memzero"
)

const (
	// DefaultMaxSkip bounds how many keys a single Decrypt may cache.
	DefaultMaxSkip uint32 = 1000
	// DefaultMaxSkippedKeys bounds the skipped-key cache of one state.
	DefaultMaxSkippedKeys = 2000

	maxRetiredKeys = 8
)

var (
	// ErrReplayOrUnknown means the key for a header cannot be derived or was
	// already consumed. Retrying the same header never succeeds.
	ErrReplayOrUnknown = errors.New("ratchet: message key replayed or unknown")
	// ErrSkipLimitExceeded means the header lies too far ahead of the chain.
	ErrSkipLimitExceeded = errors.New("ratchet: skip limit exceeded")
	// ErrChainExhausted means the sending counter reached its maximum.
	ErrChainExhausted = errors.New("ratchet: sending chain exhausted")
	// ErrInvalidRootKey is returned by the initialisers for a root key that is
	// not 32 bytes long.
	ErrInvalidRootKey = errors.New("ratchet: root key must be 32 bytes")

	errNoPeerRatchetKey = errors.New("ratchet: no peer ratchet key")
)

// Engine runs the ratchet transitions. It holds configuration only; all
// per-peer data lives in the domain.RatchetState passed to each call.
type Engine struct {
	maxSkip    uint32
	maxSkipped int
	now        func() time.Time
	rand       io.Reader
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSkip sets the number of keys one Decrypt call may cache.
func WithMaxSkip(n uint32) Option { return func(e *Engine) { e.maxSkip = n } }

// WithMaxSkippedKeys caps the skipped-key cache; the oldest entries go first.
func WithMaxSkippedKeys(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSkipped = n
		}
	}
}

// WithClock overrides the time source used to stamp skipped keys.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithRandom overrides the source of ratchet key material.
func WithRandom(r io.Reader) Option { return func(e *Engine) { e.rand = r } }

// New returns an Engine with the given options applied over the defaults.
func New(opts ...Option) *Engine {
	e := &Engine{
		maxSkip:    DefaultMaxSkip,
		maxSkipped: DefaultMaxSkippedKeys,
		now:        time.Now,
		rand:       rand.Reader,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

var defaultEngine = New()

// InitAsInitiator calls InitAsInitiator on a default Engine.
func InitAsInitiator(root []byte, peerRatchetKey domain.X25519Public) (domain.RatchetState, error) {
	return defaultEngine.InitAsInitiator(root, peerRatchetKey)
}

// InitAsResponder calls InitAsResponder on a default Engine.
func InitAsResponder(root []byte, ours domain.KeyPair, peerRatchetKey domain.X25519Public) (domain.RatchetState, error) {
	return defaultEngine.InitAsResponder(root, ours, peerRatchetKey)
}

// EncryptNext calls EncryptNext on a default Engine.
func EncryptNext(st *domain.RatchetState) (domain.RatchetHeader, []byte, error) {
	return defaultEngine.EncryptNext(st)
}

// Decrypt calls Decrypt on a default Engine.
func Decrypt(st *domain.RatchetState, header domain.RatchetHeader) ([]byte, error) {
	return defaultEngine.Decrypt(st, header)
}

// InitAsInitiator seeds the sending chain from root using a fresh ratchet key
// and the responder's published ratchet key.
func (e *Engine) InitAsInitiator(root []byte, peerRatchetKey domain.X25519Public) (domain.RatchetState, error) {
	if len(root) != keySize {
		return domain.RatchetState{}, ErrInvalidRootKey
	}
	pair, err := crypto.NewKeyPair(e.rand)
	if err != nil {
		return domain.RatchetState{}, err
	}
	dh, err := crypto.DH(pair.Private, peerRatchetKey)
	if err != nil {
		return domain.RatchetState{}, err
	}
	rk, sendCK := kdfRK(root, dh[:])
	memzero.Zero(dh[:])

	return domain.RatchetState{
		RootKey:            rk,
		SendChainKey:       sendCK,
		SendRatchetKeyPair: pair,
		ReceiveRatchetKey:  peerRatchetKey,
		SkippedMessageKeys: make(map[string]domain.SkippedMessageKey),
	}, nil
}

// InitAsResponder seeds the receiving chain from root using our published
// ratchet pair and the initiator's first ratchet key. The sending chain
// starts on the first EncryptNext.
func (e *Engine) InitAsResponder(root []byte, ours domain.KeyPair, peerRatchetKey domain.X25519Public) (domain.RatchetState, error) {
	if len(root) != keySize {
		return domain.RatchetState{}, ErrInvalidRootKey
	}
	dh, err := crypto.DH(ours.Private, peerRatchetKey)
	if err != nil {
		return domain.RatchetState{}, err
	}
	rk, recvCK := kdfRK(root, dh[:])
	memzero.Zero(dh[:])

	return domain.RatchetState{
		RootKey:            rk,
		ReceiveChainKey:    recvCK,
		SendRatchetKeyPair: ours,
		ReceiveRatchetKey:  peerRatchetKey,
		SkippedMessageKeys: make(map[string]domain.SkippedMessageKey),
	}, nil
}

// EncryptNext derives the key for the next outgoing message and the header
// that must travel with it. A DH ratchet step runs first when no sending
// chain is active.
func (e *Engine) EncryptNext(st *domain.RatchetState) (domain.RatchetHeader, []byte, error) {
	if len(st.SendChainKey) == 0 {
		if err := e.stepSend(st); err != nil {
			return domain.RatchetHeader{}, nil, err
		}
	}
	if st.SendMessageNumber == math.MaxUint32 {
		return domain.RatchetHeader{}, nil, ErrChainExhausted
	}

	nextCK, mk := kdfCK(st.SendChainKey)
	h := domain.RatchetHeader{
		RatchetKey:          st.SendRatchetKeyPair.Public,
		PreviousChainLength: st.PreviousSendChainLength,
		MessageNumber:       st.SendMessageNumber,
	}
	st.SendChainKey = nextCK
	st.SendMessageNumber++
	return h, mk, nil
}

// Decrypt resolves the message key for header. Keys derived on the way are
// cached on st even when the caller later rejects the message, so a
// subsequent out-of-order arrival can still be served.
//
// Errors leave the state unchanged.
func (e *Engine) Decrypt(st *domain.RatchetState, header domain.RatchetHeader) ([]byte, error) {
	id := skippedKeyID(header.RatchetKey, header.MessageNumber)
	if sk, ok := st.SkippedMessageKeys[id]; ok {
		delete(st.SkippedMessageKeys, id)
		return sk.Key, nil
	}
	if header.MessageNumber == math.MaxUint32 {
		return nil, ErrReplayOrUnknown
	}

	// Current receiving chain.
	if header.RatchetKey == st.ReceiveRatchetKey {
		if len(st.ReceiveChainKey) == 0 || header.MessageNumber < st.ReceiveMessageNumber {
			return nil, ErrReplayOrUnknown
		}
		if header.MessageNumber-st.ReceiveMessageNumber > e.maxSkip {
			return nil, ErrSkipLimitExceeded
		}
		e.remember(st, e.skip(st, header.MessageNumber, nil))
		return advanceReceive(st), nil
	}

	if isRetired(st, header.RatchetKey) {
		return nil, ErrReplayOrUnknown
	}

	// New chain: count what the old chain still owes us plus the gap on the
	// new one before touching anything.
	var oldGap uint32
	if len(st.ReceiveChainKey) > 0 && header.PreviousChainLength > st.ReceiveMessageNumber {
		oldGap = header.PreviousChainLength - st.ReceiveMessageNumber
	}
	if uint64(oldGap)+uint64(header.MessageNumber) > uint64(e.maxSkip) {
		return nil, ErrSkipLimitExceeded
	}
	dh, err := crypto.DH(st.SendRatchetKeyPair.Private, header.RatchetKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReplayOrUnknown, err)
	}

	var batch []domain.SkippedMessageKey
	if oldGap > 0 {
		batch = e.skip(st, header.PreviousChainLength, batch)
	}
	e.stepReceive(st, header.RatchetKey, dh[:])
	memzero.Zero(dh[:])

	batch = e.skip(st, header.MessageNumber, batch)
	e.remember(st, batch)
	return advanceReceive(st), nil
}

// Prune drops skipped keys older than maxAge and reports how many went.
func (e *Engine) Prune(st *domain.RatchetState, maxAge time.Duration) int {
	return PruneSkipped(st, e.now().Add(-maxAge))
}

// stepSend starts a new sending chain with a fresh ratchet key.
func (e *Engine) stepSend(st *domain.RatchetState) error {
	if st.ReceiveRatchetKey.IsZero() {
		return errNoPeerRatchetKey
	}
	pair, err := crypto.NewKeyPair(e.rand)
	if err != nil {
		return err
	}
	dh, err := crypto.DH(pair.Private, st.ReceiveRatchetKey)
	if err != nil {
		return err
	}
	rk, sendCK := kdfRK(st.RootKey, dh[:])
	memzero.Zero(dh[:])

	st.RootKey = rk
	st.SendRatchetKeyPair = pair
	st.SendChainKey = sendCK
	st.SendMessageNumber = 0
	return nil
}

// stepReceive replaces the receiving chain after the peer switched ratchet
// keys. The active sending chain, if any, is retired so the next send starts
// a new one.
func (e *Engine) stepReceive(st *domain.RatchetState, peer domain.X25519Public, dh []byte) {
	rk, recvCK := kdfRK(st.RootKey, dh)

	retire(st, st.ReceiveRatchetKey)
	if len(st.SendChainKey) > 0 {
		st.PreviousSendChainLength = st.SendMessageNumber
		st.SendMessageNumber = 0
		st.SendChainKey = nil
	}
	st.RootKey = rk
	st.ReceiveChainKey = recvCK
	st.ReceiveRatchetKey = peer
	st.ReceiveMessageNumber = 0
}

// skip derives receive keys up to (not including) until and appends them to
// batch.
func (e *Engine) skip(st *domain.RatchetState, until uint32, batch []domain.SkippedMessageKey) []domain.SkippedMessageKey {
	now := e.now()
	for st.ReceiveMessageNumber < until {
		nextCK, mk := kdfCK(st.ReceiveChainKey)
		batch = append(batch, domain.SkippedMessageKey{
			RatchetKey:    st.ReceiveRatchetKey,
			MessageNumber: st.ReceiveMessageNumber,
			Key:           mk,
			CreatedAt:     now,
		})
		st.ReceiveChainKey = nextCK
		st.ReceiveMessageNumber++
	}
	return batch
}

func advanceReceive(st *domain.RatchetState) []byte {
	nextCK, mk := kdfCK(st.ReceiveChainKey)
	st.ReceiveChainKey = nextCK
	st.ReceiveMessageNumber++
	return mk
}

func isRetired(st *domain.RatchetState, key domain.X25519Public) bool {
	for _, k := range st.RetiredReceiveRatchetKeys {
		if k == key {
			return true
		}
	}
	return false
}

func retire(st *domain.RatchetState, key domain.X25519Public) {
	if key.IsZero() {
		return
	}
	st.RetiredReceiveRatchetKeys = append(st.RetiredReceiveRatchetKeys, key)
	if n := len(st.RetiredReceiveRatchetKeys); n > maxRetiredKeys {
		st.RetiredReceiveRatchetKeys = append([]domain.X25519Public(nil), st.RetiredReceiveRatchetKeys[n-maxRetiredKeys:]...)
	}
}
