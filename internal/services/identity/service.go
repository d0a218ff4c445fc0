package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"peerseal/internal/crypto"
	"peerseal/internal/domain"
	"peerseal/internal/protocol/x3dh"
)

var (
	// ErrNoIdentity is returned when no identity has been generated yet.
	ErrNoIdentity = errors.New("identity: no identity; run init first")
	// ErrBadCount is returned for a negative pre-key count.
	ErrBadCount = errors.New("identity: pre-key count must not be negative")
)

// Store is the persistence the service needs.
type Store interface {
	domain.IdentityStore
	domain.PreKeyStore
}

// Service manages identity key creation and access using a backing store.
type Service struct {
	store Store
	log   *zap.Logger
	rand  io.Reader
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRandom overrides the key material source.
func WithRandom(r io.Reader) Option { return func(s *Service) { s.rand = r } }

// New returns an identity service backed by the given store.
func New(st Store, opts ...Option) *Service {
	s := &Service{store: st, log: zap.NewNop(), rand: rand.Reader}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Generate creates a new identity and signed pre-key, adds oneTimeCount
// one-time pre-keys and persists everything. Any previous identity is
// replaced; existing one-time pre-keys are kept.
func (s *Service) Generate(ctx context.Context, oneTimeCount int) (domain.IdentityKeys, domain.Fingerprint, error) {
	if oneTimeCount < 0 {
		return domain.IdentityKeys{}, "", ErrBadCount
	}
	id, err := crypto.NewKeyPair(s.rand)
	if err != nil {
		return domain.IdentityKeys{}, "", err
	}
	spk, err := crypto.NewKeyPair(s.rand)
	if err != nil {
		return domain.IdentityKeys{}, "", err
	}
	if err := s.store.SaveIdentityKeys(ctx, id, spk); err != nil {
		return domain.IdentityKeys{}, "", err
	}
	if _, err := s.addOneTime(ctx, oneTimeCount); err != nil {
		return domain.IdentityKeys{}, "", err
	}

	keys, ok := s.store.LoadIdentityKeys(ctx)
	if !ok {
		return domain.IdentityKeys{}, "", ErrNoIdentity
	}
	fp := crypto.Fingerprint(id.Public)
	s.log.Info("identity generated", zap.String("fingerprint", string(fp)), zap.Int("one_time", oneTimeCount))
	return keys, fp, nil
}

// Load returns the stored identity.
func (s *Service) Load(ctx context.Context) (domain.IdentityKeys, error) {
	keys, ok := s.store.LoadIdentityKeys(ctx)
	if !ok {
		return domain.IdentityKeys{}, ErrNoIdentity
	}
	return keys, nil
}

// Fingerprint returns a short fingerprint of the identity public key.
func (s *Service) Fingerprint(ctx context.Context) (domain.Fingerprint, error) {
	keys, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	return crypto.Fingerprint(keys.IdentityKeyPair.Public), nil
}

// RotateSignedPreKey replaces the signed pre-key and returns the new pair.
func (s *Service) RotateSignedPreKey(ctx context.Context) (domain.KeyPair, error) {
	keys, err := s.Load(ctx)
	if err != nil {
		return domain.KeyPair{}, err
	}
	spk, err := crypto.NewKeyPair(s.rand)
	if err != nil {
		return domain.KeyPair{}, err
	}
	if err := s.store.SaveIdentityKeys(ctx, keys.IdentityKeyPair, spk); err != nil {
		return domain.KeyPair{}, err
	}
	s.log.Info("signed pre-key rotated")
	return spk, nil
}

// Replenish tops the one-time pre-key pool up to target and reports how
// many keys were added.
func (s *Service) Replenish(ctx context.Context, target int) (int, error) {
	if target < 0 {
		return 0, ErrBadCount
	}
	if _, err := s.Load(ctx); err != nil {
		return 0, err
	}
	pool, err := s.store.ReadOneTimePreKeys(ctx)
	if err != nil {
		return 0, err
	}
	have := len(pool)
	if have >= target {
		return 0, nil
	}
	return s.addOneTime(ctx, target-have)
}

// Bundle returns the public material a peer needs to start a session with
// us. It offers the one-time pre-key with the lowest id, if any.
func (s *Service) Bundle(ctx context.Context) (x3dh.Bundle, error) {
	keys, err := s.Load(ctx)
	if err != nil {
		return x3dh.Bundle{}, err
	}
	b := x3dh.Bundle{
		IdentityKey:  keys.IdentityKeyPair.Public,
		SignedPreKey: keys.SignedPreKeyPair.Public,
	}
	var (
		lowest domain.PreKeyID
		found  bool
	)
	otks := s.store.LoadOneTimePreKeys(ctx)
	for id := range otks {
		if !found || id < lowest {
			lowest, found = id, true
		}
	}
	if found {
		pub := otks[lowest].Public
		b.OneTimePreKeyID = lowest
		b.OneTimePreKey = &pub
	}
	return b, nil
}

// Accept derives the root key for an incoming X3DH initial message,
// consuming the one-time pre-key it names.
func (s *Service) Accept(ctx context.Context, msg x3dh.InitialMessage) ([]byte, domain.KeyPair, error) {
	keys, err := s.Load(ctx)
	if err != nil {
		return nil, domain.KeyPair{}, err
	}
	var oneTime *domain.KeyPair
	if msg.UsedOneTimePreKey {
		kp, ok, err := s.store.ConsumeOneTimePreKey(ctx, msg.OneTimePreKeyID)
		if err != nil {
			return nil, domain.KeyPair{}, err
		}
		if !ok {
			return nil, domain.KeyPair{}, fmt.Errorf("%w: id %d", x3dh.ErrMissingOneTimePreKey, msg.OneTimePreKeyID)
		}
		oneTime = &kp
	}
	root, err := x3dh.ResponderRoot(keys.IdentityKeyPair, keys.SignedPreKeyPair, oneTime, msg)
	if err != nil {
		return nil, domain.KeyPair{}, err
	}
	return root, keys.SignedPreKeyPair, nil
}

// addOneTime generates n one-time pre-keys with ids after the highest
// stored id. An unreadable pool is an error rather than an empty one.
func (s *Service) addOneTime(ctx context.Context, n int) (int, error) {
	if n == 0 {
		return 0, nil
	}
	pairs := make([]domain.KeyPair, n)
	for i := range pairs {
		kp, err := crypto.NewKeyPair(s.rand)
		if err != nil {
			return 0, err
		}
		pairs[i] = kp
	}
	first, err := s.store.AddOneTimePreKeys(ctx, pairs)
	if err != nil {
		return 0, err
	}
	s.log.Debug("one-time pre-keys added", zap.Int("count", n), zap.Uint32("first", uint32(first)))
	return n, nil
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
