package store

import (
	"context"
	"fmt"

	"peerseal/internal/domain"
)

const preKeysName = "prekeys"

type preKeysRecord struct {
	V    int                                `json:"v"`
	Keys map[domain.PreKeyID]domain.KeyPair `json:"keys"`
}

// SaveOneTimePreKeys replaces the stored one-time pre-keys with keys.
func (s *Store) SaveOneTimePreKeys(ctx context.Context, keys map[domain.PreKeyID]domain.KeyPair) error {
	s.preKeyMu.Lock()
	defer s.preKeyMu.Unlock()

	return s.savePreKeys(ctx, keys)
}

// LoadOneTimePreKeys returns the stored one-time pre-keys. The map is empty,
// never nil, when none are stored or they cannot be read.
func (s *Store) LoadOneTimePreKeys(ctx context.Context) map[domain.PreKeyID]domain.KeyPair {
	s.preKeyMu.Lock()
	defer s.preKeyMu.Unlock()

	return s.loadPreKeys(ctx)
}

// ConsumeOneTimePreKey removes and returns the pre-key with id. The bool is
// false if no such key is stored.
func (s *Store) ConsumeOneTimePreKey(ctx context.Context, id domain.PreKeyID) (domain.KeyPair, bool, error) {
	s.preKeyMu.Lock()
	defer s.preKeyMu.Unlock()

	keys := s.loadPreKeys(ctx)
	kp, ok := keys[id]
	if !ok {
		return domain.KeyPair{}, false, nil
	}
	delete(keys, id)
	if err := s.savePreKeys(ctx, keys); err != nil {
		return domain.KeyPair{}, false, err
	}
	return kp, true, nil
}

// AddOneTimePreKeys stores pairs under fresh ids following the highest id
// already stored and returns the first id used. Unlike LoadOneTimePreKeys it
// fails when the existing pool cannot be read, so a read error never
// replaces the pool.
func (s *Store) AddOneTimePreKeys(ctx context.Context, pairs []domain.KeyPair) (domain.PreKeyID, error) {
	s.preKeyMu.Lock()
	defer s.preKeyMu.Unlock()

	keys, err := s.readPreKeys(ctx)
	if err != nil {
		return 0, err
	}
	var next domain.PreKeyID
	for id := range keys {
		if id >= next {
			next = id + 1
		}
	}
	first := next
	for _, kp := range pairs {
		keys[next] = kp
		next++
	}
	if err := s.savePreKeys(ctx, keys); err != nil {
		return 0, err
	}
	return first, nil
}

// ReadOneTimePreKeys is LoadOneTimePreKeys without the degradation: an
// absent pool is empty, an unreadable one is an error.
func (s *Store) ReadOneTimePreKeys(ctx context.Context) (map[domain.PreKeyID]domain.KeyPair, error) {
	s.preKeyMu.Lock()
	defer s.preKeyMu.Unlock()

	return s.readPreKeys(ctx)
}

func (s *Store) readPreKeys(ctx context.Context) (map[domain.PreKeyID]domain.KeyPair, error) {
	var rec preKeysRecord
	found, err := s.readJSON(ctx, preKeysName, &rec)
	if err != nil {
		return nil, fmt.Errorf("store: read one-time pre-keys: %w", err)
	}
	if !found || rec.Keys == nil {
		return map[domain.PreKeyID]domain.KeyPair{}, nil
	}
	return rec.Keys, nil
}

func (s *Store) savePreKeys(ctx context.Context, keys map[domain.PreKeyID]domain.KeyPair) error {
	if keys == nil {
		keys = map[domain.PreKeyID]domain.KeyPair{}
	}
	if err := s.putJSON(ctx, preKeysName, preKeysRecord{V: recordVersion, Keys: keys}); err != nil {
		return fmt.Errorf("store: save one-time pre-keys: %w", err)
	}
	return nil
}

func (s *Store) loadPreKeys(ctx context.Context) map[domain.PreKeyID]domain.KeyPair {
	var rec preKeysRecord
	if !s.getJSON(ctx, preKeysName, &rec) || rec.Keys == nil {
		return map[domain.PreKeyID]domain.KeyPair{}
	}
	return rec.Keys
}
