package store

import (
	"context"
	"fmt"

	"peerseal/internal/domain"
)

const identityName = "identity"

type identityRecord struct {
	V int `json:"v"`
	domain.IdentityKeys
}

// SaveIdentityKeys stores the identity and signed pre-key pairs and stamps
// the rotation time.
func (s *Store) SaveIdentityKeys(ctx context.Context, identity, signedPreKey domain.KeyPair) error {
	rec := identityRecord{
		V: recordVersion,
		IdentityKeys: domain.IdentityKeys{
			IdentityKeyPair:  identity,
			SignedPreKeyPair: signedPreKey,
			LastRotated:      s.now().UTC(),
		},
	}
	if err := s.putJSON(ctx, identityName, rec); err != nil {
		return fmt.Errorf("store: save identity: %w", err)
	}
	return nil
}

// LoadIdentityKeys returns the stored identity, or false if none can be read.
func (s *Store) LoadIdentityKeys(ctx context.Context) (domain.IdentityKeys, bool) {
	var rec identityRecord
	if !s.getJSON(ctx, identityName, &rec) {
		return domain.IdentityKeys{}, false
	}
	return rec.IdentityKeys, true
}
