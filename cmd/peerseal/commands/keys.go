package commands

import (
	"fmt"

	"peerseal/internal/domain"
)

// parsePeerKey decodes a base64url X25519 public key as printed by
// `peerseal identity`.
func parsePeerKey(s string) (domain.X25519Public, error) {
	var pub domain.X25519Public
	if err := pub.UnmarshalText([]byte(s)); err != nil {
		return pub, fmt.Errorf("peer key: %w", err)
	}
	return pub, nil
}

func encodeKey(pub domain.X25519Public) string {
	b, _ := pub.MarshalText()
	return string(b)
}
