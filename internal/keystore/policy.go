package keystore

import (
	"fmt"
	"unicode"
)

// MinPassphraseLength is the minimum number of characters CheckPassphrase
// accepts.
const MinPassphraseLength = 12

// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
var ErrWeakPassphrase = fmt.Errorf(
	"keystore: passphrase is too weak (must be at least %d characters and include upper, lower, "+
		"number, and symbol)",
	MinPassphraseLength,
)

// CheckPassphrase enforces a basic strength policy on a passphrase used to
// seal a new device key.
func CheckPassphrase(passphrase string) error {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len([]rune(passphrase)) < MinPassphraseLength {
		return ErrWeakPassphrase
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	if !(hasUpper && hasLower && hasDigit && hasSymbol) {
		return ErrWeakPassphrase
	}
	return nil
}
