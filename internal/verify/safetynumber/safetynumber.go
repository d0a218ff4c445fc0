// Package safetynumber derives the 60-digit code two parties read to each
// other to confirm they hold each other's identity keys.
//
// The code is symmetric: both sides order the two (identifier, key) tuples
// canonically before hashing, so each computes the same digits
// independently. Digits come from an iterated SHA-512 digest (5200 rounds),
// five 8-byte groups each reduced mod 10^12.
package safetynumber

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode"
)

const (
	// Groups is the number of 12-digit groups in a safety number.
	Groups = 5
	// GroupDigits is the number of digits per group.
	GroupDigits = 12
	// Digits is the total number of digits.
	Digits = Groups * GroupDigits

	iterations = 5200
	groupMod   = 1_000_000_000_000
)

var version = []byte{0x00, 0x00}

type party struct {
	id  string
	pub []byte
}

// rank is the sort key used to order the two parties.
func (p party) rank() [32]byte {
	h := sha256.New()
	writeLP(h, []byte(p.id))
	h.Write(p.pub)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Generate returns the safety number for the two parties as five
// space-separated groups of 12 digits. Argument order does not matter.
func Generate(idA string, pubA []byte, idB string, pubB []byte) string {
	first, second := party{idA, pubA}, party{idB, pubB}
	ra, rb := first.rank(), second.rank()
	if bytes.Compare(ra[:], rb[:]) > 0 {
		first, second = second, first
	}

	h := sha512.New()
	h.Write(version)
	writeLP(h, []byte(first.id))
	h.Write(first.pub)
	writeLP(h, []byte(second.id))
	h.Write(second.pub)
	digest := h.Sum(nil)

	for i := 1; i < iterations; i++ {
		h.Reset()
		h.Write(digest)
		h.Write(first.pub)
		h.Write(second.pub)
		digest = h.Sum(digest[:0])
	}

	groups := make([]string, Groups)
	for i := range groups {
		n := binary.BigEndian.Uint64(digest[i*8:i*8+8]) % groupMod
		groups[i] = fmt.Sprintf("%0*d", GroupDigits, n)
	}
	return strings.Join(groups, " ")
}

// Compare reports whether a and b are the same safety number, ignoring all
// whitespace and letter case.
func Compare(a, b string) bool {
	return strings.EqualFold(stripSpace(a), stripSpace(b))
}

// Format lays a safety number out as three lines of four 5-digit blocks,
// the way it is usually shown for reading aloud.
func Format(sn string) string {
	digits := stripSpace(sn)
	var lines []string
	for i := 0; i < len(digits); i += 20 {
		line := digits[i:min(i+20, len(digits))]
		var blocks []string
		for j := 0; j < len(line); j += 5 {
			blocks = append(blocks, line[j:min(j+5, len(line))])
		}
		lines = append(lines, strings.Join(blocks, " "))
	}
	return strings.Join(lines, "\n")
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

type writer interface{ Write([]byte) (int, error) }

// writeLP writes b prefixed with its big-endian uint32 length.
func writeLP(w writer, b []byte) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(b)))
	w.Write(n[:])
	w.Write(b)
}
