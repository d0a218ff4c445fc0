// Package fingerprint derives a digest of a live session from both parties'
// current ratchet keys and the session's associated data. Unlike a safety
// number it changes as the ratchet turns, so it is compared while both
// devices are side by side.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"image/color"
	"strings"
)

const (
	// Size is the length of a fingerprint in hex characters.
	Size = sha256.Size * 2
	// ShortSize is the length returned by GenerateShort.
	ShortSize = 16
	// Colors is the number of swatches from GenerateColorFingerprint.
	Colors = 8
)

var (
	// ErrMalformed is returned for a fingerprint that is not Size hex chars.
	ErrMalformed = errors.New("fingerprint: malformed fingerprint")
	// ErrBadGroupSize is returned by Format when groupSize does not divide
	// the input evenly.
	ErrBadGroupSize = errors.New("fingerprint: group size must divide length")
)

var version = []byte{0x00, 0x01}

// Generate returns the 64-char lowercase hex fingerprint of a session.
// Swapping local and remote gives the same result.
func Generate(localPub, remotePub, associatedData []byte) string {
	lo, hi := localPub, remotePub
	if bytes.Compare(lo, hi) > 0 {
		lo, hi = hi, lo
	}
	h := sha256.New()
	h.Write(version)
	writeLP(h, lo)
	writeLP(h, hi)
	h.Write(associatedData)
	return hex.EncodeToString(h.Sum(nil))
}

// GenerateShort returns the first ShortSize characters of fp.
func GenerateShort(fp string) string {
	if len(fp) <= ShortSize {
		return fp
	}
	return fp[:ShortSize]
}

// Format splits fp into space-separated groups of groupSize characters.
func Format(fp string, groupSize int) (string, error) {
	if groupSize <= 0 || len(fp)%groupSize != 0 {
		return "", fmt.Errorf("%w: %d into %d", ErrBadGroupSize, groupSize, len(fp))
	}
	groups := make([]string, 0, len(fp)/groupSize)
	for i := 0; i < len(fp); i += groupSize {
		groups = append(groups, fp[i:i+groupSize])
	}
	return strings.Join(groups, " "), nil
}

// Verify regenerates the fingerprint and compares it to candidate ignoring
// case.
func Verify(localPub, remotePub, associatedData []byte, candidate string) bool {
	return strings.EqualFold(Generate(localPub, remotePub, associatedData), candidate)
}

// Color is a swatch with 4-bit channels.
type Color struct {
	R, G, B uint8
}

// RGBA scales each channel to 8 bits.
func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: c.R * 17, G: c.G * 17, B: c.B * 17, A: 0xff}
}

// CSS returns the swatch as "rgb(r,g,b)" with 8-bit channels.
func (c Color) CSS() string {
	s := c.RGBA()
	return fmt.Sprintf("rgb(%d,%d,%d)", s.R, s.G, s.B)
}

// GenerateColorFingerprint maps fp to Colors swatches. Swatch i is built
// from the eight nibbles at fp[8i:8i+8] folded into three channels.
func GenerateColorFingerprint(fp string) ([Colors]Color, error) {
	var out [Colors]Color
	if len(fp) != Size {
		return out, ErrMalformed
	}
	raw, err := hex.DecodeString(fp)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for i := range out {
		var n [8]uint8
		for j := range n {
			b := raw[i*4+j/2]
			if j%2 == 0 {
				n[j] = b >> 4
			} else {
				n[j] = b & 0x0f
			}
		}
		out[i] = Color{
			R: n[0] ^ n[3] ^ n[6],
			G: n[1] ^ n[4] ^ n[7],
			B: n[2] ^ n[5],
		}
	}
	return out, nil
}

func writeLP(h interface{ Write([]byte) (int, error) }, b []byte) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(b)))
	h.Write(n[:])
	h.Write(b)
}
