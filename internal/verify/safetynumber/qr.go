package safetynumber

import (
	"bytes"
	"encoding/base64"
	"errors"

	"github.com/fxamacker/cbor/v2"
)

const qrVersion = 1

// Status is the outcome of VerifyQRCodeData.
type Status int

const (
	// Invalid means the payload could not be decoded.
	Invalid Status = iota
	// Valid means the payload names the expected peer and key.
	Valid
	// Mismatch means the payload decoded but names a different peer or key.
	Mismatch
)

func (s Status) String() string {
	switch s {
	case Valid:
		return "valid"
	case Mismatch:
		return "mismatch"
	default:
		return "invalid"
	}
}

// QRResult is returned by VerifyQRCodeData. The remote fields are only set
// for Valid.
type QRResult struct {
	Status           Status
	RemoteIdentifier string
	RemotePublicKey  []byte
	SafetyNumber     string
}

// qrPayload is the compact CBOR map carried in the QR code.
type qrPayload struct {
	Version      int    `cbor:"1,keyasint"`
	Identifier   string `cbor:"2,keyasint"`
	PublicKey    []byte `cbor:"3,keyasint"`
	SafetyNumber string `cbor:"4,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{MaxArrayElements: 16, MaxMapPairs: 16}).DecMode(); err != nil {
		panic(err)
	}
}

var errBadQRVersion = errors.New("safetynumber: unsupported qr payload version")

// GenerateQRCodeData returns the payload the local party displays for the
// peer to scan: its own identifier and key plus the safety number, as
// base64url (unpadded) CBOR.
func GenerateQRCodeData(selfID string, selfPub []byte, peerID string, peerPub []byte) (string, error) {
	b, err := encMode.Marshal(qrPayload{
		Version:      qrVersion,
		Identifier:   selfID,
		PublicKey:    selfPub,
		SafetyNumber: Generate(selfID, selfPub, peerID, peerPub),
	})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// VerifyQRCodeData checks a scanned payload against the identifier and key
// we expect the peer to have.
func VerifyQRCodeData(payload, expectedPeerID string, expectedPeerPub []byte) QRResult {
	p, err := decodeQR(payload)
	if err != nil {
		return QRResult{Status: Invalid}
	}
	if p.Identifier != expectedPeerID || !bytes.Equal(p.PublicKey, expectedPeerPub) {
		return QRResult{Status: Mismatch}
	}
	return QRResult{
		Status:           Valid,
		RemoteIdentifier: p.Identifier,
		RemotePublicKey:  p.PublicKey,
		SafetyNumber:     p.SafetyNumber,
	}
}

// VerifyQRCodeDataFor is VerifyQRCodeData plus a check that the embedded
// safety number matches the one we compute for ourselves and the peer.
func VerifyQRCodeDataFor(payload, selfID string, selfPub []byte, expectedPeerID string, expectedPeerPub []byte) QRResult {
	res := VerifyQRCodeData(payload, expectedPeerID, expectedPeerPub)
	if res.Status != Valid {
		return res
	}
	if !Compare(res.SafetyNumber, Generate(selfID, selfPub, expectedPeerID, expectedPeerPub)) {
		return QRResult{Status: Mismatch}
	}
	return res
}

func decodeQR(payload string) (qrPayload, error) {
	var p qrPayload
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return p, err
	}
	if err := decMode.Unmarshal(raw, &p); err != nil {
		return p, err
	}
	if p.Version != qrVersion {
		return p, errBadQRVersion
	}
	return p, nil
}
