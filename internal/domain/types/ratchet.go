package types

import (
	"encoding/binary"
	"time"
)

// HeaderSize is the length of RatchetHeader.Bytes.
const HeaderSize = 32 + 4 + 4

// RatchetHeader is sent alongside every ciphertext.
type RatchetHeader struct {
	RatchetKey          X25519Public `json:"dh_pub"`
	PreviousChainLength uint32       `json:"pn"`
	MessageNumber       uint32       `json:"n"`
}

// Bytes returns the canonical encoding: key || pn || n, big-endian.
func (h RatchetHeader) Bytes() []byte {
	out := make([]byte, HeaderSize)
	copy(out, h.RatchetKey[:])
	binary.BigEndian.PutUint32(out[32:], h.PreviousChainLength)
	binary.BigEndian.PutUint32(out[36:], h.MessageNumber)
	return out
}

// SkippedMessageKey is a receive key derived ahead of need.
type SkippedMessageKey struct {
	RatchetKey    X25519Public `json:"dh_pub"`
	MessageNumber uint32       `json:"n"`
	Key           []byte       `json:"mk"`
	CreatedAt     time.Time    `json:"created"`
}

// RatchetState contains all fields the Double Ratchet needs to track for a
// single peer. It is a flat value; use Clone before handing a copy to code
// that may mutate it.
type RatchetState struct {
	RootKey                   []byte                       `json:"root_key"`
	SendChainKey              []byte                       `json:"send_ck,omitempty"`
	ReceiveChainKey           []byte                       `json:"recv_ck,omitempty"`
	SendRatchetKeyPair        KeyPair                      `json:"send_ratchet"`
	ReceiveRatchetKey         X25519Public                 `json:"recv_ratchet"`
	SendMessageNumber         uint32                       `json:"ns"`
	ReceiveMessageNumber      uint32                       `json:"nr"`
	PreviousSendChainLength   uint32                       `json:"pn"`
	SkippedMessageKeys        map[string]SkippedMessageKey `json:"skipped,omitempty"`
	RetiredReceiveRatchetKeys []X25519Public               `json:"retired,omitempty"`
}

// Clone returns a deep copy of s.
func (s RatchetState) Clone() RatchetState {
	c := s
	c.RootKey = cloneBytes(s.RootKey)
	c.SendChainKey = cloneBytes(s.SendChainKey)
	c.ReceiveChainKey = cloneBytes(s.ReceiveChainKey)
	if s.SkippedMessageKeys != nil {
		c.SkippedMessageKeys = make(map[string]SkippedMessageKey, len(s.SkippedMessageKeys))
		for k, v := range s.SkippedMessageKeys {
			v.Key = cloneBytes(v.Key)
			c.SkippedMessageKeys[k] = v
		}
	}
	if s.RetiredReceiveRatchetKeys != nil {
		c.RetiredReceiveRatchetKeys = append([]X25519Public(nil), s.RetiredReceiveRatchetKeys...)
	}
	return c
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
