package types

import "time"

// PersistentSession is the durable form of one peer's session. It is
// overwritten on every ratchet mutation.
type PersistentSession struct {
	PeerID         PeerID       `json:"peer"`
	State          RatchetState `json:"state"`
	AssociatedData []byte       `json:"ad,omitempty"`
	LastUpdated    time.Time    `json:"updated"`
}
