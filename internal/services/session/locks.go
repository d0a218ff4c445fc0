package session

import (
	"sync"

	"peerseal/internal/domain"
)

// peerLocks hands out one mutex per peer and forgets it once nobody holds or
// waits on it.
type peerLocks struct {
	mu sync.Mutex
	m  map[domain.PeerID]*peerLock
}

type peerLock struct {
	mu   sync.Mutex
	refs int
}

func newPeerLocks() *peerLocks {
	return &peerLocks{m: make(map[domain.PeerID]*peerLock)}
}

// lock blocks until peer is free and returns the matching unlock.
func (l *peerLocks) lock(peer domain.PeerID) func() {
	l.mu.Lock()
	pl, ok := l.m[peer]
	if !ok {
		pl = &peerLock{}
		l.m[peer] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()
		l.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.m, peer)
		}
		l.mu.Unlock()
	}
}

func (l *peerLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
