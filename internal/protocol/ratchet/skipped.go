package ratchet

import (
	"encoding/hex"
	"sort"
	"strconv"
	"time"

	"peerseal/internal/domain"
)

// skippedKeyID is the cache key for (ratchet key, message number).
func skippedKeyID(pub domain.X25519Public, n uint32) string {
	return hex.EncodeToString(pub[:]) + ":" + strconv.FormatUint(uint64(n), 10)
}

// remember stores a batch of freshly derived keys, evicting the oldest
// cached entries first when the cache would overflow. If the batch alone is
// larger than the cap only its newest keys are kept.
func (e *Engine) remember(st *domain.RatchetState, batch []domain.SkippedMessageKey) {
	if len(batch) == 0 {
		return
	}
	if st.SkippedMessageKeys == nil {
		st.SkippedMessageKeys = make(map[string]domain.SkippedMessageKey, len(batch))
	}
	if over := len(st.SkippedMessageKeys) + len(batch) - e.maxSkipped; over > 0 {
		over -= evictOldest(st, over)
		if over > 0 {
			batch = batch[over:]
		}
	}
	for _, sk := range batch {
		st.SkippedMessageKeys[skippedKeyID(sk.RatchetKey, sk.MessageNumber)] = sk
	}
}

// evictOldest removes up to n entries, oldest first, and returns how many
// were removed.
func evictOldest(st *domain.RatchetState, n int) int {
	if n >= len(st.SkippedMessageKeys) {
		removed := len(st.SkippedMessageKeys)
		clear(st.SkippedMessageKeys)
		return removed
	}
	ids := make([]string, 0, len(st.SkippedMessageKeys))
	for id := range st.SkippedMessageKeys {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := st.SkippedMessageKeys[ids[i]], st.SkippedMessageKeys[ids[j]]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.MessageNumber < b.MessageNumber
	})
	for _, id := range ids[:n] {
		delete(st.SkippedMessageKeys, id)
	}
	return n
}

// PruneSkipped drops skipped keys created before cutoff and returns the
// number removed.
func PruneSkipped(st *domain.RatchetState, cutoff time.Time) int {
	var n int
	for id, sk := range st.SkippedMessageKeys {
		if sk.CreatedAt.Before(cutoff) {
			delete(st.SkippedMessageKeys, id)
			n++
		}
	}
	return n
}
