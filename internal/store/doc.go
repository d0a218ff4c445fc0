// Package store persists peerseal's local state.
//
// Store translates ratchet sessions, identity keys and one-time pre-keys to
// sealed blobs: each record is encoded as versioned JSON and encrypted with
// the device-bound envelope cipher before it reaches a Backend. One blob is
// kept per peer session plus one for the identity and one for the pre-keys.
//
// Saves propagate every failure to the caller. Loads never fail: a missing,
// undecryptable or malformed blob is logged and reported as "none", and the
// blob itself is left untouched so it can be inspected or recovered.
//
// The package includes backends for:
//   - Plain files, one per blob, written atomically (FileBackend)
//   - SQLite via modernc.org/sqlite (SQLiteBackend)
//   - Redis via go-redis (RedisBackend)
package store
