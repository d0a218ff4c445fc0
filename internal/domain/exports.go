package domain

import (
	interfaces "peerseal/internal/domain/interfaces"
	types "peerseal/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	PeerID            = types.PeerID
	Fingerprint       = types.Fingerprint
	PreKeyID          = types.PreKeyID
	PreKeyEntry       = types.PreKeyEntry
	KeyPair           = types.KeyPair
	X25519Public      = types.X25519Public
	X25519Private     = types.X25519Private
	RatchetHeader     = types.RatchetHeader
	RatchetState      = types.RatchetState
	SkippedMessageKey = types.SkippedMessageKey
	PersistentSession = types.PersistentSession
	IdentityKeys      = types.IdentityKeys
)

// HeaderSize is the length of an encoded RatchetHeader.
const HeaderSize = types.HeaderSize

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	SessionStore      = interfaces.SessionStore
	IdentityStore     = interfaces.IdentityStore
	PreKeyStore       = interfaces.PreKeyStore
	DeviceKeyProvider = interfaces.DeviceKeyProvider
	EnvelopeCipher    = interfaces.EnvelopeCipher
	IdentityService   = interfaces.IdentityService
	SessionManager    = interfaces.SessionManager
)
