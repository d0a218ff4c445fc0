package app

import (
	"go.uber.org/zap"

	"peerseal/internal/envelope"
	"peerseal/internal/keystore"
	"peerseal/internal/protocol/ratchet"
	identitysvc "peerseal/internal/services/identity"
	sessionsvc "peerseal/internal/services/session"
	"peerseal/internal/store"
)

// Wire bundles the store, engine and services for the CLI.
type Wire struct {
	Config   Config
	Log      *zap.Logger
	Keys     *keystore.File
	Store    *store.Store
	Engine   *ratchet.Engine
	Identity *identitysvc.Service
	Sessions *sessionsvc.Manager
}

// NewWire constructs the dependency graph from cfg. A nil log discards
// output.
func NewWire(cfg Config, log *zap.Logger) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	backend, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}
	keys := keystore.NewFile(cfg.Home, cfg.Passphrase)
	st := store.New(backend, envelope.New(keys), store.WithLogger(log.Named("store")))

	engine := ratchet.New(
		ratchet.WithMaxSkip(cfg.Ratchet.MaxSkip),
		ratchet.WithMaxSkippedKeys(cfg.Ratchet.MaxSkippedKeys),
	)

	return &Wire{
		Config:   cfg,
		Log:      log,
		Keys:     keys,
		Store:    st,
		Engine:   engine,
		Identity: identitysvc.New(st, identitysvc.WithLogger(log.Named("identity"))),
		Sessions: sessionsvc.New(st,
			sessionsvc.WithEngine(engine),
			sessionsvc.WithSkippedKeyMaxAge(cfg.Ratchet.SkippedKeyMaxAge),
			sessionsvc.WithLogger(log.Named("session")),
		),
	}, nil
}

// Close releases the storage backend.
func (w *Wire) Close() error { return w.Store.Close() }
