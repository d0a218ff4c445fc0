package app

import (
	"fmt"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"peerseal/internal/store"
)

// openBackend builds the storage backend named by cfg.Backend.
func openBackend(cfg Config) (store.Backend, error) {
	switch cfg.Backend {
	case BackendFile:
		return store.NewFileBackend(filepath.Join(cfg.Home, "data"))
	case BackendSQLite:
		return store.OpenSQLite(cfg.sqlitePath())
	case BackendRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return store.NewRedisBackend(client, cfg.Redis.Prefix), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
