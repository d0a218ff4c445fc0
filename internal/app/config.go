package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"peerseal/internal/protocol/ratchet"
	"peerseal/internal/services/session"
	"peerseal/internal/util/fileio"
)

// Storage backends selectable in Config.Backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

const configFilename = "config.yaml"

// ErrUnknownBackend is returned for an unsupported Config.Backend.
var ErrUnknownBackend = errors.New("app: unknown storage backend")

// Config holds runtime wiring options for building the app.
type Config struct {
	Home       string `yaml:"-"` // config directory, e.g. $HOME/.peerseal
	Passphrase string `yaml:"-"` // seals the device key; never written to disk

	Backend    string        `yaml:"backend"`
	SQLitePath string        `yaml:"sqlite_path,omitempty"` // relative paths are under Home
	Redis      RedisConfig   `yaml:"redis,omitempty"`
	Ratchet    RatchetConfig `yaml:"ratchet"`
	LogLevel   string        `yaml:"log_level"`

	OneTimePreKeys int `yaml:"one_time_prekeys"`
}

// RedisConfig selects the Redis server used by the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// RatchetConfig bounds the per-session skipped-key cache.
type RatchetConfig struct {
	MaxSkip          uint32        `yaml:"max_skip"`
	MaxSkippedKeys   int           `yaml:"max_skipped_keys"`
	SkippedKeyMaxAge time.Duration `yaml:"skipped_key_max_age"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig(home string) Config {
	return Config{
		Home:       home,
		Backend:    BackendFile,
		SQLitePath: "peerseal.db",
		Redis:      RedisConfig{Addr: "127.0.0.1:6379", Prefix: "peerseal:"},
		Ratchet: RatchetConfig{
			MaxSkip:          ratchet.DefaultMaxSkip,
			MaxSkippedKeys:   ratchet.DefaultMaxSkippedKeys,
			SkippedKeyMaxAge: session.DefaultSkippedKeyMaxAge,
		},
		LogLevel:       "warn",
		OneTimePreKeys: 20,
	}
}

// LoadConfig reads <home>/config.yaml over the defaults. A missing file is
// not an error.
func LoadConfig(home string) (Config, error) {
	cfg := DefaultConfig(home)
	data, err := fileio.Read(filepath.Join(home, configFilename))
	if err != nil {
		return Config{}, fmt.Errorf("app: read config: %w", err)
	}
	if data != nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("app: parse config: %w", err)
		}
		cfg.Home = home
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to <home>/config.yaml.
func (c Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("app: encode config: %w", err)
	}
	if err := fileio.WriteAtomic(filepath.Join(c.Home, configFilename), data, 0o600); err != nil {
		return fmt.Errorf("app: write config: %w", err)
	}
	return nil
}

// Validate checks the fields NewWire depends on.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendFile, BackendSQLite:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("app: redis backend needs redis.addr")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if c.Ratchet.MaxSkippedKeys < 0 || c.Ratchet.SkippedKeyMaxAge < 0 {
		return fmt.Errorf("app: ratchet limits must not be negative")
	}
	return nil
}

func (c Config) sqlitePath() string {
	if filepath.IsAbs(c.SQLitePath) {
		return c.SQLitePath
	}
	return filepath.Join(c.Home, c.SQLitePath)
}
