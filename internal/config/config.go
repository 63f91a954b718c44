// Package config loads the daemon configuration from YAML.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	// Listen is the HTTP listen address, e.g. ":8080".
	Listen string `yaml:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Store Store `yaml:"store"`
}

// Store selects and configures the persistence backend.
type Store struct {
	// Backend is one of memory, bolt, redis.
	Backend string `yaml:"backend"`

	Bolt  Bolt  `yaml:"bolt"`
	Redis Redis `yaml:"redis"`

	// EncryptionKey, when set, seals persisted node metadata with
	// AES-256-GCM before it reaches the backend. Hex-encoded, 32 bytes.
	EncryptionKey string `yaml:"encryption_key"`

	// RedactPatterns are regular expressions matched against JSON keys in
	// node metadata; matching values are masked before persistence.
	RedactPatterns []string `yaml:"redact_patterns"`
}

// EncryptionKeyBytes decodes the configured metadata encryption key.
func (s Store) EncryptionKeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(s.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption_key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption_key must be 32 bytes (64 hex chars), got %d", len(key))
	}
	return key, nil
}

// Bolt configures the file-backed store.
type Bolt struct {
	Path string `yaml:"path"`
}

// Redis configures the Redis-backed store and locker.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:   ":8080",
		LogLevel: "info",
		Store: Store{
			Backend: "memory",
			Bolt:    Bolt{Path: "strata.db"},
			Redis:   Redis{Addr: "localhost:6379"},
		},
	}
}

// Load reads and validates a YAML config file, merged over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enum fields.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "bolt", "redis":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.Store.EncryptionKey != "" {
		if _, err := c.Store.EncryptionKeyBytes(); err != nil {
			return err
		}
	}
	for _, p := range c.Store.RedactPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid redact pattern %q: %w", p, err)
		}
	}
	return nil
}
