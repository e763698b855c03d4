// Package config loads the TOML configuration file that selects a storage
// backend, citation-key defaults, and logging behavior for the rest of the
// system.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jschaf/bibmgr/citekey"
	"github.com/jschaf/bibmgr/internal/logging"
)

// StorageKind names which storage.Backend implementation Config selects.
type StorageKind string

const (
	StorageMemory StorageKind = "memory"
	StorageFile   StorageKind = "file"
	StorageSQL    StorageKind = "sql"
)

// Config is the top-level shape of a bibmgr TOML config file.
type Config struct {
	Storage            StorageConfig `toml:"storage"`
	CiteKey            CiteKeyConfig `toml:"citekey"`
	Logging            LoggingConfig `toml:"logging"`
	LockTimeoutSeconds int           `toml:"lock_timeout_seconds"`
}

// StorageConfig selects and configures a storage backend.
type StorageConfig struct {
	Kind      StorageKind `toml:"kind"`
	Path      string      `toml:"path"`       // file/sql backend root or database path
	CacheSize int         `toml:"cache_size"` // 0 disables the read-cache wrapper
}

// CiteKeyConfig mirrors citekey.Config in a TOML-friendly shape.
type CiteKeyConfig struct {
	Pattern           string `toml:"pattern"`
	Separator         string `toml:"separator"`
	Case              string `toml:"case"`
	MinLength         int    `toml:"min_length"`
	MaxLength         int    `toml:"max_length"`
	CollisionStrategy string `toml:"collision_strategy"`
}

// LoggingConfig mirrors logging.Config in a TOML-friendly shape.
type LoggingConfig struct {
	Level      string `toml:"level"`
	JSONOutput bool   `toml:"json_output"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Storage: StorageConfig{Kind: StorageMemory},
		CiteKey: CiteKeyConfig{
			Pattern:           "{author}{year}{title:1}",
			Case:              "lower",
			MinLength:         3,
			MaxLength:         40,
			CollisionStrategy: "append-letter",
		},
		Logging:            LoggingConfig{Level: "info"},
		LockTimeoutSeconds: 30,
	}
}

// Load reads and decodes a TOML config file at path, filling in defaults
// for anything the file doesn't set by starting from Default() and letting
// toml.Decode overwrite only the keys present in the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

// LockTimeout returns the configured per-key operation lock timeout.
func (c Config) LockTimeout() time.Duration {
	if c.LockTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.LockTimeoutSeconds) * time.Second
}

// ResolvePath expands a config-relative path against the directory holding
// the config file itself, so "path = \"data.db\"" in ~/.bibmgr/config.toml
// resolves to ~/.bibmgr/data.db rather than the process's working directory.
func ResolvePath(configPath, relative string) string {
	if filepath.IsAbs(relative) {
		return relative
	}
	return filepath.Join(filepath.Dir(configPath), relative)
}

// ToCiteKeyConfig parses c's pattern string and assembles a citekey.Config,
// returning an error if the pattern is malformed.
func (c CiteKeyConfig) ToCiteKeyConfig() (citekey.Config, error) {
	pattern, err := citekey.Parse(c.Pattern)
	if err != nil {
		return citekey.Config{}, fmt.Errorf("config: parse citekey pattern %q: %w", c.Pattern, err)
	}
	return citekey.Config{
		Pattern:           pattern,
		Separator:         c.Separator,
		Case:              citekey.CaseTransform(c.Case),
		MinLength:         c.MinLength,
		MaxLength:         c.MaxLength,
		AutoDisambiguate:  true,
		CollisionStrategy: citekey.CollisionStrategy(c.CollisionStrategy),
	}, nil
}

// LoggingFromConfig applies LoggingConfig to the global logger.
func LoggingFromConfig(lc LoggingConfig) {
	level := logging.InfoLevel
	switch lc.Level {
	case "debug":
		level = logging.DebugLevel
	case "warn":
		level = logging.WarnLevel
	case "error":
		level = logging.ErrorLevel
	}
	logging.Init(logging.Config{Level: level, JSONOutput: lc.JSONOutput})
}
