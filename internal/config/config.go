// Package config loads kvstore settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/kvstore/internal/store"
)

// Supported drivers.
const (
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3
	DriverSQLite  = "sqlite"  // modernc.org/sqlite
	DriverMemory  = "memory"
)

// ValidDrivers lists the accepted driver values.
var ValidDrivers = []string{DriverSQLite3, DriverSQLite, DriverMemory}

// ValidLogLevels lists the accepted log_level values.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Config holds process-wide settings. It is read once at startup.
type Config struct {
	Driver           string        `yaml:"driver" env:"KVSTORE_DRIVER"`
	ConnectionString string        `yaml:"connection_string" env:"DB_CONNECTION_STRING"`
	Tables           []string      `yaml:"tables" env:"KVSTORE_TABLES" envSeparator:","`
	BusyTimeout      time.Duration `yaml:"busy_timeout" env:"KVSTORE_BUSY_TIMEOUT"`
	ListenAddr       string        `yaml:"listen_addr" env:"KVSTORE_LISTEN_ADDR"`
	LogLevel         string        `yaml:"log_level" env:"KVSTORE_LOG_LEVEL"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Driver:           DriverSQLite3,
		ConnectionString: "kvstore.db",
		Tables:           []string{"users"},
		BusyTimeout:      5 * time.Second,
		ListenAddr:       ":8080",
		LogLevel:         "info",
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then the environment. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, store.Validationf("read config: %v", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, store.Validationf("parse config %s: %v", path, err)
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv overlays environment variables onto target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return store.Validationf("parse env: %v", err)
	}
	return nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	if !slices.Contains(ValidDrivers, c.Driver) {
		return store.Validationf("invalid driver %q: must be one of %v", c.Driver, ValidDrivers)
	}
	if c.Driver != DriverMemory && strings.TrimSpace(c.ConnectionString) == "" {
		return store.Validationf("connection_string is required for driver %q", c.Driver)
	}
	for _, table := range c.Tables {
		if err := store.ValidateTable(table); err != nil {
			return err
		}
	}
	if c.BusyTimeout < 0 {
		return store.Validationf("busy_timeout must not be negative")
	}
	if !slices.Contains(ValidLogLevels, strings.ToLower(c.LogLevel)) {
		return store.Validationf("invalid log_level %q: must be one of %v", c.LogLevel, ValidLogLevels)
	}
	return nil
}
