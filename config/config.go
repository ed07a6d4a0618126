// Package config handles minidb configuration loading.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBufferPoolPages = 64
	DefaultLogLevel        = "info"
)

// Config holds the settings of one minidb instance.
type Config struct {
	CatalogFile     string `yaml:"catalog-file,omitempty"`     // schema file loaded on open (optional)
	BufferPoolPages int    `yaml:"buffer-pool-pages,omitempty"` // frames in the buffer pool (default 64)
	LogLevel        string `yaml:"log-level,omitempty"`         // debug, info, warn, error (default "info")
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		BufferPoolPages: DefaultBufferPoolPages,
		LogLevel:        DefaultLogLevel,
	}
}

// Load reads the YAML file at path on top of the defaults and then applies the environment
// overrides MINIDB_CATALOG, MINIDB_BUFFER_POOL_PAGES and MINIDB_LOG_LEVEL. An empty path skips
// the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOptional is Load for a path that may not exist, such as a default location.
func LoadOptional(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	return Load(path)
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("MINIDB_CATALOG"); v != "" {
		c.CatalogFile = v
	}
	if v := os.Getenv("MINIDB_BUFFER_POOL_PAGES"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("MINIDB_BUFFER_POOL_PAGES: %w", err)
		}
		c.BufferPoolPages = n
	}
	if v := os.Getenv("MINIDB_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.BufferPoolPages <= 0 {
		return fmt.Errorf("buffer pool needs at least one page, got %d", c.BufferPoolPages)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a text logger writing to stderr at the configured level.
func (c *Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.SlogLevel()}))
}
