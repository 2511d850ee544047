// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// streamdown.
//
// Configuration is TOML with sensible defaults and environment variable
// overrides. Default location: ~/.streamdown/config.toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete streamdown configuration.
type Config struct {
	// Transport configuration
	Transport TransportConfig `toml:"transport"`

	// Storage configuration
	Storage StorageConfig `toml:"storage"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// TransportConfig describes the upstream chat endpoint and its framing.
type TransportConfig struct {
	// Endpoint is the streaming completions URL
	Endpoint string `toml:"endpoint"`
	// Framing selects the wire framing: "sse" or "json"
	Framing string `toml:"framing"`
	// Marker is the SSE data-line prefix. Default "data:".
	Marker string `toml:"marker"`
	// TimeoutSecs bounds each streaming request (0 = no timeout)
	TimeoutSecs int `toml:"timeout_secs"`
}

// StorageConfig describes session persistence.
type StorageConfig struct {
	// DatabasePath is the SQLite file (empty = ~/.streamdown/sessions.db)
	DatabasePath string `toml:"database_path"`
	// Enabled turns persistence off entirely when false
	Enabled bool `toml:"enabled"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// MaxWidth caps the rendered content width (0 = terminal width)
	MaxWidth int `toml:"max_width"`
	// SyntaxTheme is the chroma style used for code blocks
	SyntaxTheme string `toml:"syntax_theme"`
	// ShowTimestamps displays message timestamps in the transcript
	ShowTimestamps bool `toml:"show_timestamps"`
}

// =============================================================================
// DEFAULTS AND PATHS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			Endpoint:    "http://localhost:8000/v1/chat/stream",
			Framing:     "sse",
			Marker:      "data:",
			TimeoutSecs: 120,
		},
		Storage: StorageConfig{
			Enabled: true,
		},
		UI: UIConfig{
			MaxWidth:    100,
			SyntaxTheme: "monokai",
		},
	}
}

// ConfigDir returns the streamdown configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".streamdown"), nil
}

// ConfigPath returns the TOML configuration file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DatabasePath resolves the effective SQLite path for cfg.
func (c *Config) DatabasePath() (string, error) {
	if c.Storage.DatabasePath != "" {
		return c.Storage.DatabasePath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions.db"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration from the default path, applying defaults
// and environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration from an explicit path. A missing
// file yields the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies STREAMDOWN_* environment variables on top of
// the loaded file.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("STREAMDOWN_ENDPOINT"); v != "" {
		c.Transport.Endpoint = v
	}
	if v := os.Getenv("STREAMDOWN_FRAMING"); v != "" {
		c.Transport.Framing = v
	}
	if v := os.Getenv("STREAMDOWN_MARKER"); v != "" {
		c.Transport.Marker = v
	}
	if v := os.Getenv("STREAMDOWN_DB"); v != "" {
		c.Storage.DatabasePath = v
	}
	if v := os.Getenv("STREAMDOWN_NO_PERSIST"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Storage.Enabled = false
		}
	}
	if v := os.Getenv("STREAMDOWN_THEME"); v != "" {
		c.UI.SyntaxTheme = v
	}
}

// Validate checks the configuration for values the rest of the program
// cannot work with.
func (c *Config) Validate() error {
	switch c.Transport.Framing {
	case "sse", "json":
	default:
		return fmt.Errorf("invalid framing %q: must be \"sse\" or \"json\"", c.Transport.Framing)
	}
	if c.Transport.Endpoint == "" {
		return fmt.Errorf("transport endpoint must not be empty")
	}
	if c.Transport.Marker == "" {
		c.Transport.Marker = "data:"
	}
	if c.UI.MaxWidth < 0 {
		return fmt.Errorf("ui max_width must not be negative")
	}
	return nil
}

// Save writes the configuration to the default path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration as TOML to an explicit path.
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
