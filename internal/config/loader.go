// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hjson/hjson-go/v4"
)

// Loader handles configuration file loading.
type Loader struct{}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the configuration from the given path.
// A missing file is not an error; it yields a zero-value Config before
// defaults are applied by LoadWithDefaults.
func (l *Loader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var raw map[string]interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse hjson: %w", err)
	}

	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config with default values applied.
func (l *Loader) LoadWithDefaults(path string) (*Config, error) {
	cfg, err := l.Load(path)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

// DefaultConfigPath returns the default config file location, honoring
// $JACQUES_CONFIG if set.
func DefaultConfigPath() string {
	if p := os.Getenv("JACQUES_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "jacques.hjson"
	}
	return filepath.Join(home, ".jacques", "config.hjson")
}

// DefaultPIDPath returns the fixed PID file location the daemon uses to
// detect an already-running instance.
func DefaultPIDPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "jacquesd.pid"
	}
	return filepath.Join(home, ".jacques", "server.pid")
}

// applyDefaults sets default values for missing config fields.
func applyDefaults(cfg *Config) {
	if cfg.Ingress.SocketPath == "" {
		cfg.Ingress.SocketPath = defaultSocketPath()
	}

	if cfg.Websocket.Host == "" {
		cfg.Websocket.Host = "127.0.0.1"
	}
	if cfg.Websocket.Port == 0 {
		cfg.Websocket.Port = 4242
	}

	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "127.0.0.1"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 4243
	}

	if cfg.Registry.MaxIdleMinutes <= 0 {
		cfg.Registry.MaxIdleMinutes = 60
	}

	if cfg.Focus.PollIntervalMS <= 0 {
		cfg.Focus.PollIntervalMS = 1000
	}

	if cfg.Catalog.DirName == "" {
		cfg.Catalog.DirName = ".jacques"
	}

	if cfg.PlanDedup.JaccardThreshold <= 0 {
		cfg.PlanDedup.JaccardThreshold = 0.9
	}

	if len(cfg.Assistants.Patterns) == 0 {
		cfg.Assistants.Patterns = []AssistantPattern{
			{Match: "claude", Source: "claude_code"},
			{Match: "cursor-agent", Source: "cursor"},
		}
	}
}

func defaultSocketPath() string {
	return filepath.Join(os.TempDir(), "jacques.sock")
}
