// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON configuration loading for the jacques daemon.
package config

// Config is the root configuration structure for jacquesd.
type Config struct {
	Ingress    IngressConfig    `json:"ingress"`
	Websocket  WebsocketConfig  `json:"websocket"`
	HTTP       HTTPConfig       `json:"http"`
	Registry   RegistryConfig   `json:"registry"`
	Focus      FocusConfig      `json:"focus"`
	Catalog    CatalogConfig    `json:"catalog"`
	PlanDedup  PlanDedupConfig  `json:"plan_dedup"`
	Assistants AssistantsConfig `json:"assistants"`
}

// IngressConfig configures the local event-ingress transport.
type IngressConfig struct {
	SocketPath string `json:"socket_path"` // unix socket path, or named pipe name on Windows
}

// WebsocketConfig configures the fan-out websocket server.
type WebsocketConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// HTTPConfig configures the read-only query HTTP server.
type HTTPConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// RegistryConfig configures the session registry's stale-session sweeper.
type RegistryConfig struct {
	MaxIdleMinutes int `json:"max_idle_minutes"`
}

// FocusConfig configures the focus watcher's poll interval.
type FocusConfig struct {
	PollIntervalMS int `json:"poll_interval_ms"`
}

// CatalogConfig configures where per-project catalogs are written.
type CatalogConfig struct {
	DirName string `json:"dir_name"` // sibling folder name, e.g. ".jacques"
}

// PlanDedupConfig configures cross-session plan deduplication.
type PlanDedupConfig struct {
	JaccardThreshold float64 `json:"jaccard_threshold"`
}

// AssistantsConfig configures which process command lines the startup
// scanner treats as AI-assistant processes, and their normalized source tag.
type AssistantsConfig struct {
	Patterns []AssistantPattern `json:"patterns"`
}

// AssistantPattern matches a process command-line substring to a source tag.
type AssistantPattern struct {
	Match  string `json:"match"`
	Source string `json:"source"`
}
