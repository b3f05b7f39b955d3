// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package broadcast turns registry mutations and other daemon-internal
// events into the outbound websocket message vocabulary and fans them out
// to every connected client.
package broadcast

import "github.com/wingedpig/jacquesd/internal/registry"

// InitialStateMessage is sent once to a newly connected client.
type InitialStateMessage struct {
	Type             string              `json:"type"`
	Sessions         []*registry.Session `json:"sessions"`
	FocusedSessionID string              `json:"focused_session_id,omitempty"`
}

func newInitialState(sessions []*registry.Session, focusedID string) InitialStateMessage {
	return InitialStateMessage{Type: "initial_state", Sessions: sessions, FocusedSessionID: focusedID}
}

// SessionUpdateMessage announces a created or mutated session.
type SessionUpdateMessage struct {
	Type    string            `json:"type"`
	Session *registry.Session `json:"session"`
}

// SessionRemovedMessage announces a session leaving the registry.
type SessionRemovedMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// FocusChangedMessage announces the registry's single focus slot changing.
// SessionID and Session are both omitted when focus is cleared.
type FocusChangedMessage struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id,omitempty"`
	Session   *registry.Session `json:"session,omitempty"`
}

// ServerStatusMessage reports coarse daemon health.
type ServerStatusMessage struct {
	Type         string `json:"type"`
	Status       string `json:"status"`
	SessionCount int    `json:"session_count"`
}

// ServerLogMessage forwards a daemon log line to connected clients.
type ServerLogMessage struct {
	Type      string `json:"type"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Source    string `json:"source"`
}

// APILogMessage is an audit record of one HTTP request, published by the
// httpapi transport's audit-log middleware.
type APILogMessage struct {
	Type       string `json:"type"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Status     int    `json:"status"`
	DurationMs int64  `json:"durationMs"`
	Timestamp  int64  `json:"timestamp"`
}

// AutocompactToggledMessage announces a change to the auto-compact setting.
type AutocompactToggledMessage struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
	Warning string `json:"warning,omitempty"`
}

// HandoffReadyMessage announces a completed catalog extraction.
type HandoffReadyMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Path      string `json:"path"`
}

// HandoffProgressMessage reports incremental progress of a catalog
// extraction run (C8 bulk extraction).
type HandoffProgressMessage struct {
	Type             string `json:"type"`
	SessionID        string `json:"session_id"`
	Stage            string `json:"stage"`
	ExtractorsDone   int    `json:"extractors_done"`
	ExtractorsTotal  int    `json:"extractors_total"`
	CurrentExtractor string `json:"current_extractor,omitempty"`
	OutputFile       string `json:"output_file,omitempty"`
}

// CatalogUpdatedMessage announces a catalog artifact was added, updated, or
// removed for a project.
type CatalogUpdatedMessage struct {
	Type        string `json:"type"`
	ProjectPath string `json:"projectPath"`
	Action      string `json:"action"`
	ItemID      string `json:"itemId,omitempty"`
}

// FocusTerminalResultMessage reports the outcome of a terminal-activation
// request; activation failures are never a process error, only this
// structured result.
type FocusTerminalResultMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Success   bool   `json:"success"`
	Method    string `json:"method"`
	Error     string `json:"error,omitempty"`
}

// HandoffContextMessage answers a get_handoff_context request with a
// synthesized textual context plus a rough token estimate.
type HandoffContextMessage struct {
	Type          string         `json:"type"`
	SessionID     string         `json:"session_id"`
	Context       string         `json:"context"`
	TokenEstimate int            `json:"token_estimate"`
	Data          map[string]any `json:"data,omitempty"`
}

// HandoffContextErrorMessage reports that a get_handoff_context request
// could not be satisfied (no catalog yet, unknown session, read failure).
type HandoffContextErrorMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Error     string `json:"error"`
}

// The remaining documented outbound types — claude_operation,
// tile_windows_result, notification_settings, notification_fired, and the
// chat_* channel — belong to the dashboard UI and chat subsystem, which this
// daemon does not implement. The Hub still accepts arbitrary payloads for
// them via Publish, so a future UI layer can reuse this transport without
// the daemon needing to model their semantics.
