// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package dispatch decodes the ingress NDJSON event vocabulary and applies
// each event to the session registry, notifying a Sink of the resulting
// session/focus changes.
package dispatch

import (
	"encoding/json"
	"fmt"
)

// wireTerminal mirrors the "terminal" object nested in a session_start event.
type wireTerminal struct {
	TTY            string `json:"tty,omitempty"`
	TerminalPID    int    `json:"terminal_pid,omitempty"`
	TermProgram    string `json:"term_program,omitempty"`
	ITermSessionID string `json:"iterm_session_id,omitempty"`
	TermSessionID  string `json:"term_session_id,omitempty"`
	KittyWindowID  string `json:"kitty_window_id,omitempty"`
	WeztermPane    string `json:"wezterm_pane,omitempty"`
}

type wireAutocompact struct {
	Enabled             bool `json:"enabled"`
	ThresholdPercent    int  `json:"threshold_percent,omitempty"`
	BugThresholdPercent *int `json:"bug_threshold_percent,omitempty"`
}

// envelope is the minimal shape every ingress line must satisfy. Fields the
// current schema version does not recognize survive in Raw (preserved when
// present, ignored when absent).
type envelope struct {
	Event     string          `json:"event"`
	SessionID string          `json:"session_id"`
	Timestamp int64           `json:"timestamp"`
	Raw       json.RawMessage `json:"-"`
}

// sessionStartWire is the wire shape of a session_start event.
type sessionStartWire struct {
	Event          string           `json:"event"`
	Timestamp      int64            `json:"timestamp"`
	SessionID      string           `json:"session_id"`
	SessionTitle   string           `json:"session_title,omitempty"`
	TranscriptPath string           `json:"transcript_path,omitempty"`
	CWD            string           `json:"cwd"`
	Project        string           `json:"project"`
	Source         string           `json:"source,omitempty"`
	Terminal       wireTerminal     `json:"terminal"`
	TerminalKey    string           `json:"terminal_key"`
	Autocompact    *wireAutocompact `json:"autocompact,omitempty"`
	GitBranch      string           `json:"git_branch,omitempty"`
	GitWorktree    string           `json:"git_worktree,omitempty"`
	GitRepoRoot    string           `json:"git_repo_root,omitempty"`
}

// activityWire is the wire shape of an activity event.
type activityWire struct {
	Event          string                 `json:"event"`
	Timestamp      int64                  `json:"timestamp"`
	SessionID      string                 `json:"session_id"`
	SessionTitle   string                 `json:"session_title,omitempty"`
	ToolName       string                 `json:"tool_name"`
	TerminalPID    int                    `json:"terminal_pid"`
	ContextMetrics *wireContextMetrics    `json:"context_metrics,omitempty"`
}

// contextUpdateWire is the wire shape of a context_update event.
type contextUpdateWire struct {
	Event               string           `json:"event"`
	Timestamp           int64            `json:"timestamp"`
	SessionID           string           `json:"session_id"`
	UsedPercentage      float64          `json:"used_percentage"`
	RemainingPercentage float64          `json:"remaining_percentage"`
	ContextWindowSize   int              `json:"context_window_size"`
	TotalInputTokens    int              `json:"total_input_tokens,omitempty"`
	TotalOutputTokens   int              `json:"total_output_tokens,omitempty"`
	Model               string           `json:"model,omitempty"`
	ModelDisplayName    string           `json:"model_display_name,omitempty"`
	CWD                 string           `json:"cwd,omitempty"`
	ProjectDir          string           `json:"project_dir,omitempty"`
	IsEstimate          bool             `json:"is_estimate,omitempty"`
	Autocompact         *wireAutocompact `json:"autocompact,omitempty"`
	TerminalKey         string           `json:"terminal_key,omitempty"`
	SessionTitle        string           `json:"session_title,omitempty"`
	TranscriptPath      string           `json:"transcript_path,omitempty"`
	GitBranch           string           `json:"git_branch,omitempty"`
	GitWorktree         string           `json:"git_worktree,omitempty"`
	GitRepoRoot         string           `json:"git_repo_root,omitempty"`
}

type wireContextMetrics struct {
	UsedPercentage      float64 `json:"used_percentage"`
	RemainingPercentage float64 `json:"remaining_percentage"`
	WindowSize          int     `json:"window_size"`
	TotalInputTokens    int     `json:"total_input_tokens"`
	TotalOutputTokens   int     `json:"total_output_tokens"`
	IsEstimate          bool    `json:"is_estimate"`
}

// idleWire is the wire shape of idle and session_end events; both carry
// identical fields.
type idleWire struct {
	Event       string `json:"event"`
	Timestamp   int64  `json:"timestamp"`
	SessionID   string `json:"session_id"`
	TerminalPID int    `json:"terminal_pid"`
}

// peekEnvelope extracts the event/session_id/timestamp discriminator fields
// without committing to a full wire type, so malformed or unknown events can
// be rejected before a type-specific unmarshal.
func peekEnvelope(line []byte) (envelope, error) {
	var e envelope
	if err := json.Unmarshal(line, &e); err != nil {
		return envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if e.Event == "" {
		return envelope{}, fmt.Errorf("missing %q field", "event")
	}
	if e.SessionID == "" {
		return envelope{}, fmt.Errorf("missing %q field", "session_id")
	}
	e.Raw = append(json.RawMessage(nil), line...)
	return e, nil
}
