// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package registry owns the live in-memory model of every active AI
// coding-assistant session on the host: the Session records and the single
// focus-id slot, plus the invariants that guard both.
package registry

import (
	"strconv"
	"strings"
)

// Status is the lifecycle status of a Session.
type Status string

const (
	StatusActive  Status = "active"
	StatusWorking Status = "working"
	StatusIdle    Status = "idle"
)

// Source is the normalized assistant family a session belongs to.
type Source string

const (
	SourceClaudeCode Source = "claude_code"
	SourceCursor     Source = "cursor"
)

// Terminal key prefixes. The prefix selects the platform activation
// strategy in the focus package.
const (
	PrefixITerm      = "ITERM"
	PrefixKitty      = "KITTY"
	PrefixWezterm    = "WEZTERM"
	PrefixTerm       = "TERM"
	PrefixTTY        = "TTY"
	PrefixPID        = "PID"
	PrefixAuto       = "AUTO"
	PrefixUnknown    = "UNKNOWN"
	PrefixDiscovered = "DISCOVERED"
)

// TerminalIdentity is a capability bag of optional identifiers captured
// from the caller's environment. Different terminal emulators populate
// different subsets of these fields.
type TerminalIdentity struct {
	TTY                string `json:"tty,omitempty"`
	TermProgram        string `json:"term_program,omitempty"`
	ITermSessionID     string `json:"iterm_session_id,omitempty"`
	TermSessionID      string `json:"term_session_id,omitempty"` // WezTerm pane UUID
	KittyWindowID      string `json:"kitty_window_id,omitempty"`
	WeztermPane        string `json:"wezterm_pane,omitempty"`
	TerminalPID        int    `json:"terminal_pid,omitempty"`
}

// DeriveTerminalKey computes the canonical, prefix-tagged terminal key for
// an identity bag, preferring the most specific identifier available.
func DeriveTerminalKey(id TerminalIdentity) string {
	switch {
	case id.ITermSessionID != "":
		return PrefixITerm + ":" + id.ITermSessionID
	case id.KittyWindowID != "":
		return PrefixKitty + ":" + id.KittyWindowID
	case id.WeztermPane != "":
		return PrefixWezterm + ":" + id.WeztermPane
	case id.TermSessionID != "":
		return PrefixTerm + ":" + id.TermSessionID
	case id.TTY != "":
		return PrefixTTY + ":" + id.TTY
	case id.TerminalPID != 0:
		return PrefixPID + ":" + strconv.Itoa(id.TerminalPID)
	default:
		return PrefixUnknown + ":"
	}
}

// KeyPrefix returns the prefix portion of a terminal key ("ITERM" from
// "ITERM:w0t0p0:UUID"), or "" if the key is malformed (no colon).
func KeyPrefix(key string) string {
	idx := strings.IndexByte(key, ':')
	if idx < 0 {
		return ""
	}
	return key[:idx]
}

// IsPartialKey reports whether a terminal key still carries the AUTO: or
// DISCOVERED: prefix, meaning the session is a placeholder awaiting
// upgrade by a concrete hook event.
func IsPartialKey(key string) bool {
	prefix := KeyPrefix(key)
	return prefix == PrefixAuto || prefix == PrefixDiscovered
}

// ContextMetrics describes context-window usage as last reported by the
// assistant.
type ContextMetrics struct {
	UsedPercentage     float64 `json:"used_percentage"`
	RemainingPercentage float64 `json:"remaining_percentage"`
	WindowSize         int     `json:"window_size"`
	TotalInputTokens   int     `json:"total_input_tokens"`
	TotalOutputTokens  int     `json:"total_output_tokens"`
	IsEstimate         bool    `json:"is_estimate"`
}

// AutocompactStatus describes the assistant's own auto-compact feature
// status, as reported; the daemon never implements auto-compact itself.
type AutocompactStatus struct {
	Enabled            bool `json:"enabled"`
	ThresholdPercent   int  `json:"threshold_percent,omitempty"`
	BugThresholdPercent *int `json:"bug_threshold_percent,omitempty"`
}

// Model identifies the assistant model in use.
type Model struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Git captures repository identity for the session's working directory.
type Git struct {
	Branch   string `json:"branch,omitempty"`
	Worktree string `json:"worktree,omitempty"`
	RepoRoot string `json:"repo_root,omitempty"`
}

// Session is the central entity of the registry: the runtime state of a
// single AI-assistant conversation on this host.
type Session struct {
	ID            string `json:"session_id"`
	Source        Source `json:"source"`
	HookSource    string `json:"hook_source,omitempty"` // raw session-start source tag, carried verbatim
	Status        Status `json:"status"`
	Title         string `json:"title"`

	TranscriptPath string `json:"transcript_path,omitempty"`
	CWD            string `json:"cwd,omitempty"`
	Project        string `json:"project,omitempty"`

	Model *Model `json:"model,omitempty"`

	TerminalIdentity TerminalIdentity `json:"terminal_identity"`
	TerminalKey      string           `json:"terminal_key"`

	LastActivity int64 `json:"last_activity"`
	RegisteredAt int64 `json:"registered_at"`

	ContextMetrics *ContextMetrics `json:"context_metrics,omitempty"`

	Autocompact *AutocompactStatus `json:"autocompact_status,omitempty"`

	Git *Git `json:"git,omitempty"`
}

// Clone returns a deep-enough copy of the session suitable for handing to
// a caller outside the registry's lock.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Model != nil {
		m := *s.Model
		cp.Model = &m
	}
	if s.ContextMetrics != nil {
		cm := *s.ContextMetrics
		cp.ContextMetrics = &cm
	}
	if s.Autocompact != nil {
		ac := *s.Autocompact
		if s.Autocompact.BugThresholdPercent != nil {
			v := *s.Autocompact.BugThresholdPercent
			ac.BugThresholdPercent = &v
		}
		cp.Autocompact = &ac
	}
	if s.Git != nil {
		g := *s.Git
		cp.Git = &g
	}
	return &cp
}

// projectFromCWD derives a short project name from a working directory:
// the last path component.
func projectFromCWD(cwd string) string {
	cwd = strings.TrimRight(cwd, "/")
	if cwd == "" {
		return ""
	}
	idx := strings.LastIndexByte(cwd, '/')
	if idx < 0 {
		return cwd
	}
	return cwd[idx+1:]
}
