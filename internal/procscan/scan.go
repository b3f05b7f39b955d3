// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package procscan implements the startup process scanner: a one-shot
// sweep of the system process table that recovers sessions already
// running before the daemon started, so they show up in the registry
// without waiting for their next hook event.
package procscan

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	ps "github.com/mitchellh/go-ps"
)

// defaultPatterns is used when the config supplies no binary patterns.
var defaultPatterns = []string{"claude", "claude-code"}

// Discovery is one recovered session, ready to hand to
// registry.RegisterDiscoveredSession.
type Discovery struct {
	SessionID        string
	PID              int
	CWD              string
	TranscriptPath   string
	TerminalKeyInner string
	StartedAt        time.Time
}

// Scanner enumerates the process table for assistant processes.
type Scanner struct {
	patterns []string
	homeDir  string
}

// New builds a Scanner. An empty patterns list falls back to
// recognizing "claude" and "claude-code" only.
func New(patterns []string) *Scanner {
	if len(patterns) == 0 {
		patterns = defaultPatterns
	}
	home, _ := os.UserHomeDir()
	return &Scanner{patterns: patterns, homeDir: home}
}

// Scan lists the process table once and returns every process that
// looks like a running assistant session. Processes whose cwd sits
// inside the assistant's own config directory (~/.claude) are assumed
// to be internal helper processes and excluded, matching the exclusion
// DiscoverSessions applies in the mrf-agent-racer monitor.
func (s *Scanner) Scan() ([]Discovery, error) {
	procs, err := ps.Processes()
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	claudeDir := filepath.Join(s.homeDir, ".claude")

	var out []Discovery
	for _, p := range procs {
		if !s.matches(p) {
			continue
		}
		pid := p.Pid()

		cwd, ok := processCWD(pid)
		if !ok {
			continue
		}
		if cwd == claudeDir || strings.HasPrefix(cwd, claudeDir+string(filepath.Separator)) {
			continue
		}

		transcriptPath, _ := discoverTranscriptPath(pid)
		tty, hasTTY := processTTY(pid)

		var keyInner string
		if hasTTY {
			keyInner = "TTY:" + tty
		} else {
			keyInner = "PID:" + strconv.Itoa(pid)
		}

		out = append(out, Discovery{
			SessionID:        sessionIDFor(transcriptPath, pid),
			PID:              pid,
			CWD:              cwd,
			TranscriptPath:   transcriptPath,
			TerminalKeyInner: keyInner,
			StartedAt:        processStartTime(pid),
		})
	}
	return out, nil
}

// matches reports whether a process's executable name (or, for an
// interpreter process, one of its arguments) names a recognized
// assistant binary. Node running a "claude" entry point counts, the
// same way isClaudeProcess treats "node" plus a matching argv entry,
// but node_modules/.bin shims are excluded so we don't match every
// locally-installed CLI a project happens to vendor.
func (s *Scanner) matches(p ps.Process) bool {
	exe := filepath.Base(p.Executable())
	for _, pat := range s.patterns {
		if strings.EqualFold(exe, pat) {
			return true
		}
	}
	if strings.EqualFold(exe, "node") {
		return nodeCmdlineMatchesPattern(p.Pid(), s.patterns)
	}
	return false
}

// sessionIDFor derives a stable session id from the transcript's file
// name (Claude Code names transcripts "<session-id>.jsonl") when one
// was recovered, and otherwise falls back to a pid-keyed synthetic id.
func sessionIDFor(transcriptPath string, pid int) string {
	if transcriptPath != "" {
		base := filepath.Base(transcriptPath)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return fmt.Sprintf("pid-%d", pid)
}
