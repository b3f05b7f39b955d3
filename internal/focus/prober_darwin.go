// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build darwin

package focus

import (
	"os/exec"
	"strings"
	"time"
)

// AppleScriptProber asks System Events for the frontmost process and, when
// it is iTerm2, its current session id, producing a terminal_key candidate
// for the focus watcher's poll loop.
type AppleScriptProber struct {
	timeout time.Duration
}

// NewAppleScriptProber returns a Prober backed by osascript queries.
func NewAppleScriptProber() *AppleScriptProber {
	return &AppleScriptProber{timeout: programmaticTimeout}
}

func (p *AppleScriptProber) Candidate() (string, bool) {
	out, err := exec.Command("osascript", "-e",
		`tell application "System Events" to get name of first process whose frontmost is true`).Output()
	if err != nil {
		return "", false
	}
	frontmost := strings.TrimSpace(string(out))

	switch frontmost {
	case "iTerm2", "iTerm":
		uuid, err := exec.Command("osascript", "-e",
			`tell application "iTerm2" to get id of current session of current window`).Output()
		if err != nil {
			return "", false
		}
		return "ITERM:" + strings.TrimSpace(string(uuid)), true
	case "Terminal":
		tty, err := exec.Command("osascript", "-e",
			`tell application "Terminal" to get tty of front window`).Output()
		if err != nil {
			return "", false
		}
		return "TTY:" + strings.TrimSpace(string(tty)), true
	default:
		return "", false
	}
}
