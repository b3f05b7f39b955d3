// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package focus

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Per-call timeouts: CLI-driven programmatic terminals get the short
// budget, AppleScript-driven host applications get the longer one.
const (
	programmaticTimeout = 3 * time.Second
	scriptableTimeout   = 10 * time.Second
)

// Result is the structured outcome of one activation attempt.
type Result struct {
	Success bool   `json:"success"`
	Method  string `json:"method"`
	Error   string `json:"error,omitempty"`
}

// Activator dispatches activate_terminal by the requested terminal_key's
// prefix, the same way RealTmuxExecutor dispatches tmux subcommands: one
// exec.CommandContext call per strategy, stderr captured for the error
// field, never a bare exec.Command with no deadline.
type Activator struct{}

// NewActivator returns a ready-to-use Activator.
func NewActivator() *Activator { return &Activator{} }

// Activate brings the terminal window named by terminalKey to the
// foreground. It never returns an error itself — activation failure is
// reported in the Result, and never mutates registry state.
func (a *Activator) Activate(ctx context.Context, terminalKey string) Result {
	prefix, rest, ok := splitPrefix(terminalKey)
	if !ok {
		return Result{Success: false, Method: "unsupported", Error: "malformed terminal key: missing prefix"}
	}
	return a.dispatch(ctx, strings.ToUpper(prefix), rest)
}

func (a *Activator) dispatch(ctx context.Context, prefix, rest string) Result {
	switch prefix {
	case "ITERM":
		return a.activateITerm(ctx, iTermUUIDSuffix(rest))
	case "KITTY":
		return a.activateKitty(ctx, rest)
	case "WEZTERM":
		return a.activateWezterm(ctx, rest)
	case "TTY":
		return a.activateTTY(ctx, normalizeTTY(rest))
	case "PID":
		return a.activatePID(ctx, rest)
	case "DISCOVERED":
		return a.dispatchDiscovered(ctx, rest)
	case "TERM", "AUTO", "UNKNOWN":
		return Result{Success: false, Method: "unsupported"}
	default:
		return Result{Success: false, Method: "unsupported", Error: fmt.Sprintf("unrecognized terminal key prefix %q", prefix)}
	}
}

// dispatchDiscovered unwraps a DISCOVERED:<inner> key and recurses on its
// inner format: "iTerm2:w0t0p0:UUID", "TTY:<path>:<pid>", or "PID:<pid>".
func (a *Activator) dispatchDiscovered(ctx context.Context, inner string) Result {
	innerPrefix, innerRest, ok := splitPrefix(inner)
	if !ok {
		return Result{Success: false, Method: "unsupported", Error: "malformed discovered terminal key"}
	}
	switch strings.ToLower(innerPrefix) {
	case "iterm2":
		return a.dispatch(ctx, "ITERM", innerRest)
	case "tty":
		// innerRest is "<path>:<pid>"; the activator only needs the path.
		path := innerRest
		if idx := strings.LastIndexByte(path, ':'); idx >= 0 {
			path = path[:idx]
		}
		return a.dispatch(ctx, "TTY", path)
	case "pid":
		return a.dispatch(ctx, "PID", innerRest)
	default:
		return Result{Success: false, Method: "unsupported", Error: fmt.Sprintf("unrecognized discovered inner prefix %q", innerPrefix)}
	}
}

// splitPrefix splits "PREFIX:rest" on the first colon. A key with no colon
// at all is malformed.
func splitPrefix(key string) (prefix, rest string, ok bool) {
	idx := strings.IndexByte(key, ':')
	if idx < 0 {
		return "", "", false
	}
	return key[:idx], key[idx+1:], true
}

// iTermUUIDSuffix strips an ITERM key down to the UUID after its final
// colon, the same suffix FindByTerminalKey matches on.
func iTermUUIDSuffix(rest string) string {
	if idx := strings.LastIndexByte(rest, ':'); idx >= 0 {
		return rest[idx+1:]
	}
	return rest
}

// normalizeTTY ensures a tty path carries the /dev/ prefix regardless of
// whether the caller supplied a bare device name or a full path.
func normalizeTTY(path string) string {
	if strings.HasPrefix(path, "/dev/") {
		return path
	}
	return "/dev/" + path
}

func (a *Activator) activateITerm(ctx context.Context, uuid string) Result {
	script := fmt.Sprintf(`tell application "iTerm2"
		repeat with w in windows
			repeat with t in tabs of w
				repeat with s in sessions of t
					if id of s contains %q then
						select s
						select t
						set index of w to 1
						return
					end if
				end repeat
			end repeat
		end repeat
	end tell`, uuid)
	return a.runAppleScript(ctx, "iterm2", script)
}

func (a *Activator) activateKitty(ctx context.Context, windowID string) Result {
	cmd, cancel := a.command(ctx, programmaticTimeout, "kitten", "@", "focus-window", "--match", "id:"+windowID)
	defer cancel()
	return a.run(cmd, "kitty")
}

func (a *Activator) activateWezterm(ctx context.Context, paneID string) Result {
	cmd, cancel := a.command(ctx, programmaticTimeout, "wezterm", "cli", "activate-pane", "--pane-id", paneID)
	defer cancel()
	return a.run(cmd, "wezterm")
}

func (a *Activator) activateTTY(ctx context.Context, ttyPath string) Result {
	script := fmt.Sprintf(`tell application "Terminal"
		repeat with w in windows
			repeat with t in tabs of w
				if tty of t is %q then
					set frontmost of w to true
					set selected of t to true
					return
				end if
			end repeat
		end repeat
	end tell`, ttyPath)
	return a.runAppleScript(ctx, "terminal_app", script)
}

func (a *Activator) activatePID(ctx context.Context, pid string) Result {
	script := fmt.Sprintf(`tell application "System Events"
		set frontmost of (first process whose unix id is %s) to true
	end tell`, pid)
	return a.runAppleScript(ctx, "pid_activate", script)
}

func (a *Activator) runAppleScript(ctx context.Context, method, script string) Result {
	cmd, cancel := a.command(ctx, scriptableTimeout, "osascript", "-e", script)
	defer cancel()
	return a.run(cmd, method)
}

func (a *Activator) command(ctx context.Context, timeout time.Duration, name string, args ...string) (*exec.Cmd, context.CancelFunc) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	return exec.CommandContext(cctx, name, args...), cancel
}

func (a *Activator) run(cmd *exec.Cmd, method string) Result {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return Result{Success: false, Method: method, Error: msg}
	}
	return Result{Success: true, Method: method}
}
