// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package procscan

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// processCWD reads a process's working directory via /proc/<pid>/cwd,
// the same symlink mrf-agent-racer's DiscoverSessions reads.
func processCWD(pid int) (string, bool) {
	cwd, err := os.Readlink(fmt.Sprintf("/proc/%d/cwd", pid))
	if err != nil {
		return "", false
	}
	return cwd, true
}

// discoverTranscriptPath walks a process's open file descriptors
// looking for one held open on a Claude Code transcript (a ".jsonl"
// file under a "*/projects/*" directory, the on-disk layout Claude
// Code itself uses under ~/.claude/projects/<dash-encoded-path>/).
// Processes keep their active transcript open for append, so this is
// a reliable way to recover the path without parsing argv.
func discoverTranscriptPath(pid int) (string, bool) {
	fdDir := fmt.Sprintf("/proc/%d/fd", pid)
	entries, err := os.ReadDir(fdDir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		target, err := os.Readlink(fdDir + "/" + e.Name())
		if err != nil {
			continue
		}
		if strings.HasSuffix(target, ".jsonl") && strings.Contains(target, "/projects/") {
			return target, true
		}
	}
	return "", false
}

// processTTY recovers the controlling terminal device a process has
// stdin attached to, if any, for use as a TerminalKeyInner fallback
// when no richer terminal identity is available.
func processTTY(pid int) (string, bool) {
	target, err := os.Readlink(fmt.Sprintf("/proc/%d/fd/0", pid))
	if err != nil {
		return "", false
	}
	if strings.HasPrefix(target, "/dev/pts/") || strings.HasPrefix(target, "/dev/tty") {
		return target, true
	}
	return "", false
}

// processStartTime approximates a process's start time from the mtime
// of its /proc/<pid> directory, the same proxy getProcessStartTime
// uses when the precise boot-relative clock tick isn't worth parsing.
func processStartTime(pid int) time.Time {
	info, err := os.Stat(fmt.Sprintf("/proc/%d", pid))
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// nodeCmdlineMatchesPattern inspects a node process's argv (via
// /proc/<pid>/cmdline, NUL-separated) for an entry point matching one
// of the configured assistant binary patterns, skipping
// node_modules/.bin shims so every locally vendored CLI doesn't match.
func nodeCmdlineMatchesPattern(pid int, patterns []string) bool {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/cmdline", pid))
	if err != nil {
		return false
	}
	args := strings.Split(string(data), "\x00")
	for _, arg := range args[1:] {
		if arg == "" || strings.Contains(arg, "node_modules/.bin") {
			continue
		}
		lower := strings.ToLower(arg)
		for _, pat := range patterns {
			if strings.Contains(lower, strings.ToLower(pat)) {
				return true
			}
		}
	}
	return false
}
