// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"strings"

	"github.com/wingedpig/jacquesd/internal/registry"
)

// dashEncode turns a project's absolute cwd into the path-segment form
// used by the plan/subagent content routes (forward slashes replaced with
// dashes), the same style Claude Code itself uses for its own
// ~/.claude/projects/<dash-encoded-path>/ layout.
func dashEncode(path string) string {
	return strings.ReplaceAll(path, "/", "-")
}

// resolveProjectDir reverses dashEncode against the set of project
// directories currently known to the registry. Dashes are ambiguous on
// their own (a real directory name may contain one), so this only
// recognizes projects the registry has actually seen rather than
// attempting a generic un-escape.
func resolveProjectDir(reg *registry.Registry, encoded string) (string, bool) {
	for _, dir := range knownProjectDirs(reg) {
		if dashEncode(dir) == encoded {
			return dir, true
		}
	}
	return "", false
}

// knownProjectDirs lists the distinct cwds of every session the registry
// currently holds.
func knownProjectDirs(reg *registry.Registry) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range reg.List() {
		if s.CWD == "" {
			continue
		}
		if _, ok := seen[s.CWD]; ok {
			continue
		}
		seen[s.CWD] = struct{}{}
		out = append(out, s.CWD)
	}
	return out
}
