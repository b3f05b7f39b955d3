// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/wingedpig/jacquesd/internal/transcript"
)

const minSubstantialResponseLength = 200

// extractWebSearches scans the main transcript for web_search tool_use/
// tool_result pairs, matching each distinct query with the next substantial
// assistant response before the next user message or next search, and
// writes one search_<hash>_<slug>.md artifact per distinct query.
func extractWebSearches(subagentsDir string, entries []transcript.Entry) ([]string, error) {
	queryByToolUseID := make(map[string]string)
	for _, e := range entries {
		if e.Type == transcript.EntryToolCall && e.WebSearchQuery != "" {
			queryByToolUseID[e.ToolUseID] = e.WebSearchQuery
		}
	}

	seenQueries := make(map[string]bool)
	var artifacts []string

	for i, e := range entries {
		if e.Type != transcript.EntryWebSearch {
			continue
		}
		query, ok := queryByToolUseID[e.ResultForToolUseID]
		if !ok || seenQueries[query] {
			continue
		}

		response := nextSubstantialResponse(entries, i+1)
		if response == "" {
			continue
		}
		seenQueries[query] = true

		urls := make([]string, 0, len(e.WebSearchResults))
		for _, r := range e.WebSearchResults {
			urls = append(urls, r.URL)
		}

		hash := queryHash(query)
		artifactName := fmt.Sprintf("search_%s_%s.md", hash, slugify(query))
		artifactPath := filepath.Join(subagentsDir, artifactName)

		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n", query)
		if len(urls) > 0 {
			b.WriteString("Sources:\n")
			for _, u := range urls {
				fmt.Fprintf(&b, "- %s\n", u)
			}
			b.WriteString("\n")
		}
		b.WriteString(response)
		b.WriteString("\n")

		if err := writeFile(artifactPath, b.String()); err != nil {
			return artifacts, err
		}
		artifacts = append(artifacts, artifactPath)
	}

	return artifacts, nil
}

// nextSubstantialResponse finds the next assistant_message of at least
// minSubstantialResponseLength chars, stopping at the next user_message or
// web_search entry.
func nextSubstantialResponse(entries []transcript.Entry, from int) string {
	var acc strings.Builder
	for i := from; i < len(entries); i++ {
		switch entries[i].Type {
		case transcript.EntryUserMessage, transcript.EntryWebSearch:
			return finalizeIfSubstantial(acc.String())
		case transcript.EntryAssistantMessage:
			acc.WriteString(entries[i].Text)
		}
	}
	return finalizeIfSubstantial(acc.String())
}

func finalizeIfSubstantial(text string) string {
	if len(strings.TrimSpace(text)) >= minSubstantialResponseLength {
		return text
	}
	return ""
}

func queryHash(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(sum[:])[:8]
}
