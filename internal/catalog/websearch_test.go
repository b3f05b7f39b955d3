// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/jacquesd/internal/transcript"
)

func TestExtractWebSearches_WritesOneArtifactPerDistinctQuery(t *testing.T) {
	dir := t.TempDir()
	longSynthesis := strings.Repeat("Postgres handles JSON columns natively via jsonb. ", 6)

	entries := []transcript.Entry{
		{Index: 0, Type: transcript.EntryUserMessage, Text: "what database should we use"},
		{Index: 1, Type: transcript.EntryToolCall, ToolName: "web_search", ToolUseID: "tu1", WebSearchQuery: "postgres jsonb performance"},
		{Index: 2, Type: transcript.EntryWebSearch, ResultForToolUseID: "tu1", WebSearchResults: []transcript.WebSearchResult{{Title: "Postgres docs", URL: "https://postgresql.org/docs"}}},
		{Index: 3, Type: transcript.EntryAssistantMessage, Text: longSynthesis},
		{Index: 4, Type: transcript.EntryUserMessage, Text: "thanks"},
	}

	artifacts, err := extractWebSearches(filepath.Join(dir, "subagents"), entries)
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Contains(t, artifacts[0], "search_")
}

func TestExtractWebSearches_DedupesByQueryWithinSession(t *testing.T) {
	dir := t.TempDir()
	longSynthesis := strings.Repeat("Redis is an in-memory store well suited to caching. ", 6)

	entries := []transcript.Entry{
		{Index: 0, Type: transcript.EntryToolCall, ToolName: "web_search", ToolUseID: "tu1", WebSearchQuery: "redis vs memcached"},
		{Index: 1, Type: transcript.EntryWebSearch, ResultForToolUseID: "tu1"},
		{Index: 2, Type: transcript.EntryAssistantMessage, Text: longSynthesis},
		{Index: 3, Type: transcript.EntryToolCall, ToolName: "web_search", ToolUseID: "tu2", WebSearchQuery: "redis vs memcached"},
		{Index: 4, Type: transcript.EntryWebSearch, ResultForToolUseID: "tu2"},
		{Index: 5, Type: transcript.EntryAssistantMessage, Text: longSynthesis},
	}

	artifacts, err := extractWebSearches(filepath.Join(dir, "subagents"), entries)
	require.NoError(t, err)
	assert.Len(t, artifacts, 1)
}

func TestExtractWebSearches_SkipsWhenResponseTooShort(t *testing.T) {
	dir := t.TempDir()
	entries := []transcript.Entry{
		{Index: 0, Type: transcript.EntryToolCall, ToolName: "web_search", ToolUseID: "tu1", WebSearchQuery: "quick fact"},
		{Index: 1, Type: transcript.EntryWebSearch, ResultForToolUseID: "tu1"},
		{Index: 2, Type: transcript.EntryAssistantMessage, Text: "short answer"},
	}

	artifacts, err := extractWebSearches(filepath.Join(dir, "subagents"), entries)
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}
