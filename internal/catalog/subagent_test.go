// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverSubagentTranscripts_ExcludesInternalPrefixes(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "session.jsonl")
	require.NoError(t, os.WriteFile(main, []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session-agent-explore1.jsonl"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session-agent-aprompt_suggestion-x.jsonl"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session-agent-acompact-y.jsonl"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.jsonl"), []byte("{}"), 0o644))

	refs, err := discoverSubagentTranscripts(main)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "explore1", refs[0].AgentID)
}

func TestExtractSubagent_WritesArtifactWithHeader(t *testing.T) {
	dir := t.TempDir()
	subPath := filepath.Join(dir, "session-agent-explore1.jsonl")
	require.NoError(t, os.WriteFile(subPath, []byte(
		`{"type":"assistant","timestamp":"2026-07-01T10:00:00Z","message":{"role":"assistant","content":[{"type":"text","text":"Found three callers of the deprecated function across the repo."}],"usage":{"input_tokens":200,"output_tokens":30}}}`+"\n"), 0o644))

	artifactsDir := filepath.Join(dir, "subagents")
	result, err := extractSubagent(artifactsDir, "sess-1", subagentTranscript{AgentID: "explore1", Path: subPath}, time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, result)

	data, err := os.ReadFile(result.Entry.ArtifactPath)
	require.NoError(t, err)
	body := string(data)
	assert.Contains(t, body, "Session: sess-1")
	assert.Contains(t, body, "Found three callers")
	assert.Equal(t, 230, result.Entry.EstimatedCost)
}

func TestExtractSubagent_EmptyFinalTextYieldsNoArtifact(t *testing.T) {
	dir := t.TempDir()
	subPath := filepath.Join(dir, "session-agent-explore2.jsonl")
	require.NoError(t, os.WriteFile(subPath, []byte(
		`{"type":"user","timestamp":"2026-07-01T10:00:00Z","message":{"role":"user","content":"go explore"}}`+"\n"), 0o644))

	result, err := extractSubagent(filepath.Join(dir, "subagents"), "sess-1", subagentTranscript{AgentID: "explore2", Path: subPath}, time.Now())
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestSlugify_NormalizesPunctuationAndCase(t *testing.T) {
	assert.Equal(t, "fix-the-login-bug", slugify("Fix the Login Bug!"))
}
