// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/jacquesd/internal/transcript"
)

func TestGroupAndDedupe_WriteBeatsEmbeddedWithinGroup(t *testing.T) {
	detections := []detection{
		{Source: "embedded", MessageIndex: 1, Title: "Embedded title", Content: "embedded body"},
		{Source: "write", MessageIndex: 2, Title: "Write title", Content: "write body", FilePath: "plans/x.plan.md"},
	}

	groups := groupAndDedupe(detections)
	require.Len(t, groups, 1)
	rep := representative(groups[0])
	assert.Equal(t, "write", rep.Source)
	assert.ElementsMatch(t, []string{"embedded", "write"}, mergedSources(groups[0]))
}

func TestGroupAndDedupe_NewGroupStartsAtEveryEmbedded(t *testing.T) {
	detections := []detection{
		{Source: "embedded", MessageIndex: 1},
		{Source: "agent", MessageIndex: 2},
		{Source: "embedded", MessageIndex: 5},
		{Source: "write", MessageIndex: 6},
	}

	groups := groupAndDedupe(detections)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0], 2)
	assert.Len(t, groups[1], 2)
}

func TestGroupAndDedupe_LeadingNonEmbeddedFormsItsOwnGroup(t *testing.T) {
	detections := []detection{
		{Source: "write", MessageIndex: 1},
		{Source: "embedded", MessageIndex: 3},
	}

	groups := groupAndDedupe(detections)
	require.Len(t, groups, 2)
	assert.Equal(t, "write", groups[0][0].Source)
	assert.Equal(t, "embedded", groups[1][0].Source)
}

func TestLooksLikeWrittenPlan_RejectsCodeSignal(t *testing.T) {
	code := "import \"fmt\"\n\n# not actually a plan\n\nfunc main() {}\n\nmore content to pad this out well past the minimum length threshold required."
	assert.False(t, looksLikeWrittenPlan(code))
}

func TestLooksLikeWrittenPlan_AcceptsListStructuredProse(t *testing.T) {
	plan := "# Rollout plan\n\n- Step one: ship behind a flag\n- Step two: dogfood internally\n- Step three: enable for everyone once metrics look healthy for a week"
	assert.True(t, looksLikeWrittenPlan(plan))
}

func TestDetectWrittenPlans_OnlyMatchesPlanLikePaths(t *testing.T) {
	planBody := "# Rollout plan\n\n- Step one\n- Step two\n- Step three with enough content to pass the length gate comfortably"
	quoted, err := json.Marshal(planBody)
	require.NoError(t, err)
	inputJSON := `{"file_path":"notes/readme.md","content":` + string(quoted) + `}`

	entries := []transcript.Entry{
		{Type: transcript.EntryToolCall, ToolName: "Write", FilePath: "notes/readme.md", ToolInput: inputJSON},
	}

	detections := detectWrittenPlans(entries)
	assert.Empty(t, detections, "a non plan-like path must not be detected even with plan-shaped content")
}

func TestDetectWrittenPlans_MatchesPlansSubtreePath(t *testing.T) {
	planBody := "# Rollout plan\n\n- Step one\n- Step two\n- Step three with enough content to pass the length gate comfortably"
	quoted, err := json.Marshal(planBody)
	require.NoError(t, err)
	inputJSON := `{"file_path":"docs/plans/rollout.md","content":` + string(quoted) + `}`

	entries := []transcript.Entry{
		{Type: transcript.EntryToolCall, Index: 4, ToolName: "Write", FilePath: "docs/plans/rollout.md", ToolInput: inputJSON},
	}

	detections := detectWrittenPlans(entries)
	require.Len(t, detections, 1)
	assert.Equal(t, "write", detections[0].Source)
	assert.Equal(t, "docs/plans/rollout.md", detections[0].FilePath)
}
