// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wingedpig/jacquesd/internal/transcript"
)

// internalAgentPrefixes name subagent ids that are implementation details of
// the assistant itself (prompt-suggestion generation, context compaction)
// rather than a user-visible subagent run, and are excluded from extraction.
var internalAgentPrefixes = []string{"aprompt_suggestion-", "acompact-"}

func isInternalAgentID(id string) bool {
	for _, prefix := range internalAgentPrefixes {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

// subagentTranscript pairs a discovered subagent transcript file with the
// agent id encoded in its name.
type subagentTranscript struct {
	AgentID string
	Path    string
}

var subagentFilePattern = regexp.MustCompile(`^(.+)-agent-([A-Za-z0-9_]+)\.jsonl$`)

// discoverSubagentTranscripts looks for subagent transcript files sitting
// alongside the main transcript, named "<main-base>-agent-<agent_id>.jsonl".
func discoverSubagentTranscripts(mainTranscriptPath string) ([]subagentTranscript, error) {
	dir := filepath.Dir(mainTranscriptPath)
	base := strings.TrimSuffix(filepath.Base(mainTranscriptPath), ".jsonl")

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []subagentTranscript
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := subagentFilePattern.FindStringSubmatch(e.Name())
		if m == nil || m[1] != base {
			continue
		}
		if isInternalAgentID(m[2]) {
			continue
		}
		out = append(out, subagentTranscript{AgentID: m[2], Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}

// lastSubstantialAssistantText returns the final non-trivial assistant
// message in a subagent's entries.
func lastSubstantialAssistantText(entries []transcript.Entry) string {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Type == transcript.EntryAssistantMessage && len(strings.TrimSpace(entries[i].Text)) > 0 {
			return entries[i].Text
		}
	}
	return ""
}

func slugify(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := false
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > 40 {
		slug = slug[:40]
	}
	if slug == "" {
		slug = "untitled"
	}
	return slug
}

// extractedSubagent is the result of mining one subagent transcript.
type extractedSubagent struct {
	Entry        SubagentEntry
	PlanDetected *detection
}

// extractSubagent parses one subagent transcript and, if its final response
// is substantial, writes the explore_<agent_id>_<slug>.md artifact.
func extractSubagent(subagentsDir string, sessionID string, ref subagentTranscript, now time.Time) (*extractedSubagent, error) {
	entries, _, err := transcript.ParseFile(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("parse subagent transcript %s: %w", ref.Path, err)
	}

	finalText := lastSubstantialAssistantText(entries)
	if finalText == "" {
		return nil, nil
	}

	stats := transcript.ComputeStats(entries)
	description := firstLine(finalText)
	slug := slugify(description)
	agentID := ref.AgentID
	if agentID == "" {
		// No natural id was recoverable from the transcript filename; fall
		// back to a synthetic one so the artifact name stays unique.
		agentID = uuid.NewString()
	}
	artifactName := fmt.Sprintf("explore_%s_%s.md", agentID, slug)
	artifactPath := filepath.Join(subagentsDir, artifactName)

	body := fmt.Sprintf("# %s\n\nSession: %s\nDate: %s\nEstimated token cost: %d\n\n%s\n",
		description, sessionID, now.Format(time.RFC3339), stats.TotalInputTokens+stats.TotalOutputTokens, finalText)

	if err := writeFile(artifactPath, body); err != nil {
		return nil, err
	}

	result := &extractedSubagent{
		Entry: SubagentEntry{
			AgentID:       agentID,
			ArtifactPath:  artifactPath,
			Description:   description,
			EstimatedCost: stats.TotalInputTokens + stats.TotalOutputTokens,
		},
	}

	lastIndex := 0
	if len(entries) > 0 {
		lastIndex = entries[len(entries)-1].Index
	}
	if d, ok := detectAgentPlan(agentID, finalText, lastIndex); ok {
		result.PlanDetected = &d
	}
	return result, nil
}

func firstLine(text string) string {
	trimmed := strings.TrimSpace(text)
	if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
		trimmed = trimmed[:i]
	}
	if len(trimmed) > 80 {
		trimmed = trimmed[:80]
	}
	return trimmed
}
