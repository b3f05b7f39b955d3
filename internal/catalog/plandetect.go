// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/wingedpig/jacquesd/internal/transcript"
)

const minPlanBodyLength = 100

var planTriggers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)implement the following plan`),
	regexp.MustCompile(`(?i)here is the plan`),
	regexp.MustCompile(`(?i)follow this plan`),
}

var headingPattern = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+\S`)
var negativeCodeSignal = regexp.MustCompile(`(?m)^\s*(import|export|const|function|class|def|public|private|package)\b`)
var listItemPattern = regexp.MustCompile(`(?m)^\s*[-*]\s+\S`)
var planPathHint = regexp.MustCompile(`(?i)plan`)

// detection is one raw plan sighting before cross-detection grouping.
type detection struct {
	Source       string // embedded | write | agent
	MessageIndex int
	Title        string
	Content      string
	FilePath     string
	AgentID      string
}

// looksLikePlan enforces the shared body criteria: long enough, carries a
// markdown heading.
func looksLikePlan(body string) bool {
	return len(strings.TrimSpace(body)) >= minPlanBodyLength && headingPattern.MatchString(body)
}

// looksLikeWrittenPlan additionally rejects bodies that read like source
// code and requires genuine prose structure (a list or multiple paragraphs).
func looksLikeWrittenPlan(body string) bool {
	if !looksLikePlan(body) {
		return false
	}
	if negativeCodeSignal.MatchString(body) {
		return false
	}
	paragraphs := strings.Split(strings.TrimSpace(body), "\n\n")
	return listItemPattern.MatchString(body) || len(paragraphs) > 1
}

// detectEmbeddedPlans scans user messages for trigger phrases.
func detectEmbeddedPlans(entries []transcript.Entry) []detection {
	var out []detection
	for _, e := range entries {
		if e.Type != transcript.EntryUserMessage || e.IsSynthetic {
			continue
		}
		for _, trig := range planTriggers {
			loc := trig.FindStringIndex(e.Text)
			if loc == nil {
				continue
			}
			body := e.Text[loc[1]:]
			if !looksLikePlan(body) {
				continue
			}
			out = append(out, detection{
				Source:       "embedded",
				MessageIndex: e.Index,
				Title:        planTitle(body),
				Content:      body,
			})
			break
		}
	}
	return out
}

// detectWrittenPlans scans tool_call entries writing a plan-shaped file.
func detectWrittenPlans(entries []transcript.Entry) []detection {
	var out []detection
	for _, e := range entries {
		if e.Type != transcript.EntryToolCall || e.FilePath == "" {
			continue
		}
		if !isPlanLikePath(e.FilePath) {
			continue
		}
		content := extractWriteContent(e.ToolInput)
		if content == "" || !looksLikeWrittenPlan(content) {
			continue
		}
		out = append(out, detection{
			Source:       "write",
			MessageIndex: e.Index,
			Title:        planTitle(content),
			Content:      content,
			FilePath:     e.FilePath,
		})
	}
	return out
}

func isPlanLikePath(path string) bool {
	if strings.HasSuffix(path, ".plan.md") {
		return true
	}
	if strings.Contains(path, "/plans/") || strings.HasPrefix(path, "plans/") {
		return true
	}
	return planPathHint.MatchString(path)
}

func extractWriteContent(toolInputJSON string) string {
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(toolInputJSON), &m); err != nil {
		return ""
	}
	raw, ok := m["content"]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// detectAgentPlan treats a subagent's final assistant text as a plan
// detection when the subagent's own identity reads as a planning agent
// (its agent id mentions "plan") and its content passes the
// shared plan-body criteria. Called from the subagent extraction pass,
// which already has the final assistant text in hand.
func detectAgentPlan(agentID, finalText string, messageIndex int) (detection, bool) {
	if !strings.Contains(strings.ToLower(agentID), "plan") {
		return detection{}, false
	}
	if !looksLikePlan(finalText) {
		return detection{}, false
	}
	return detection{
		Source:       "agent",
		MessageIndex: messageIndex,
		Title:        planTitle(finalText),
		Content:      finalText,
		AgentID:      agentID,
	}, true
}

func planTitle(body string) string {
	if loc := headingPattern.FindStringIndex(body); loc != nil {
		line := strings.TrimLeft(body[loc[0]:], " \t\r\n")
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
		}
		if title := strings.TrimSpace(strings.TrimLeft(line, "# \t")); title != "" {
			return title
		}
	}
	trimmed := strings.TrimSpace(body)
	if len(trimmed) > 60 {
		return trimmed[:60]
	}
	return trimmed
}

var sourcePriority = map[string]int{"write": 3, "embedded": 2, "agent": 1}

// groupAndDedupe sorts detections by message index, starts a new group at
// every embedded detection, folds subsequent write/agent detections into
// the current group until the next embedded one, then picks one
// representative per group by source priority.
func groupAndDedupe(detections []detection) [][]detection {
	sorted := make([]detection, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MessageIndex < sorted[j].MessageIndex })

	var groups [][]detection
	var current []detection
	for _, d := range sorted {
		if d.Source == "embedded" || current == nil {
			if current != nil {
				groups = append(groups, current)
			}
			current = []detection{d}
			continue
		}
		current = append(current, d)
	}
	if current != nil {
		groups = append(groups, current)
	}
	return groups
}

func representative(group []detection) detection {
	best := group[0]
	for _, d := range group[1:] {
		if sourcePriority[d.Source] > sourcePriority[best.Source] {
			best = d
		}
	}
	return best
}

func mergedSources(group []detection) []string {
	seen := make(map[string]bool, len(group))
	var out []string
	for _, d := range group {
		if !seen[d.Source] {
			seen[d.Source] = true
			out = append(out, d.Source)
		}
	}
	sort.Strings(out)
	return out
}

func firstNonEmpty(group []detection, pick func(detection) string) string {
	for _, d := range group {
		if v := pick(d); v != "" {
			return v
		}
	}
	return ""
}
