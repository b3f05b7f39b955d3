// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"fmt"
	"strings"

	"github.com/wingedpig/jacquesd/internal/catalog"
)

// tokenEstimateDivisor approximates characters-per-token for rough sizing;
// it is only ever used to give a client a ballpark, never persisted.
const tokenEstimateDivisor = 4

// handoffContextFrom renders a session manifest into the textual summary a
// client can hand to a fresh assistant session, plus a rough token
// estimate and the structured fields a richer client may want directly.
func handoffContextFrom(m *catalog.Manifest) (context string, tokenEstimate int, data map[string]any) {
	var b strings.Builder

	fmt.Fprintf(&b, "# Session handoff: %s\n\n", m.Title)
	fmt.Fprintf(&b, "Project: %s\n", m.Project)
	fmt.Fprintf(&b, "Mode: %s\n", m.Mode)
	fmt.Fprintf(&b, "Messages: %d (tool calls: %d, user questions: %d)\n\n", m.MessageCount, m.ToolCallCount, m.UserQuestionCount)

	if len(m.Technologies) > 0 {
		fmt.Fprintf(&b, "## Technologies\n%s\n\n", strings.Join(m.Technologies, ", "))
	}
	if len(m.FilesModified) > 0 {
		b.WriteString("## Files modified\n")
		for _, f := range m.FilesModified {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}
	if len(m.Plans) > 0 {
		b.WriteString("## Plans\n")
		for _, p := range m.Plans {
			title := p.Title
			if title == "" {
				title = p.PlanID
			}
			fmt.Fprintf(&b, "- %s (message #%d)\n", title, p.MessageIndex)
		}
		b.WriteString("\n")
	}

	context = b.String()
	tokenEstimate = len(context) / tokenEstimateDivisor

	data = map[string]any{
		"technologies":   m.Technologies,
		"files_modified": m.FilesModified,
		"mode":           m.Mode,
		"plan_count":     len(m.Plans),
		"subagent_count": len(m.Subagents),
	}
	return context, tokenEstimate, data
}
