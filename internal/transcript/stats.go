// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transcript

import "time"

// Stats holds token totals, message/tool-call counts, and the last-seen
// timestamp, derived from a parsed entry sequence in one pass.
type Stats struct {
	TotalInputTokens         int // last observed input-token count, plus cumulative cache-read
	TotalOutputTokens        int // sum across every assistant turn
	CumulativeCacheCreation  int
	CumulativeCacheRead      int
	ToolCallCount            int
	UserMessageCount         int
	UserQuestionCount        int // non-synthetic user messages
	AssistantMessageCount    int
	LastEntryAt              time.Time
	LastInputTokenObserved   int
}

// ComputeStats derives a Stats value from an ordered entry sequence.
// Restartable: computed purely from the slice, holding no external state.
func ComputeStats(entries []Entry) Stats {
	var s Stats

	for _, e := range entries {
		if e.Timestamp.After(s.LastEntryAt) {
			s.LastEntryAt = e.Timestamp
		}

		switch e.Type {
		case EntryUserMessage:
			s.UserMessageCount++
			if !e.IsSynthetic {
				s.UserQuestionCount++
			}
		case EntryAssistantMessage:
			s.AssistantMessageCount++
		case EntryToolCall:
			s.ToolCallCount++
		}

		if e.Usage.InputTokens > 0 {
			s.LastInputTokenObserved = e.Usage.InputTokens
		}
		s.TotalOutputTokens += e.Usage.OutputTokens
		s.CumulativeCacheCreation += e.Usage.CacheCreationTokens
		s.CumulativeCacheRead += e.Usage.CacheReadTokens
	}

	s.TotalInputTokens = s.LastInputTokenObserved + s.CumulativeCacheRead
	return s
}
