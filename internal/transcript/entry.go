// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package transcript decodes a Claude Code-style JSONL transcript into an
// ordered list of typed entries, and watches a transcript file for
// appended content.
package transcript

import "time"

// EntryType is one of the thirteen parsed-entry kinds named in the
// specification's transcript vocabulary.
type EntryType string

const (
	EntryUserMessage      EntryType = "user_message"
	EntryAssistantMessage EntryType = "assistant_message"
	EntryToolCall         EntryType = "tool_call"
	EntryToolResult       EntryType = "tool_result"
	EntryThinking         EntryType = "thinking"
	EntryAgentProgress    EntryType = "agent_progress"
	EntryBashProgress     EntryType = "bash_progress"
	EntryMCPProgress      EntryType = "mcp_progress"
	EntryWebSearch        EntryType = "web_search"
	EntryHookProgress     EntryType = "hook_progress"
	EntryTurnDuration     EntryType = "turn_duration"
	EntrySystemEvent      EntryType = "system_event"
	EntrySummary          EntryType = "summary"
)

// WebSearchResult is one organic result attached to a web_search entry once
// its tool_result has arrived.
type WebSearchResult struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Entry is one parsed transcript line, normalized across the several raw
// wire shapes a Claude Code transcript line can take.
type Entry struct {
	Type      EntryType `json:"type"`
	Index     int       `json:"index"` // 0-based source line number
	Timestamp time.Time `json:"timestamp"`

	// user_message / assistant_message / thinking / summary / system_event
	Text        string `json:"text,omitempty"`
	IsSynthetic bool   `json:"is_synthetic,omitempty"` // meta/hook-injected, not a real user question

	// tool_call
	ToolName  string `json:"tool_name,omitempty"`
	ToolUseID string `json:"tool_use_id,omitempty"`
	FilePath  string `json:"file_path,omitempty"`  // for file-writing tools
	ToolInput string `json:"tool_input,omitempty"` // raw JSON of the tool's input object

	// tool_result
	ResultForToolUseID string `json:"result_for_tool_use_id,omitempty"`
	IsError            bool   `json:"is_error,omitempty"`

	// web_search
	WebSearchQuery   string            `json:"web_search_query,omitempty"`
	WebSearchResults []WebSearchResult `json:"web_search_results,omitempty"`

	// agent_progress / subagent linkage
	AgentID string `json:"agent_id,omitempty"`

	// turn_duration
	DurationMs int64 `json:"duration_ms,omitempty"`

	// token usage, present on assistant_message entries
	Usage Usage `json:"usage,omitempty"`
}

// Usage is the per-message token accounting Claude Code reports alongside
// each assistant turn.
type Usage struct {
	InputTokens         int `json:"input_tokens,omitempty"`
	OutputTokens        int `json:"output_tokens,omitempty"`
	CacheCreationTokens int `json:"cache_creation_tokens,omitempty"`
	CacheReadTokens     int `json:"cache_read_tokens,omitempty"`
}

// Meta carries transcript-level metadata recovered while parsing, when the
// transcript lines happen to carry it (cwd, git branch).
type Meta struct {
	CWD       string
	GitBranch string
}
