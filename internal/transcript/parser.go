// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// rawLine is the outermost shape every transcript line shares. Unrecognized
// fields are ignored (not preserved) at this layer — decoding is
// lossy-tolerant, not schema-preserving.
type rawLine struct {
	Type       string      `json:"type"`
	Subtype    string      `json:"subtype,omitempty"`
	Timestamp  string      `json:"timestamp,omitempty"`
	CWD        string      `json:"cwd,omitempty"`
	GitBranch  string      `json:"gitBranch,omitempty"`
	Message    *rawMessage `json:"message,omitempty"`
	Summary    string      `json:"summary,omitempty"`
	Text       string      `json:"text,omitempty"`
	AgentID    string      `json:"agentId,omitempty"`
	DurationMs int64       `json:"durationMs,omitempty"`
	IsMeta     bool        `json:"isMeta,omitempty"`
}

type rawMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Usage   *rawUsage       `json:"usage,omitempty"`
}

type rawUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

type rawContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// webSearchToolNames are the tool names Claude Code's built-in search tool
// is observed to use; both forms have appeared across model/tool versions.
var webSearchToolNames = map[string]bool{"web_search": true, "WebSearch": true}

// fileWritingTools map a tool name to the JSON field in its input object
// that carries the written file's path.
var fileWritingTools = map[string]string{
	"Write": "file_path",
	"Edit":  "file_path",
}

// ParseFile decodes an entire transcript file into ordered entries. A
// malformed line is skipped with a warning logged; parsing continues.
func ParseFile(path string) ([]Entry, Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse decodes a transcript from r. source is used only in warning
// messages. Output order always matches input order, and is restartable:
// reparsing identical bytes yields an identical entry sequence.
func Parse(r io.Reader, source string) ([]Entry, Meta, error) {
	var entries []Entry
	var meta Meta

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	idx := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			idx++
			continue
		}

		var raw rawLine
		if err := json.Unmarshal(line, &raw); err != nil {
			log.Printf("transcript: %s:%d: skipping malformed line: %v", source, idx, err)
			idx++
			continue
		}

		if raw.CWD != "" {
			meta.CWD = raw.CWD
		}
		if raw.GitBranch != "" {
			meta.GitBranch = raw.GitBranch
		}

		ts := parseTimestamp(raw.Timestamp)
		entries = append(entries, decodeLine(raw, idx, ts)...)
		idx++
	}
	if err := scanner.Err(); err != nil {
		return entries, meta, fmt.Errorf("scan transcript: %w", err)
	}

	return entries, meta, nil
}

func decodeLine(raw rawLine, idx int, ts time.Time) []Entry {
	switch raw.Type {
	case "summary":
		return []Entry{{Type: EntrySummary, Index: idx, Timestamp: ts, Text: raw.Summary}}
	case "system":
		return decodeSystemLine(raw, idx, ts)
	case "user":
		return decodeUserLine(raw, idx, ts)
	case "assistant":
		return decodeAssistantLine(raw, idx, ts)
	default:
		if raw.Type == "" {
			return nil
		}
		return []Entry{{Type: EntrySystemEvent, Index: idx, Timestamp: ts, Text: raw.Text}}
	}
}

func decodeSystemLine(raw rawLine, idx int, ts time.Time) []Entry {
	switch raw.Subtype {
	case "agent_progress":
		return []Entry{{Type: EntryAgentProgress, Index: idx, Timestamp: ts, Text: raw.Text, AgentID: raw.AgentID}}
	case "bash_progress":
		return []Entry{{Type: EntryBashProgress, Index: idx, Timestamp: ts, Text: raw.Text}}
	case "mcp_progress":
		return []Entry{{Type: EntryMCPProgress, Index: idx, Timestamp: ts, Text: raw.Text}}
	case "hook_progress":
		return []Entry{{Type: EntryHookProgress, Index: idx, Timestamp: ts, Text: raw.Text}}
	case "turn_duration":
		return []Entry{{Type: EntryTurnDuration, Index: idx, Timestamp: ts, DurationMs: raw.DurationMs}}
	default:
		return []Entry{{Type: EntrySystemEvent, Index: idx, Timestamp: ts, Text: raw.Text}}
	}
}

func decodeUserLine(raw rawLine, idx int, ts time.Time) []Entry {
	if raw.Message == nil {
		return nil
	}

	if text, ok := decodeStringContent(raw.Message.Content); ok {
		return []Entry{{
			Type:        EntryUserMessage,
			Index:       idx,
			Timestamp:   ts,
			Text:        text,
			IsSynthetic: raw.IsMeta,
		}}
	}

	blocks, ok := decodeBlockContent(raw.Message.Content)
	if !ok {
		return nil
	}

	var entries []Entry
	var textParts string
	for _, b := range blocks {
		switch b.Type {
		case "text":
			textParts += b.Text
		case "tool_result":
			entries = append(entries, Entry{
				Type:               EntryToolResult,
				Index:              idx,
				Timestamp:          ts,
				ResultForToolUseID: b.ToolUseID,
				IsError:            b.IsError,
				Text:               toolResultText(b.Content),
			})
		case "web_search_tool_result":
			entries = append(entries, Entry{
				Type:               EntryWebSearch,
				Index:              idx,
				Timestamp:          ts,
				ResultForToolUseID: b.ToolUseID,
				WebSearchResults:   decodeWebSearchResults(b.Content),
			})
		}
	}
	if textParts != "" {
		entries = append(entries, Entry{Type: EntryUserMessage, Index: idx, Timestamp: ts, Text: textParts, IsSynthetic: raw.IsMeta})
	}
	return entries
}

func decodeAssistantLine(raw rawLine, idx int, ts time.Time) []Entry {
	if raw.Message == nil {
		return nil
	}

	usage := Usage{}
	if raw.Message.Usage != nil {
		usage = Usage{
			InputTokens:         raw.Message.Usage.InputTokens,
			OutputTokens:        raw.Message.Usage.OutputTokens,
			CacheCreationTokens: raw.Message.Usage.CacheCreationInputTokens,
			CacheReadTokens:     raw.Message.Usage.CacheReadInputTokens,
		}
	}

	blocks, ok := decodeBlockContent(raw.Message.Content)
	if !ok {
		if text, ok := decodeStringContent(raw.Message.Content); ok {
			return []Entry{{Type: EntryAssistantMessage, Index: idx, Timestamp: ts, Text: text, Usage: usage}}
		}
		return nil
	}

	var entries []Entry
	var textParts string
	for _, b := range blocks {
		switch b.Type {
		case "text":
			textParts += b.Text
		case "thinking":
			entries = append(entries, Entry{Type: EntryThinking, Index: idx, Timestamp: ts, Text: b.Thinking})
		case "tool_use":
			e := Entry{
				Type:      EntryToolCall,
				Index:     idx,
				Timestamp: ts,
				ToolName:  b.Name,
				ToolUseID: b.ID,
				ToolInput: string(b.Input),
			}
			if field, ok := fileWritingTools[b.Name]; ok {
				e.FilePath = extractStringField(b.Input, field)
			}
			if webSearchToolNames[b.Name] {
				e.WebSearchQuery = extractStringField(b.Input, "query")
			}
			entries = append(entries, e)
		}
	}
	if textParts != "" {
		entries = append(entries, Entry{Type: EntryAssistantMessage, Index: idx, Timestamp: ts, Text: textParts, Usage: usage})
	} else if len(entries) > 0 {
		// Attach usage to the turn via its first entry (a thinking or
		// tool_call entry) so C7 stats can
		// still observe it even when the assistant emitted no prose.
		entries[0].Usage = usage
	}
	return entries
}

func decodeStringContent(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func decodeBlockContent(raw json.RawMessage) ([]rawContentBlock, bool) {
	var blocks []rawContentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, false
	}
	return blocks, true
}

func toolResultText(raw json.RawMessage) string {
	if text, ok := decodeStringContent(raw); ok {
		return text
	}
	blocks, ok := decodeBlockContent(raw)
	if !ok {
		return ""
	}
	var out string
	for _, b := range blocks {
		if b.Type == "text" {
			out += b.Text
		}
	}
	return out
}

func decodeWebSearchResults(raw json.RawMessage) []WebSearchResult {
	var items []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]WebSearchResult, 0, len(items))
	for _, it := range items {
		out = append(out, WebSearchResult{Title: it.Title, URL: it.URL})
	}
	return out
}

func extractStringField(raw json.RawMessage, field string) string {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return ""
	}
	v, ok := m[field]
	if !ok {
		return ""
	}
	s, _ := decodeStringContent(v)
	return s
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

