// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package catalog is the incremental JSONL transcript catalog extractor: it
// mines a session's transcript into a durable per-project manifest,
// extracted subagent artifacts, and web-search syntheses, and detects and
// records the plans embedded in or produced during the session.
package catalog

import "time"

// Mode is the session's dominant activity as inferred from its transcript.
type Mode string

const (
	ModePlanning  Mode = "planning"
	ModeExecuting Mode = "executing"
)

// PlanReference is one deduplicated reference to a cataloged plan, recorded
// on the session manifest. `source` is always set; `sources` lists every
// detection source merged into the group, including when there is only one.
type PlanReference struct {
	PlanID       string   `json:"plan_id,omitempty"`
	Title        string   `json:"title,omitempty"`
	Source       string   `json:"source"`
	Sources      []string `json:"sources,omitempty"`
	MessageIndex int      `json:"message_index"`
	FilePath     string   `json:"file_path,omitempty"`
	AgentID      string   `json:"agent_id,omitempty"`
	CatalogID    string   `json:"catalog_id,omitempty"`
}

// SubagentEntry indexes one extracted subagent artifact.
type SubagentEntry struct {
	AgentID       string `json:"agent_id"`
	ArtifactPath  string `json:"artifact_path"`
	Description   string `json:"description"`
	EstimatedCost int    `json:"estimated_token_cost"`
}

// Manifest is the durable per-session summary written to
// sessions/<session_id>.json.
type Manifest struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	Project   string `json:"project"`

	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`

	MessageCount      int `json:"message_count"`
	ToolCallCount     int `json:"tool_call_count"`
	UserQuestionCount int `json:"user_question_count"`
	TotalInputTokens  int `json:"total_input_tokens"`
	TotalOutputTokens int `json:"total_output_tokens"`

	Technologies  []string `json:"technologies"`
	FilesModified []string `json:"files_modified"`
	Mode          Mode     `json:"mode"`

	PlanIDs     []string        `json:"plan_ids"`
	SubagentIDs []string        `json:"subagent_ids"`
	Plans       []PlanReference `json:"plans"`
	Subagents   []SubagentEntry `json:"subagents"`

	// JSONLModifiedAt backs the incremental-skip gate: a later extraction
	// call with an unchanged transcript mtime is a no-op.
	JSONLModifiedAt time.Time `json:"jsonl_modified_at"`
}

// IndexEntry is the project-level summary of one session's manifest, kept in
// the catalog's index.json so a project listing never has to open every
// manifest file.
type IndexEntry struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	Mode      Mode      `json:"mode"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// ProjectIndex is the per-project catalog index, sessions/<id>.json's
// lightweight sibling.
type ProjectIndex struct {
	Sessions []IndexEntry `json:"sessions"`
}
