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

	"github.com/wingedpig/jacquesd/internal/atomicfile"
	"github.com/wingedpig/jacquesd/internal/plancatalog"
	"github.com/wingedpig/jacquesd/internal/transcript"
)

// Result reports the outcome of one extraction call.
type Result struct {
	Skipped            bool   `json:"skipped"`
	Extracted          bool   `json:"extracted"`
	PlansExtracted     int    `json:"plans_extracted"`
	SubagentsExtracted int    `json:"subagents_extracted"`
	Error              string `json:"error,omitempty"`
}

// Manager extracts and persists per-session catalogs under one project's
// catalog directory (".jacques" by convention), stateless across calls.
type Manager struct {
	catalogDir string
	plans      *plancatalog.Catalog
}

// NewManager opens a catalog Manager rooted at catalogDir, creating (or
// reusing) its plan catalog.
func NewManager(catalogDir string, planDedupThreshold float64) (*Manager, error) {
	plans, err := plancatalog.Open(catalogDir, planDedupThreshold)
	if err != nil {
		return nil, err
	}
	return &Manager{catalogDir: catalogDir, plans: plans}, nil
}

func (m *Manager) sessionsDir() string  { return filepath.Join(m.catalogDir, "sessions") }
func (m *Manager) subagentsDir() string { return filepath.Join(m.catalogDir, "subagents") }
func (m *Manager) indexPath() string    { return filepath.Join(m.catalogDir, "index.json") }

func (m *Manager) manifestPath(sessionID string) string {
	return filepath.Join(m.sessionsDir(), sessionID+".json")
}

// Manifest returns the persisted manifest for sessionID, if one has been
// extracted yet.
func (m *Manager) Manifest(sessionID string) (*Manifest, bool, error) {
	var manifest Manifest
	found, err := atomicfile.ReadJSON(m.manifestPath(sessionID), &manifest)
	if err != nil || !found {
		return nil, found, err
	}
	return &manifest, true, nil
}

// Index returns the project's lightweight session index.
func (m *Manager) Index() (ProjectIndex, error) {
	var index ProjectIndex
	_, err := atomicfile.ReadJSON(m.indexPath(), &index)
	return index, err
}

// PlanContent returns the cataloged plan content for id.
func (m *Manager) PlanContent(id string) (string, bool, error) {
	return m.plans.Content(id)
}

// Extract mines sessionID's transcript into a manifest. force bypasses the
// incremental-skip gate.
func (m *Manager) Extract(sessionID, project, transcriptPath string, force bool) (Result, error) {
	info, err := os.Stat(transcriptPath)
	if err != nil {
		return Result{Error: err.Error()}, nil
	}
	mtime := info.ModTime().UTC()

	var existing Manifest
	hasExisting, err := atomicfile.ReadJSON(m.manifestPath(sessionID), &existing)
	if err != nil {
		return Result{Error: err.Error()}, nil
	}
	if hasExisting && !force && existing.JSONLModifiedAt.Equal(mtime) {
		return Result{Skipped: true}, nil
	}

	entries, _, err := transcript.ParseFile(transcriptPath)
	if err != nil {
		return Result{Error: err.Error()}, nil
	}
	if len(entries) == 0 {
		return Result{Skipped: true}, nil
	}

	manifest, detections, subagentArtifacts, err := m.buildManifest(sessionID, project, transcriptPath, entries, mtime)
	if err != nil {
		return Result{Error: err.Error()}, nil
	}

	webSearchArtifacts, err := extractWebSearches(m.subagentsDir(), entries)
	if err != nil {
		return Result{Error: err.Error()}, nil
	}

	plansExtracted, err := m.resolvePlans(manifest, detections, sessionID)
	if err != nil {
		return Result{Error: err.Error()}, nil
	}

	if err := m.commit(manifest); err != nil {
		return Result{Error: err.Error()}, nil
	}

	return Result{
		Extracted:          true,
		PlansExtracted:     plansExtracted,
		SubagentsExtracted: len(subagentArtifacts) + len(webSearchArtifacts),
	}, nil
}

func (m *Manager) buildManifest(sessionID, project, transcriptPath string, entries []transcript.Entry, mtime time.Time) (*Manifest, []detection, []string, error) {
	stats := transcript.ComputeStats(entries)

	subagentRefs, err := discoverSubagentTranscripts(transcriptPath)
	if err != nil {
		return nil, nil, nil, err
	}

	now := time.Now().UTC()
	var subagentEntries []SubagentEntry
	var subagentArtifacts []string
	var detections []detection
	for _, ref := range subagentRefs {
		extracted, err := extractSubagent(m.subagentsDir(), sessionID, ref, now)
		if err != nil {
			return nil, nil, nil, err
		}
		if extracted == nil {
			continue
		}
		subagentEntries = append(subagentEntries, extracted.Entry)
		subagentArtifacts = append(subagentArtifacts, extracted.Entry.ArtifactPath)
		if extracted.PlanDetected != nil {
			detections = append(detections, *extracted.PlanDetected)
		}
	}

	detections = append(detections, detectEmbeddedPlans(entries)...)
	detections = append(detections, detectWrittenPlans(entries)...)

	filesModified := modifiedFiles(entries)
	mode := ModePlanning
	if len(filesModified) > 0 {
		mode = ModeExecuting
	}

	subagentIDs := make([]string, 0, len(subagentEntries))
	for _, s := range subagentEntries {
		subagentIDs = append(subagentIDs, s.AgentID)
	}

	manifest := &Manifest{
		SessionID:         sessionID,
		Title:             deriveTitle(entries, detections),
		Project:           project,
		StartedAt:         firstTimestamp(entries),
		EndedAt:           stats.LastEntryAt,
		MessageCount:      stats.UserMessageCount + stats.AssistantMessageCount,
		ToolCallCount:     stats.ToolCallCount,
		UserQuestionCount: stats.UserQuestionCount,
		TotalInputTokens:  stats.TotalInputTokens,
		TotalOutputTokens: stats.TotalOutputTokens,
		Technologies:      technologiesFor(filesModified),
		FilesModified:     filesModified,
		Mode:              mode,
		SubagentIDs:       subagentIDs,
		Subagents:         subagentEntries,
		JSONLModifiedAt:   mtime,
	}
	return manifest, detections, subagentArtifacts, nil
}

// resolvePlans catalogs each deduplicated plan-reference group and attaches
// the results to the manifest, returning the count of distinct groups
// resolved.
func (m *Manager) resolvePlans(manifest *Manifest, detections []detection, sessionID string) (int, error) {
	if len(detections) == 0 {
		return 0, nil
	}

	groups := groupAndDedupe(detections)
	var refs []PlanReference
	var planIDs []string

	for _, group := range groups {
		rep := representative(group)
		id, _, err := m.plans.Catalog(rep.Title, rep.Content, sessionID)
		if err != nil {
			return 0, err
		}

		refs = append(refs, PlanReference{
			PlanID:       id,
			Title:        rep.Title,
			Source:       rep.Source,
			Sources:      mergedSources(group),
			MessageIndex: rep.MessageIndex,
			FilePath:     firstNonEmpty(group, func(d detection) string { return d.FilePath }),
			AgentID:      firstNonEmpty(group, func(d detection) string { return d.AgentID }),
			CatalogID:    id,
		})
		planIDs = append(planIDs, id)
	}

	manifest.Plans = refs
	manifest.PlanIDs = planIDs
	return len(refs), nil
}

func (m *Manager) commit(manifest *Manifest) error {
	if err := atomicfile.WriteJSON(m.manifestPath(manifest.SessionID), manifest); err != nil {
		return err
	}
	return m.updateIndex(manifest)
}

func (m *Manager) updateIndex(manifest *Manifest) error {
	var index ProjectIndex
	if _, err := atomicfile.ReadJSON(m.indexPath(), &index); err != nil {
		return err
	}

	entry := IndexEntry{
		SessionID: manifest.SessionID,
		Title:     manifest.Title,
		Mode:      manifest.Mode,
		StartedAt: manifest.StartedAt,
		EndedAt:   manifest.EndedAt,
	}

	replaced := false
	for i, e := range index.Sessions {
		if e.SessionID == manifest.SessionID {
			index.Sessions[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		index.Sessions = append(index.Sessions, entry)
	}
	sort.Slice(index.Sessions, func(i, j int) bool { return index.Sessions[i].StartedAt.After(index.Sessions[j].StartedAt) })

	return atomicfile.WriteJSON(m.indexPath(), index)
}

func firstTimestamp(entries []transcript.Entry) time.Time {
	for _, e := range entries {
		if !e.Timestamp.IsZero() {
			return e.Timestamp
		}
	}
	return time.Time{}
}

func modifiedFiles(entries []transcript.Entry) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		if e.Type != transcript.EntryToolCall || e.FilePath == "" {
			continue
		}
		if !seen[e.FilePath] {
			seen[e.FilePath] = true
			out = append(out, e.FilePath)
		}
	}
	sort.Strings(out)
	return out
}

var extensionTechnology = map[string]string{
	".go":   "Go",
	".ts":   "TypeScript",
	".tsx":  "TypeScript",
	".js":   "JavaScript",
	".jsx":  "JavaScript",
	".py":   "Python",
	".rs":   "Rust",
	".rb":   "Ruby",
	".java": "Java",
	".sql":  "SQL",
	".sh":   "Shell",
	".yml":  "YAML",
	".yaml": "YAML",
	".css":  "CSS",
	".html": "HTML",
}

func technologiesFor(files []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range files {
		tech, ok := extensionTechnology[strings.ToLower(filepath.Ext(f))]
		if !ok || seen[tech] {
			continue
		}
		seen[tech] = true
		out = append(out, tech)
	}
	sort.Strings(out)
	return out
}

var titleTriggerStrip = regexp.MustCompile(`(?i)^(implement the following plan|here is the plan|follow this plan)[:.\s]*`)

// deriveTitle heuristically picks a session title from the earliest
// substantial user message, or an embedded plan's heading if one was
// detected earlier in the conversation.
func deriveTitle(entries []transcript.Entry, detections []detection) string {
	for _, d := range detections {
		if d.Source == "embedded" {
			return d.Title
		}
	}
	for _, e := range entries {
		if e.Type != transcript.EntryUserMessage || e.IsSynthetic {
			continue
		}
		text := strings.TrimSpace(titleTriggerStrip.ReplaceAllString(e.Text, ""))
		if text == "" {
			continue
		}
		if len(text) > 80 {
			text = text[:80]
		}
		return text
	}
	return "Untitled session"
}

func writeFile(path string, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	return atomicfile.Write(path, []byte(content))
}
