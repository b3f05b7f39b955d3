// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// RegisterInput carries the fields of an explicit session-start event.
type RegisterInput struct {
	SessionID        string
	Timestamp        int64
	Title            string
	TranscriptPath   string
	CWD              string
	Project          string
	Source           Source
	HookSource       string
	TerminalIdentity TerminalIdentity
	TerminalKey      string
	Autocompact      *AutocompactStatus
	Git              *Git
}

// DiscoveredInput carries the fields recovered by the startup process
// scanner. Its terminal key is always derived with the DISCOVERED:
// prefix regardless of what the caller passes in TerminalKeyInner.
type DiscoveredInput struct {
	SessionID      string
	Timestamp      int64
	Title          string
	TranscriptPath string
	CWD            string
	Project        string
	Source         Source
	TerminalKeyInner string // e.g. "iTerm2:w0t0p0:UUID", "TTY:/dev/ttys1:54321", "PID:1234"
	ContextMetrics *ContextMetrics
}

// ActivityInput carries the fields of an activity event.
type ActivityInput struct {
	SessionID      string
	Timestamp      int64
	Title          string
	ToolName       string
	ContextMetrics *ContextMetrics
}

// ContextUpdateInput carries the fields of a context-update event.
type ContextUpdateInput struct {
	SessionID      string
	Timestamp      int64
	Title          string
	TranscriptPath string
	CWD            string
	ProjectDir     string
	Metrics        ContextMetrics
	Model          *Model
	Autocompact    *AutocompactStatus
	Git            *Git
	TerminalKey    string // "" if the event did not carry one
}

// Registry holds all live Session records plus the single focused-id slot.
// All public operations are serialized by one coarse mutex; session counts
// are small enough that finer-grained locking buys nothing.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	focused  string // "" means no focus (registry empty)

	stopCh chan struct{}
	stopWG sync.WaitGroup
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// RegisterSession implements register_session: idempotent w.r.t. id,
// upgrades a partial (AUTO:/DISCOVERED:) record in place, or inserts a new
// record and focuses it.
func (r *Registry) RegisterSession(in RegisterInput) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := in.Timestamp
	existing, ok := r.sessions[in.SessionID]
	if !ok {
		source := in.Source
		if source == "" {
			source = normalizeSource(in.HookSource)
		}
		title := in.Title
		if title == "" {
			title = fallbackTitle(in.Project, in.CWD)
		}
		s := &Session{
			ID:               in.SessionID,
			Source:           source,
			HookSource:       in.HookSource,
			Status:           StatusActive,
			Title:            title,
			TranscriptPath:   in.TranscriptPath,
			CWD:              in.CWD,
			Project:          resolveProject(in.Project, in.CWD),
			TerminalIdentity: in.TerminalIdentity,
			TerminalKey:      in.TerminalKey,
			LastActivity:     now,
			RegisteredAt:     now,
			Autocompact:      in.Autocompact,
			Git:              in.Git,
		}
		r.sessions[in.SessionID] = s
		r.focused = in.SessionID
		return s.Clone()
	}

	if IsPartialKey(existing.TerminalKey) {
		existing.TerminalIdentity = in.TerminalIdentity
		existing.TerminalKey = in.TerminalKey
		if existing.Title == "" && in.Title != "" {
			existing.Title = in.Title
		}
		if existing.TranscriptPath == "" && in.TranscriptPath != "" {
			existing.TranscriptPath = in.TranscriptPath
		}
		if existing.Autocompact == nil && in.Autocompact != nil {
			existing.Autocompact = in.Autocompact
		}
		if existing.Git == nil && in.Git != nil {
			existing.Git = in.Git
		}
		if existing.HookSource == "" {
			existing.HookSource = in.HookSource
		}
	}
	advanceActivity(existing, now)
	return existing.Clone()
}

// RegisterDiscoveredSession implements register_discovered_session. No-op
// if the id already exists.
func (r *Registry) RegisterDiscoveredSession(in DiscoveredInput) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[in.SessionID]; exists {
		return nil
	}

	title := in.Title
	if title == "" {
		title = fallbackTitle(in.Project, in.CWD)
	}
	source := in.Source
	if source == "" {
		source = SourceClaudeCode
	}
	s := &Session{
		ID:             in.SessionID,
		Source:         source,
		Status:         StatusActive,
		Title:          title,
		TranscriptPath: in.TranscriptPath,
		CWD:            in.CWD,
		Project:        resolveProject(in.Project, in.CWD),
		TerminalKey:    PrefixDiscovered + ":" + in.TerminalKeyInner,
		LastActivity:   in.Timestamp,
		RegisteredAt:   in.Timestamp,
		ContextMetrics: in.ContextMetrics,
	}
	r.sessions[in.SessionID] = s
	if r.focused == "" {
		r.focused = in.SessionID
	}
	return s.Clone()
}

// UpdateActivity implements update_activity: marks the session working,
// advances activity, focuses it. If the session is unknown the event is
// dropped (callers should have already logged a warning upstream).
func (r *Registry) UpdateActivity(in ActivityInput) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[in.SessionID]
	if !ok {
		return nil
	}
	s.Status = StatusWorking
	if in.Title != "" {
		s.Title = in.Title
	}
	if in.ContextMetrics != nil {
		s.ContextMetrics = in.ContextMetrics
	}
	advanceActivity(s, in.Timestamp)
	r.focused = in.SessionID
	return s.Clone()
}

// UpdateContext implements update_context: merges context metrics,
// auto-registering the session if unknown.
func (r *Registry) UpdateContext(in ContextUpdateInput) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[in.SessionID]
	if !ok {
		title := in.Title
		if title == "" {
			title = fallbackTitle(in.ProjectDir, in.CWD)
		}
		s = &Session{
			ID:             in.SessionID,
			Source:         SourceClaudeCode,
			Status:         StatusActive,
			Title:          title,
			TranscriptPath: in.TranscriptPath,
			CWD:            in.CWD,
			Project:        resolveProject(in.ProjectDir, in.CWD),
			TerminalKey:    PrefixAuto + ":" + in.SessionID,
			LastActivity:   in.Timestamp,
			RegisteredAt:   in.Timestamp,
		}
		r.sessions[in.SessionID] = s
	}

	metrics := in.Metrics
	s.ContextMetrics = &metrics
	if in.Model != nil {
		s.Model = in.Model
	}
	if s.CWD == "" && in.CWD != "" {
		s.CWD = in.CWD
	}
	if in.ProjectDir != "" {
		s.Project = resolveProject(in.ProjectDir, s.CWD)
	}
	if s.TranscriptPath == "" && in.TranscriptPath != "" {
		s.TranscriptPath = in.TranscriptPath
	}
	if in.Autocompact != nil {
		s.Autocompact = in.Autocompact
	}
	if in.Git != nil {
		s.Git = in.Git
	}
	if in.TerminalKey != "" && IsPartialKey(s.TerminalKey) {
		s.TerminalKey = in.TerminalKey
	}

	advanceActivity(s, in.Timestamp)
	r.focused = in.SessionID
	return s.Clone()
}

// UpdateTranscriptStats applies token/tool-call counters recomputed by a
// passive transcript re-parse. Unlike UpdateContext this never moves
// focus and never overwrites the used/remaining percentages or window
// size, since a transcript reparse has no way to know the assistant's
// context-window accounting — those fields only ever come from an explicit
// context_update hook event. Returns false if the session is unknown.
func (r *Registry) UpdateTranscriptStats(sessionID string, totalInputTokens, totalOutputTokens int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	if s.ContextMetrics == nil {
		s.ContextMetrics = &ContextMetrics{IsEstimate: true}
	}
	s.ContextMetrics.TotalInputTokens = totalInputTokens
	s.ContextMetrics.TotalOutputTokens = totalOutputTokens
	return true
}

// SetSessionIdle implements set_session_idle: status only, no focus change.
func (r *Registry) SetSessionIdle(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	s.Status = StatusIdle
	return s.Clone()
}

// UnregisterSession implements unregister_session, shifting focus to the
// most-recently-active survivor, or to "" if none remain.
func (r *Registry) UnregisterSession(id string) (removed bool, newFocus string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return false, r.focused
	}
	delete(r.sessions, id)

	if r.focused == id {
		r.focused = r.mostRecentLocked()
	}
	return true, r.focused
}

// SetFocus implements the focus watcher's half of the focus invariant: it
// moves focus to id if id names a known session and differs from the
// current focus. Returns whether focus actually changed, so callers only
// broadcast focus_changed when something moved.
func (r *Registry) SetFocus(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return false
	}
	if r.focused == id {
		return false
	}
	r.focused = id
	return true
}

func (r *Registry) mostRecentLocked() string {
	var best *Session
	for _, s := range r.sessions {
		if best == nil || s.LastActivity > best.LastActivity {
			best = s
		}
	}
	if best == nil {
		return ""
	}
	return best.ID
}

// FindByTerminalKey implements find_by_terminal_key. For ITERM: keys, also
// matches by UUID suffix so emitter-side keys like "w0t0p0:UUID" match
// registry-side keys "ITERM:UUID" and vice versa.
func (r *Registry) FindByTerminalKey(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, s := range r.sessions {
		if s.TerminalKey == key {
			return id, true
		}
	}

	if suffix := iTermUUIDSuffix(key); suffix != "" {
		for id, s := range r.sessions {
			if iTermUUIDSuffix(s.TerminalKey) == suffix {
				return id, true
			}
		}
	}
	return "", false
}

// iTermUUIDSuffix extracts the UUID after the final colon of an iTerm-style
// key, whether or not it carries the ITERM: prefix (emitter-side keys omit
// it: "w0t0p0:UUID").
func iTermUUIDSuffix(key string) string {
	if key == "" {
		return ""
	}
	idx := strings.LastIndexByte(key, ':')
	if idx < 0 || idx == len(key)-1 {
		return ""
	}
	return key[idx+1:]
}

// Get returns a copy of a session by id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Focused returns the current focus id ("" if none).
func (r *Registry) Focused() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.focused
}

// List returns all sessions in strict descending last_activity order.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity > out[j].LastActivity
	})
	return out
}

// StartCleanup schedules a periodic sweep that unregisters any session
// whose status is idle and whose last_activity is older than maxIdle.
// onRemoved is invoked (outside the registry lock) for each session the
// sweep removes, carrying the new focus id, so callers can broadcast.
func (r *Registry) StartCleanup(interval, maxIdle time.Duration, onRemoved func(id, newFocus string)) {
	r.mu.Lock()
	if r.stopCh != nil {
		r.mu.Unlock()
		return
	}
	r.stopCh = make(chan struct{})
	stopCh := r.stopCh
	r.mu.Unlock()

	r.stopWG.Add(1)
	go func() {
		defer r.stopWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				r.sweep(maxIdle, onRemoved)
			}
		}
	}()
}

func (r *Registry) sweep(maxIdle time.Duration, onRemoved func(id, newFocus string)) {
	cutoff := time.Now().Add(-maxIdle).UnixMilli()

	r.mu.Lock()
	var stale []string
	for id, s := range r.sessions {
		if s.Status == StatusIdle && s.LastActivity < cutoff {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()

	for _, id := range stale {
		removed, newFocus := r.UnregisterSession(id)
		if removed && onRemoved != nil {
			onRemoved(id, newFocus)
		}
	}
}

// StopCleanup cancels the stale-session sweeper, if running.
func (r *Registry) StopCleanup() {
	r.mu.Lock()
	stopCh := r.stopCh
	r.stopCh = nil
	r.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		r.stopWG.Wait()
	}
}

// advanceActivity sets last_activity to the max of its current value and
// ts; last_activity never moves backward.
func advanceActivity(s *Session, ts int64) {
	if ts > s.LastActivity {
		s.LastActivity = ts
	}
}

// normalizeSource maps a raw session-start "source" tag (startup, resume,
// clear, compact) onto the normalized Source enum: anything recognized as
// a Claude Code hook source collapses to claude_code, and the original
// value is preserved separately as HookSource.
func normalizeSource(hookSource string) Source {
	switch hookSource {
	case "cursor":
		return SourceCursor
	default:
		return SourceClaudeCode
	}
}

// resolveProject prefers an explicit project/project_dir value (taking its
// last path component if it looks like a path) and falls back to the last
// path component of cwd.
func resolveProject(project, cwd string) string {
	if project != "" {
		return projectFromCWD(project)
	}
	return projectFromCWD(cwd)
}

// fallbackTitle synthesizes a project-derived placeholder title, used until
// a better title is observed from the assistant.
func fallbackTitle(project, cwd string) string {
	p := resolveProject(project, cwd)
	if p == "" {
		return "Untitled session"
	}
	return p
}
