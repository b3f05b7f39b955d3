// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"encoding/json"
	"log"

	"github.com/wingedpig/jacquesd/internal/registry"
)

// Sink receives the effect of a successfully applied event: the mutated (or
// removed) session plus the registry's focus id immediately after the
// mutation. A Dispatcher never holds a broadcast reference directly — it
// only ever talks to this capability interface, breaking the cycle between
// the event pipeline and the broadcast service.
type Sink interface {
	SessionUpdated(session *registry.Session, focusedID string)
	SessionRemoved(sessionID string, focusedID string)
}

// Dispatcher applies ingress events to a Registry, in the order they are
// handed to Dispatch. Callers (the ingress transport) are responsible for
// funneling every connection's decode loop through the same Dispatcher so
// that, per session id, registry mutations happen in arrival order.
type Dispatcher struct {
	registry *registry.Registry
	sink     Sink
	logger   *log.Logger
}

// New creates a Dispatcher. logger may be nil, in which case log.Default is used.
func New(reg *registry.Registry, sink Sink, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{registry: reg, sink: sink, logger: logger}
}

// Dispatch decodes one ingress line and applies it. A malformed line or an
// event referencing an unknown session for activity/idle is logged and
// dropped; it never returns an error that would justify tearing down the
// connection.
func (d *Dispatcher) Dispatch(line []byte) {
	env, err := peekEnvelope(line)
	if err != nil {
		d.logger.Printf("dispatch: dropping malformed event: %v", err)
		return
	}

	switch env.Event {
	case "session_start":
		d.handleSessionStart(line)
	case "activity":
		d.handleActivity(line)
	case "context_update":
		d.handleContextUpdate(line)
	case "idle":
		d.handleIdle(line)
	case "session_end":
		d.handleSessionEnd(line)
	default:
		d.logger.Printf("dispatch: ignoring unrecognized event %q for session %q", env.Event, env.SessionID)
	}
}

func (d *Dispatcher) handleSessionStart(line []byte) {
	var w sessionStartWire
	if err := json.Unmarshal(line, &w); err != nil {
		d.logger.Printf("dispatch: malformed session_start: %v", err)
		return
	}

	ident := registry.TerminalIdentity{
		TTY:            w.Terminal.TTY,
		TermProgram:    w.Terminal.TermProgram,
		ITermSessionID: w.Terminal.ITermSessionID,
		TermSessionID:  w.Terminal.TermSessionID,
		KittyWindowID:  w.Terminal.KittyWindowID,
		WeztermPane:    w.Terminal.WeztermPane,
		TerminalPID:    w.Terminal.TerminalPID,
	}

	session := d.registry.RegisterSession(registry.RegisterInput{
		SessionID:        w.SessionID,
		Timestamp:        w.Timestamp,
		Title:            w.SessionTitle,
		TranscriptPath:   w.TranscriptPath,
		CWD:              w.CWD,
		Project:          w.Project,
		HookSource:       w.Source,
		TerminalIdentity: ident,
		TerminalKey:      w.TerminalKey,
		Autocompact:      toRegistryAutocompact(w.Autocompact),
		Git:              toRegistryGit(w.GitBranch, w.GitWorktree, w.GitRepoRoot),
	})
	d.notify(session)
}

func (d *Dispatcher) handleActivity(line []byte) {
	var w activityWire
	if err := json.Unmarshal(line, &w); err != nil {
		d.logger.Printf("dispatch: malformed activity: %v", err)
		return
	}

	session := d.registry.UpdateActivity(registry.ActivityInput{
		SessionID:      w.SessionID,
		Timestamp:      w.Timestamp,
		Title:          w.SessionTitle,
		ToolName:       w.ToolName,
		ContextMetrics: toRegistryMetrics(w.ContextMetrics),
	})
	if session == nil {
		d.logger.Printf("dispatch: activity for unknown session %q dropped", w.SessionID)
		return
	}
	d.notify(session)
}

func (d *Dispatcher) handleContextUpdate(line []byte) {
	var w contextUpdateWire
	if err := json.Unmarshal(line, &w); err != nil {
		d.logger.Printf("dispatch: malformed context_update: %v", err)
		return
	}

	var model *registry.Model
	if w.Model != "" || w.ModelDisplayName != "" {
		model = &registry.Model{ID: w.Model, DisplayName: w.ModelDisplayName}
	}

	session := d.registry.UpdateContext(registry.ContextUpdateInput{
		SessionID:      w.SessionID,
		Timestamp:      w.Timestamp,
		Title:          w.SessionTitle,
		TranscriptPath: w.TranscriptPath,
		CWD:            w.CWD,
		ProjectDir:     w.ProjectDir,
		Metrics: registry.ContextMetrics{
			UsedPercentage:      w.UsedPercentage,
			RemainingPercentage: w.RemainingPercentage,
			WindowSize:          w.ContextWindowSize,
			TotalInputTokens:    w.TotalInputTokens,
			TotalOutputTokens:   w.TotalOutputTokens,
			IsEstimate:          w.IsEstimate,
		},
		Model:       model,
		Autocompact: toRegistryAutocompact(w.Autocompact),
		Git:         toRegistryGit(w.GitBranch, w.GitWorktree, w.GitRepoRoot),
		TerminalKey: w.TerminalKey,
	})
	d.notify(session)
}

func (d *Dispatcher) handleIdle(line []byte) {
	var w idleWire
	if err := json.Unmarshal(line, &w); err != nil {
		d.logger.Printf("dispatch: malformed idle: %v", err)
		return
	}

	session := d.registry.SetSessionIdle(w.SessionID)
	if session == nil {
		d.logger.Printf("dispatch: idle for unknown session %q dropped", w.SessionID)
		return
	}
	d.notify(session)
}

func (d *Dispatcher) handleSessionEnd(line []byte) {
	var w idleWire
	if err := json.Unmarshal(line, &w); err != nil {
		d.logger.Printf("dispatch: malformed session_end: %v", err)
		return
	}

	removed, newFocus := d.registry.UnregisterSession(w.SessionID)
	if !removed {
		d.logger.Printf("dispatch: session_end for unknown session %q dropped", w.SessionID)
		return
	}
	if d.sink != nil {
		d.sink.SessionRemoved(w.SessionID, newFocus)
	}
}

func (d *Dispatcher) notify(session *registry.Session) {
	if session == nil || d.sink == nil {
		return
	}
	d.sink.SessionUpdated(session, d.registry.Focused())
}

func toRegistryMetrics(w *wireContextMetrics) *registry.ContextMetrics {
	if w == nil {
		return nil
	}
	return &registry.ContextMetrics{
		UsedPercentage:      w.UsedPercentage,
		RemainingPercentage: w.RemainingPercentage,
		WindowSize:          w.WindowSize,
		TotalInputTokens:    w.TotalInputTokens,
		TotalOutputTokens:   w.TotalOutputTokens,
		IsEstimate:          w.IsEstimate,
	}
}

func toRegistryAutocompact(w *wireAutocompact) *registry.AutocompactStatus {
	if w == nil {
		return nil
	}
	return &registry.AutocompactStatus{
		Enabled:             w.Enabled,
		ThresholdPercent:    w.ThresholdPercent,
		BugThresholdPercent: w.BugThresholdPercent,
	}
}

func toRegistryGit(branch, worktree, repoRoot string) *registry.Git {
	if branch == "" && worktree == "" && repoRoot == "" {
		return nil
	}
	return &registry.Git{Branch: branch, Worktree: worktree, RepoRoot: repoRoot}
}
