// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package daemon is the composition root: it wires the registry, the event
// pipeline, the broadcast hub, every transport endpoint, the process
// scanner, the focus watcher, and the transcript/catalog subsystems into
// one explicit value with no package-level globals.
package daemon

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wingedpig/jacquesd/internal/broadcast"
	"github.com/wingedpig/jacquesd/internal/catalog"
	"github.com/wingedpig/jacquesd/internal/config"
	"github.com/wingedpig/jacquesd/internal/dispatch"
	"github.com/wingedpig/jacquesd/internal/focus"
	"github.com/wingedpig/jacquesd/internal/pidfile"
	"github.com/wingedpig/jacquesd/internal/procscan"
	"github.com/wingedpig/jacquesd/internal/registry"
	"github.com/wingedpig/jacquesd/internal/settingsfile"
	"github.com/wingedpig/jacquesd/internal/transcript"
	"github.com/wingedpig/jacquesd/internal/transport/httpapi"
	"github.com/wingedpig/jacquesd/internal/transport/ingress"
	"github.com/wingedpig/jacquesd/internal/transport/ws"
)

// transcriptDebounce is how long the transcript watcher waits for writes to
// settle before re-parsing.
const transcriptDebounce = 300 * time.Millisecond

// Options configures a Daemon at construction time. SettingsPath defaults
// to "~/.claude/settings.json" when empty.
type Options struct {
	Config       *config.Config
	SettingsPath string
	Logger       *log.Logger
}

// Daemon owns every long-lived component and is, itself, dispatch.Sink,
// transcript.Sink, and broadcast.InboundHandler: the single place that
// knows how an ingress event, a transcript re-parse, or a websocket
// command ripples through the rest of the system.
type Daemon struct {
	cfg    *config.Config
	logger *log.Logger

	registry    *registry.Registry
	dispatcher  *dispatch.Dispatcher
	hub         *broadcast.Hub
	catalogs    *catalog.ManagerCache
	activator   *focus.Activator
	focusWatch  *focus.Watcher
	transcripts *transcript.Watcher
	scanner     *procscan.Scanner

	settingsPath string

	ingressListener net.Listener
	ingressSrv      *ingress.Server
	wsHandler       *ws.Handler
	wsSrv           *http.Server
	httpSrv         *httpapi.Server

	pidFile *pidfile.PIDFile

	done     chan struct{}
	stopOnce sync.Once
}

// New wires every component from cfg but starts nothing; call Run (or
// Start) to bring the daemon up.
func New(opts Options) (*Daemon, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("daemon: nil config")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	settingsPath := opts.SettingsPath
	if settingsPath == "" {
		settingsPath = defaultSettingsPath()
	}

	d := &Daemon{
		cfg:          cfg,
		logger:       logger,
		registry:     registry.New(),
		hub:          broadcast.NewHub(logger),
		catalogs:     catalog.NewManagerCache(cfg.Catalog.DirName, cfg.PlanDedup.JaccardThreshold),
		activator:    focus.NewActivator(),
		scanner:      procscan.New(assistantPatterns(cfg)),
		settingsPath: settingsPath,
		pidFile:      pidfile.New(config.DefaultPIDPath()),
		done:         make(chan struct{}),
	}

	d.dispatcher = dispatch.New(d.registry, d, logger)

	tw, err := transcript.New(d, transcriptDebounce, logger)
	if err != nil {
		return nil, fmt.Errorf("daemon: create transcript watcher: %w", err)
	}
	d.transcripts = tw

	d.focusWatch = focus.New(d.registry, focus.NewAppleScriptProber(), time.Duration(cfg.Focus.PollIntervalMS)*time.Millisecond, d.onFocusChanged, logger)

	d.wsHandler = ws.NewHandler(d.hub, d.registry, d, logger)
	d.wsSrv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Websocket.Host, cfg.Websocket.Port),
		Handler: d.wsHandler,
	}

	d.httpSrv = httpapi.NewServer(cfg.HTTP.Host, cfg.HTTP.Port, httpapi.Dependencies{
		Registry:           d.registry,
		Hub:                d.hub,
		Activator:          d.activator,
		CatalogDirName:     cfg.Catalog.DirName,
		PlanDedupThreshold: cfg.PlanDedup.JaccardThreshold,
		SettingsPath:       settingsPath,
		Logger:             logger,
	})

	return d, nil
}

// assistantPatterns flattens the config's match/source pairs into the
// plain substring list procscan.New expects.
func assistantPatterns(cfg *config.Config) []string {
	patterns := make([]string, 0, len(cfg.Assistants.Patterns))
	for _, p := range cfg.Assistants.Patterns {
		patterns = append(patterns, p.Match)
	}
	return patterns
}

func defaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".claude", "settings.json")
	}
	return filepath.Join(home, ".claude", "settings.json")
}

// Start acquires the PID file, binds the ingress socket, runs the startup
// process scan, and launches the stale-session sweeper and focus watcher.
// The websocket and HTTP listeners bind later, inside Run; their errors and
// ingress Serve errors surface through the errgroup Run assembles.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.pidFile.Acquire(); err != nil {
		return fmt.Errorf("daemon: %w", err)
	}

	listener, err := ingress.Listen(d.cfg.Ingress.SocketPath)
	if err != nil {
		d.pidFile.Remove()
		return err
	}
	d.ingressListener = listener
	d.ingressSrv = ingress.NewServer(listener, d.dispatcher, d.logger)

	procscan.Reconcile(d.scanner, d.registry, d.logger)

	d.registry.StartCleanup(time.Minute, time.Duration(d.cfg.Registry.MaxIdleMinutes)*time.Minute, func(id, newFocus string) {
		d.hub.SessionRemoved(id, newFocus)
	})

	d.focusWatch.Start()

	return nil
}

// Run starts the daemon and blocks until ctx is canceled or any listener
// reports an unrecoverable error, then shuts everything down in order.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.ingressSrv.Serve(gctx) })
	g.Go(func() error { return d.httpSrv.ListenAndServe() })
	g.Go(func() error { return d.wsSrv.ListenAndServe() })

	listenerFailed := false
	select {
	case <-gctx.Done():
		listenerFailed = ctx.Err() == nil
	case <-d.done:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.Shutdown(shutdownCtx); err != nil {
		d.logger.Printf("daemon: shutdown error: %v", err)
	}

	// Serve/ListenAndServe both return non-nil once their listener is
	// closed by Shutdown; that is expected teardown, not a failure. Only a
	// listener that failed on its own makes Run return its error.
	err := g.Wait()
	if listenerFailed {
		return err
	}
	return nil
}

// Shutdown tears subsystems down in the reverse order they were started:
// stop accepting new ingress connections and HTTP requests first, then the
// passive watchers, then release the PID file last so a concurrent startup
// attempt never races a listener that is still being torn down.
func (d *Daemon) Shutdown(ctx context.Context) error {
	d.Stop()

	if d.ingressSrv != nil {
		d.ingressSrv.Close()
	}
	if d.wsSrv != nil {
		d.wsSrv.Shutdown(ctx)
	}
	if d.httpSrv != nil {
		d.httpSrv.Shutdown(ctx)
	}

	d.focusWatch.Stop()
	d.registry.StopCleanup()
	if err := d.transcripts.Close(); err != nil {
		d.logger.Printf("daemon: transcript watcher close: %v", err)
	}

	return d.pidFile.Remove()
}

// Stop requests Run to return; idempotent.
func (d *Daemon) Stop() {
	d.stopOnce.Do(func() { close(d.done) })
}

// WSHandler exposes the websocket handler for tests to drive with
// httptest without binding a real listener.
func (d *Daemon) WSHandler() http.Handler { return d.wsHandler }

// HTTPHandler exposes the HTTP query API's router for the same reason.
func (d *Daemon) HTTPHandler() http.Handler { return d.httpSrv.Router() }

// onFocusChanged reuses Hub.SessionUpdated to announce a pure focus move,
// which sends a full session_update alongside the focus_changed message
// rather than focus_changed alone. Slightly more than strictly necessary
// on the wire, but it avoids a second, narrower broadcast path that would
// exist only to serve this one caller.
func (d *Daemon) onFocusChanged(sessionID string) {
	session, _ := d.registry.Get(sessionID)
	d.hub.SessionUpdated(session, sessionID)
}

// SessionUpdated implements dispatch.Sink.
func (d *Daemon) SessionUpdated(session *registry.Session, focusedID string) {
	d.hub.SessionUpdated(session, focusedID)
	if session != nil && session.TranscriptPath != "" {
		if err := d.transcripts.Arm(session.ID, session.TranscriptPath); err != nil {
			d.logger.Printf("daemon: arm transcript watcher for %s: %v", session.ID, err)
		}
	}
}

// SessionRemoved implements dispatch.Sink.
func (d *Daemon) SessionRemoved(sessionID string, focusedID string) {
	d.hub.SessionRemoved(sessionID, focusedID)
	d.transcripts.Disarm(sessionID)
}

// TranscriptUpdated implements transcript.Sink: it folds the re-parsed
// statistics into the registry and, if anything actually changed, re-
// broadcasts the session so clients see updated token counts without
// waiting on the next hook event.
func (d *Daemon) TranscriptUpdated(sessionID string, stats transcript.Stats, entries []transcript.Entry) {
	changed := d.registry.UpdateTranscriptStats(sessionID, stats.TotalInputTokens, stats.TotalOutputTokens)
	if !changed {
		return
	}
	session, ok := d.registry.Get(sessionID)
	if !ok {
		return
	}
	d.hub.SessionUpdated(session, d.registry.Focused())
}

// HandoffReady implements transcript.Sink: a handoff file appeared next to
// the transcript, so the session's catalog is extracted immediately rather
// than waiting on the next on-demand trigger, and clients are told.
func (d *Daemon) HandoffReady(sessionID, path string) {
	session, ok := d.registry.Get(sessionID)
	if !ok {
		d.logger.Printf("daemon: handoff ready for unknown session %q", sessionID)
		return
	}
	if session.TranscriptPath != "" {
		if manager, err := d.catalogs.Get(session.CWD); err == nil {
			if _, err := manager.Extract(session.ID, session.Project, session.TranscriptPath, false); err != nil {
				d.logger.Printf("daemon: extract on handoff ready for %s: %v", sessionID, err)
			}
		}
	}
	d.hub.PublishHandoffReady(sessionID, path)
}

// SelectSession implements broadcast.InboundHandler.
func (d *Daemon) SelectSession(sessionID string) {
	if !d.registry.SetFocus(sessionID) {
		return
	}
	session, _ := d.registry.Get(sessionID)
	d.hub.SessionUpdated(session, sessionID)
}

// ToggleAutocompact implements broadcast.InboundHandler.
func (d *Daemon) ToggleAutocompact(enabled bool) {
	if err := settingsfile.ToggleAutocompact(d.settingsPath, enabled); err != nil {
		d.logger.Printf("daemon: toggle autocompact: %v", err)
		return
	}
	d.hub.PublishAutocompactToggled(enabled, "")
}

// FocusTerminal implements broadcast.InboundHandler.
func (d *Daemon) FocusTerminal(sessionID string) {
	session, ok := d.registry.Get(sessionID)
	if !ok {
		d.hub.PublishFocusTerminalResult(sessionID, false, "", "unknown session")
		return
	}
	result := d.activator.Activate(context.Background(), session.TerminalKey)
	d.hub.PublishFocusTerminalResult(sessionID, result.Success, result.Method, result.Error)
}

// GetHandoffContext implements broadcast.InboundHandler: it synthesizes a
// textual handoff context from the session's cataloged manifest, extracting
// on demand if nothing has been cataloged yet.
func (d *Daemon) GetHandoffContext(sessionID string) {
	session, ok := d.registry.Get(sessionID)
	if !ok {
		d.hub.PublishHandoffContextError(sessionID, "unknown session")
		return
	}
	if session.CWD == "" {
		d.hub.PublishHandoffContextError(sessionID, "session has no known project directory")
		return
	}

	manager, err := d.catalogs.Get(session.CWD)
	if err != nil {
		d.hub.PublishHandoffContextError(sessionID, err.Error())
		return
	}

	manifest, found, err := manager.Manifest(sessionID)
	if err != nil {
		d.hub.PublishHandoffContextError(sessionID, err.Error())
		return
	}
	if !found {
		if session.TranscriptPath == "" {
			d.hub.PublishHandoffContextError(sessionID, "no transcript to extract yet")
			return
		}
		if _, err := manager.Extract(sessionID, session.Project, session.TranscriptPath, false); err != nil {
			d.hub.PublishHandoffContextError(sessionID, err.Error())
			return
		}
		manifest, found, err = manager.Manifest(sessionID)
		if err != nil || !found {
			d.hub.PublishHandoffContextError(sessionID, "no catalog available for session")
			return
		}
	}

	contextText, tokenEstimate, data := handoffContextFrom(manifest)
	d.hub.PublishHandoffContext(sessionID, contextText, tokenEstimate, data)
}
