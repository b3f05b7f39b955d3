// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wingedpig/jacquesd/internal/watcher"
)

// handoffSuffix names the sibling artifact a transcript watcher looks for
// next to an armed transcript: "<session>.jsonl" pairs with
// "<session>.handoff.json".
const handoffSuffix = ".handoff.json"

// Sink receives the effect of a transcript re-parse.
type Sink interface {
	TranscriptUpdated(sessionID string, stats Stats, entries []Entry)
	HandoffReady(sessionID, path string)
}

// Watcher arms one fsnotify watch per transcript path the first time a
// session's transcript_path becomes known, debounces rapid writes, and
// re-parses + recomputes statistics on each settled tick. Watches are
// ref-counted since more than one session id can share a transcript path.
type Watcher struct {
	mu           sync.Mutex
	fsWatcher    *fsnotify.Watcher
	debouncer    *watcher.Debouncer
	sink         Sink
	logger       *log.Logger
	sessionPath  map[string]string              // session id -> armed transcript path
	pathSessions map[string]map[string]struct{} // path -> session ids watching it
	pathRefs     map[string]int
	handoffSeen  map[string]struct{} // paths already reported handoff_ready for
	closed       bool
	closeCh      chan struct{}
	wg           sync.WaitGroup
}

// New creates a Watcher. logger may be nil.
func New(sink Sink, debounce time.Duration, logger *log.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	w := &Watcher{
		fsWatcher:    fsw,
		debouncer:    watcher.NewDebouncer(debounce),
		sink:         sink,
		logger:       logger,
		sessionPath:  make(map[string]string),
		pathSessions: make(map[string]map[string]struct{}),
		pathRefs:     make(map[string]int),
		handoffSeen:  make(map[string]struct{}),
		closeCh:      make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Arm starts watching transcriptPath for sessionID, re-arming (and
// unwatching the old path) if the session was previously armed for a
// different path. An immediate synchronous tick seeds the session's initial
// statistics.
func (w *Watcher) Arm(sessionID, transcriptPath string) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	if old, ok := w.sessionPath[sessionID]; ok {
		if old == transcriptPath {
			w.mu.Unlock()
			return nil
		}
		w.unwatchLocked(sessionID, old)
	}
	w.sessionPath[sessionID] = transcriptPath
	w.watchLocked(sessionID, transcriptPath)
	w.mu.Unlock()

	w.tick(sessionID, transcriptPath)
	return nil
}

// Disarm stops watching the session's transcript.
func (w *Watcher) Disarm(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	path, ok := w.sessionPath[sessionID]
	if !ok {
		return
	}
	w.unwatchLocked(sessionID, path)
	delete(w.sessionPath, sessionID)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.debouncer.Stop()
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) watchLocked(sessionID, path string) {
	sessions, ok := w.pathSessions[path]
	if !ok {
		sessions = make(map[string]struct{})
		w.pathSessions[path] = sessions
	}
	sessions[sessionID] = struct{}{}

	w.pathRefs[path]++
	if w.pathRefs[path] == 1 {
		if err := w.fsWatcher.Add(path); err != nil {
			w.logger.Printf("transcript: watching %s: %v", path, err)
		}
	}
}

func (w *Watcher) unwatchLocked(sessionID, path string) {
	if sessions, ok := w.pathSessions[path]; ok {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(w.pathSessions, path)
		}
	}
	w.pathRefs[path]--
	if w.pathRefs[path] <= 0 {
		delete(w.pathRefs, path)
		w.fsWatcher.Remove(path)
		w.debouncer.Cancel(path)
	}
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeCh:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.debouncer.Debounce(event.Name, func() { w.tickAllSessions(event.Name) })
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("transcript: watch error: %v", err)
		}
	}
}

func (w *Watcher) tickAllSessions(path string) {
	w.mu.Lock()
	sessionIDs := make([]string, 0, 1)
	for id := range w.pathSessions[path] {
		sessionIDs = append(sessionIDs, id)
	}
	w.mu.Unlock()

	for _, id := range sessionIDs {
		w.tick(id, path)
	}
}

func (w *Watcher) tick(sessionID, path string) {
	entries, _, err := ParseFile(path)
	if err != nil {
		w.logger.Printf("transcript: re-parse of %s failed: %v", path, err)
		return
	}

	stats := ComputeStats(entries)
	if w.sink != nil {
		w.sink.TranscriptUpdated(sessionID, stats, entries)
	}

	w.checkHandoff(sessionID, path)
}

func (w *Watcher) checkHandoff(sessionID, transcriptPath string) {
	handoffPath := strings.TrimSuffix(transcriptPath, ".jsonl") + handoffSuffix
	if _, err := os.Stat(handoffPath); err != nil {
		return
	}

	w.mu.Lock()
	_, seen := w.handoffSeen[handoffPath]
	if !seen {
		w.handoffSeen[handoffPath] = struct{}{}
	}
	w.mu.Unlock()

	if !seen && w.sink != nil {
		w.sink.HandoffReady(sessionID, handoffPath)
	}
}
