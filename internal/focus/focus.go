// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package focus implements the focus watcher and terminal activator: a
// periodic poll that maps the OS-level foreground terminal window back to
// a registered session, and the reverse direction — bringing a session's
// terminal window to the foreground on request.
package focus

import (
	"log"
	"sync"
	"time"

	"github.com/wingedpig/jacquesd/internal/registry"
)

// DefaultInterval is the default foreground poll period.
const DefaultInterval = 1000 * time.Millisecond

// Prober reports the terminal_key candidate for whatever window currently
// has OS-level foreground focus. Implementations are platform-specific;
// ok is false when no candidate could be determined this tick.
type Prober interface {
	Candidate() (terminalKey string, ok bool)
}

// Watcher polls a Prober on a fixed interval and moves registry focus to
// match, broadcasting the change through onFocusChanged.
type Watcher struct {
	reg      *registry.Registry
	prober   Prober
	interval time.Duration
	onChange func(sessionID string)
	logger   *log.Logger

	mu   sync.Mutex
	done chan struct{}
	wg   sync.WaitGroup
}

// New builds a Watcher. onChange is called (off the poll goroutine's
// critical section) whenever the poll moves focus to a different session,
// so the caller can force_broadcast_focus_change.
func New(reg *registry.Registry, prober Prober, interval time.Duration, onChange func(sessionID string), logger *log.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{reg: reg, prober: prober, interval: interval, onChange: onChange, logger: logger}
}

// Start begins polling in a background goroutine. Calling Start twice
// without an intervening Stop is a no-op.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return
	}
	w.done = make(chan struct{})
	w.wg.Add(1)
	go w.loop(w.done)
}

// Stop cancels the poll loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	done := w.done
	w.done = nil
	w.mu.Unlock()
	if done == nil {
		return
	}
	close(done)
	w.wg.Wait()
}

func (w *Watcher) loop(done chan struct{}) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick()
		case <-done:
			return
		}
	}
}

func (w *Watcher) tick() {
	key, ok := w.prober.Candidate()
	if !ok || key == "" {
		return
	}
	sessionID, found := w.reg.FindByTerminalKey(key)
	if !found {
		return
	}
	if w.reg.SetFocus(sessionID) && w.onChange != nil {
		w.onChange(sessionID)
	}
}
