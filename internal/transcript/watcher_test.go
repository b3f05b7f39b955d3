// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu       sync.Mutex
	updates  []Stats
	handoffs []string
}

func (s *recordingSink) TranscriptUpdated(sessionID string, stats Stats, entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, stats)
}

func (s *recordingSink) HandoffReady(sessionID, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handoffs = append(s.handoffs, path)
}

func (s *recordingSink) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

func (s *recordingSink) handoffCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handoffs)
}

func writeLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	require.NoError(t, err)
}

func TestWatcher_ArmSeedsInitialStats(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")
	writeLine(t, path, `{"type":"user","timestamp":"2026-07-01T10:00:00Z","message":{"role":"user","content":"hi"}}`)

	sink := &recordingSink{}
	w, err := New(sink, 20*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Arm("sess-1", path))
	require.Equal(t, 1, sink.updateCount())
}

func TestWatcher_AppendTriggersDebouncedReparse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")
	writeLine(t, path, `{"type":"user","timestamp":"2026-07-01T10:00:00Z","message":{"role":"user","content":"hi"}}`)

	sink := &recordingSink{}
	w, err := New(sink, 20*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Arm("sess-1", path))
	require.Equal(t, 1, sink.updateCount())

	writeLine(t, path, `{"type":"assistant","timestamp":"2026-07-01T10:00:01Z","message":{"role":"assistant","content":[{"type":"text","text":"hello"}]}}`)

	require.Eventually(t, func() bool {
		return sink.updateCount() >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestWatcher_DetectsAdjacentHandoffFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")
	writeLine(t, path, `{"type":"user","timestamp":"2026-07-01T10:00:00Z","message":{"role":"user","content":"hi"}}`)

	sink := &recordingSink{}
	w, err := New(sink, 20*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Arm("sess-1", path))
	require.Equal(t, 0, sink.handoffCount())

	handoffPath := filepath.Join(dir, "session.handoff.json")
	require.NoError(t, os.WriteFile(handoffPath, []byte(`{"ready":true}`), 0o644))

	writeLine(t, path, `{"type":"summary","summary":"done"}`)

	require.Eventually(t, func() bool {
		return sink.handoffCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWatcher_DisarmStopsFurtherUpdates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")
	writeLine(t, path, `{"type":"user","timestamp":"2026-07-01T10:00:00Z","message":{"role":"user","content":"hi"}}`)

	sink := &recordingSink{}
	w, err := New(sink, 20*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Arm("sess-1", path))
	w.Disarm("sess-1")

	before := sink.updateCount()
	writeLine(t, path, `{"type":"summary","summary":"done"}`)

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, before, sink.updateCount())
}
