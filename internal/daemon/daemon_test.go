// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/jacquesd/internal/config"
	"github.com/wingedpig/jacquesd/internal/registry"
	"github.com/wingedpig/jacquesd/internal/transcript"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func transcriptStatsFixture() transcript.Stats {
	return transcript.Stats{TotalInputTokens: 100, TotalOutputTokens: 50}
}

func discardLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Ingress:    config.IngressConfig{SocketPath: filepath.Join(t.TempDir(), "jacques.sock")},
		Websocket:  config.WebsocketConfig{Host: "127.0.0.1", Port: 0},
		HTTP:       config.HTTPConfig{Host: "127.0.0.1", Port: 0},
		Registry:   config.RegistryConfig{MaxIdleMinutes: 60},
		Focus:      config.FocusConfig{PollIntervalMS: 1000},
		Catalog:    config.CatalogConfig{DirName: ".jacques"},
		PlanDedup:  config.PlanDedupConfig{JaccardThreshold: 0.9},
		Assistants: config.AssistantsConfig{Patterns: []config.AssistantPattern{{Match: "claude", Source: "claude_code"}}},
	}
}

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	d, err := New(Options{
		Config:       testConfig(t),
		SettingsPath: filepath.Join(t.TempDir(), "settings.json"),
		Logger:       discardLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { d.transcripts.Close() })
	return d
}

func dialDaemon(t *testing.T, d *Daemon) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(d.WSHandler())
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	var initial map[string]any
	require.NoError(t, conn.ReadJSON(&initial))

	return conn, func() { conn.Close(); srv.Close() }
}

func TestDaemon_AssistantPatternsFlattensConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Assistants.Patterns = []config.AssistantPattern{
		{Match: "claude", Source: "claude_code"},
		{Match: "cursor-agent", Source: "cursor"},
	}
	assert.Equal(t, []string{"claude", "cursor-agent"}, assistantPatterns(cfg))
}

func TestDaemon_SessionUpdatedWithTranscriptPathBroadcastsSessionUpdate(t *testing.T) {
	d := newTestDaemon(t)
	conn, cleanup := dialDaemon(t, d)
	defer cleanup()

	transcriptPath := filepath.Join(t.TempDir(), "s1.jsonl")
	require.NoError(t, writeFile(transcriptPath, "{}\n"))

	session := &registry.Session{ID: "s1", Status: registry.StatusActive, TranscriptPath: transcriptPath}
	d.SessionUpdated(session, "s1")

	var update map[string]any
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, "session_update", update["type"])
}

func TestDaemon_SessionRemovedBroadcastsSessionRemoved(t *testing.T) {
	d := newTestDaemon(t)
	conn, cleanup := dialDaemon(t, d)
	defer cleanup()

	d.SessionRemoved("s1", "")

	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "session_removed", msg["type"])
	assert.Equal(t, "s1", msg["session_id"])
}

func TestDaemon_SelectSessionMovesFocusAndBroadcasts(t *testing.T) {
	d := newTestDaemon(t)
	d.registry.RegisterSession(registry.RegisterInput{SessionID: "s1", Timestamp: 1})
	conn, cleanup := dialDaemon(t, d)
	defer cleanup()

	d.SelectSession("s1")

	var update map[string]any
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, "session_update", update["type"])

	assert.Equal(t, "s1", d.registry.Focused())
}

func TestDaemon_SelectSessionUnknownIDIsANoop(t *testing.T) {
	d := newTestDaemon(t)
	d.SelectSession("does-not-exist")
	assert.Equal(t, "", d.registry.Focused())
}

func TestDaemon_ToggleAutocompactWritesSettingsAndBroadcasts(t *testing.T) {
	d := newTestDaemon(t)
	conn, cleanup := dialDaemon(t, d)
	defer cleanup()

	d.ToggleAutocompact(true)

	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "autocompact_toggled", msg["type"])
	assert.Equal(t, true, msg["enabled"])

	data, err := os.ReadFile(d.settingsPath)
	require.NoError(t, err)
	var settings map[string]any
	require.NoError(t, json.Unmarshal(data, &settings))
	assert.Equal(t, true, settings["autocompactEnabled"])
}

func TestDaemon_FocusTerminalUnknownSessionReportsFailure(t *testing.T) {
	d := newTestDaemon(t)
	conn, cleanup := dialDaemon(t, d)
	defer cleanup()

	d.FocusTerminal("does-not-exist")

	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "focus_terminal_result", msg["type"])
	assert.Equal(t, false, msg["success"])
}

func TestDaemon_GetHandoffContextUnknownSessionReportsError(t *testing.T) {
	d := newTestDaemon(t)
	conn, cleanup := dialDaemon(t, d)
	defer cleanup()

	d.GetHandoffContext("does-not-exist")

	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "handoff_context_error", msg["type"])
}

func TestDaemon_GetHandoffContextNoTranscriptReportsError(t *testing.T) {
	d := newTestDaemon(t)
	d.registry.RegisterSession(registry.RegisterInput{SessionID: "s1", Timestamp: 1, CWD: t.TempDir()})
	conn, cleanup := dialDaemon(t, d)
	defer cleanup()

	d.GetHandoffContext("s1")

	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "handoff_context_error", msg["type"])
}

func TestDaemon_TranscriptUpdatedIgnoresUnknownSession(t *testing.T) {
	d := newTestDaemon(t)
	conn, cleanup := dialDaemon(t, d)
	defer cleanup()

	d.TranscriptUpdated("does-not-exist", transcriptStatsFixture(), nil)

	conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	var msg map[string]any
	err := conn.ReadJSON(&msg)
	assert.Error(t, err, "no broadcast expected for an unknown session")
}

func TestDaemon_WSHandlerAndHTTPHandlerAreNonNil(t *testing.T) {
	d := newTestDaemon(t)
	assert.NotNil(t, d.WSHandler())
	assert.NotNil(t, d.HTTPHandler())
}

func TestDaemon_HTTPHandlerServesSessionList(t *testing.T) {
	d := newTestDaemon(t)
	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	d.HTTPHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
