// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package broadcast

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/jacquesd/internal/registry"
)

type fakeSnapshot struct {
	sessions []*registry.Session
	focused  string
}

func (f fakeSnapshot) List() []*registry.Session { return f.sessions }
func (f fakeSnapshot) Focused() string           { return f.focused }

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func newTestServer(t *testing.T, hub *Hub, snap StateSnapshot) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		c := NewClient(conn, hub, nil, nil)
		hub.Register(c, snap)
		c.Run()
	}))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return srv, wsURL
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func TestHub_NewClientReceivesInitialState(t *testing.T) {
	hub := NewHub(nil)
	snap := fakeSnapshot{
		sessions: []*registry.Session{{ID: "a", Status: registry.StatusActive}},
		focused:  "a",
	}
	srv, wsURL := newTestServer(t, hub, snap)
	defer srv.Close()

	conn := dial(t, wsURL)
	defer conn.Close()

	var msg InitialStateMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "initial_state", msg.Type)
	assert.Equal(t, "a", msg.FocusedSessionID)
	require.Len(t, msg.Sessions, 1)
	assert.Equal(t, "a", msg.Sessions[0].ID)
}

func TestHub_SessionUpdatedBroadcastsAndAnnouncesFocusOnce(t *testing.T) {
	hub := NewHub(nil)
	snap := fakeSnapshot{}
	srv, wsURL := newTestServer(t, hub, snap)
	defer srv.Close()

	conn := dial(t, wsURL)
	defer conn.Close()

	var initial InitialStateMessage
	require.NoError(t, conn.ReadJSON(&initial))

	s := &registry.Session{ID: "s1", Status: registry.StatusActive}
	hub.SessionUpdated(s, "s1")

	var update map[string]any
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, "session_update", update["type"])

	var focus map[string]any
	require.NoError(t, conn.ReadJSON(&focus))
	assert.Equal(t, "focus_changed", focus["type"])
	assert.Equal(t, "s1", focus["session_id"])

	// A second update with the same focus must not re-announce focus.
	hub.SessionUpdated(s, "s1")
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var second map[string]any
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "session_update", second["type"])

	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	err := conn.ReadJSON(&map[string]any{})
	assert.Error(t, err, "no further focus_changed should be sent when focus is unchanged")
}

func TestHub_SessionRemovedBroadcasts(t *testing.T) {
	hub := NewHub(nil)
	srv, wsURL := newTestServer(t, hub, fakeSnapshot{})
	defer srv.Close()

	conn := dial(t, wsURL)
	defer conn.Close()
	var initial InitialStateMessage
	require.NoError(t, conn.ReadJSON(&initial))

	hub.SessionRemoved("s1", "")

	var removed map[string]any
	require.NoError(t, conn.ReadJSON(&removed))
	assert.Equal(t, "session_removed", removed["type"])
	assert.Equal(t, "s1", removed["session_id"])
}

func TestHub_PublishHandoffContextBroadcasts(t *testing.T) {
	hub := NewHub(nil)
	srv, wsURL := newTestServer(t, hub, fakeSnapshot{})
	defer srv.Close()

	conn := dial(t, wsURL)
	defer conn.Close()
	var initial InitialStateMessage
	require.NoError(t, conn.ReadJSON(&initial))

	hub.PublishHandoffContext("s1", "## summary", 42, map[string]any{"files": []string{"a.go"}})

	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "handoff_context", msg["type"])
	assert.Equal(t, "s1", msg["session_id"])
	assert.Equal(t, float64(42), msg["token_estimate"])
}

func TestHub_PublishHandoffContextErrorBroadcasts(t *testing.T) {
	hub := NewHub(nil)
	srv, wsURL := newTestServer(t, hub, fakeSnapshot{})
	defer srv.Close()

	conn := dial(t, wsURL)
	defer conn.Close()
	var initial InitialStateMessage
	require.NoError(t, conn.ReadJSON(&initial))

	hub.PublishHandoffContextError("s1", "no catalog yet")

	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "handoff_context_error", msg["type"])
	assert.Equal(t, "no catalog yet", msg["error"])
}

func TestHub_ClientCountTracksConnections(t *testing.T) {
	hub := NewHub(nil)
	srv, wsURL := newTestServer(t, hub, fakeSnapshot{})
	defer srv.Close()

	conn := dial(t, wsURL)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}
