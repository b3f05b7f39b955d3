// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package broadcast

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/wingedpig/jacquesd/internal/registry"
)

// clientSendBuffer is how many outbound messages a slow client may lag
// behind before it is dropped; the rest of the broadcast continues.
const clientSendBuffer = 64

// StateSnapshot is the minimal read-only view of the registry the Hub needs
// to answer a new client's initial_state handshake, without holding a
// direct reference to *registry.Registry.
type StateSnapshot interface {
	List() []*registry.Session
	Focused() string
}

// Hub fans outbound messages out to every connected websocket client and
// implements dispatch.Sink, translating registry mutations into the
// session_update / session_removed / focus_changed message pair.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	focus   string
	logger  *log.Logger
}

// NewHub creates an empty Hub. logger may be nil (log.Default is used).
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{clients: make(map[*Client]struct{}), logger: logger}
}

// Register adds a client and queues the current initial_state, computed
// from snap, on its send buffer; the message goes out once the client's
// write pump runs, so Register may be called before the pumps start.
func (h *Hub) Register(c *Client, snap StateSnapshot) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	msg := newInitialState(snap.List(), snap.Focused())
	c.enqueue(mustMarshal(msg))
}

// Unregister removes a client. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish marshals an arbitrary JSON-tagged message and fans it out. It is
// the escape hatch for message kinds this package does not model (chat_*,
// notification_*, claude_operation, tile_windows_result).
func (h *Hub) Publish(msg any) {
	h.broadcast(mustMarshal(msg))
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.Lock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if !c.enqueue(payload) {
			h.logger.Printf("broadcast: client send buffer full, dropping client")
			h.Unregister(c)
		}
	}
}

// SessionUpdated implements dispatch.Sink: it broadcasts session_update,
// then focus_changed if focusedID differs from the last-known focus.
func (h *Hub) SessionUpdated(session *registry.Session, focusedID string) {
	h.broadcast(mustMarshal(SessionUpdateMessage{Type: "session_update", Session: session}))
	h.maybeAnnounceFocus(focusedID, session)
}

// SessionRemoved implements dispatch.Sink: it broadcasts session_removed,
// then focus_changed if focusedID differs from the last-known focus.
func (h *Hub) SessionRemoved(sessionID string, focusedID string) {
	h.broadcast(mustMarshal(SessionRemovedMessage{Type: "session_removed", SessionID: sessionID}))
	h.maybeAnnounceFocus(focusedID, nil)
}

func (h *Hub) maybeAnnounceFocus(focusedID string, known *registry.Session) {
	h.mu.Lock()
	changed := focusedID != h.focus
	h.focus = focusedID
	h.mu.Unlock()

	if !changed {
		return
	}
	msg := FocusChangedMessage{Type: "focus_changed", SessionID: focusedID}
	if known != nil && known.ID == focusedID {
		msg.Session = known
	}
	h.broadcast(mustMarshal(msg))
}

// PublishServerStatus broadcasts a server_status message.
func (h *Hub) PublishServerStatus(status string, sessionCount int) {
	h.Publish(ServerStatusMessage{Type: "server_status", Status: status, SessionCount: sessionCount})
}

// PublishServerLog broadcasts a server_log message.
func (h *Hub) PublishServerLog(level, message, source string, timestamp int64) {
	h.Publish(ServerLogMessage{Type: "server_log", Level: level, Message: message, Source: source, Timestamp: timestamp})
}

// PublishAPILog broadcasts an api_log audit record.
func (h *Hub) PublishAPILog(method, path string, status int, durationMs, timestamp int64) {
	h.Publish(APILogMessage{Type: "api_log", Method: method, Path: path, Status: status, DurationMs: durationMs, Timestamp: timestamp})
}

// PublishAutocompactToggled broadcasts an autocompact_toggled message.
func (h *Hub) PublishAutocompactToggled(enabled bool, warning string) {
	h.Publish(AutocompactToggledMessage{Type: "autocompact_toggled", Enabled: enabled, Warning: warning})
}

// PublishHandoffReady broadcasts a handoff_ready message.
func (h *Hub) PublishHandoffReady(sessionID, path string) {
	h.Publish(HandoffReadyMessage{Type: "handoff_ready", SessionID: sessionID, Path: path})
}

// PublishHandoffProgress broadcasts a handoff_progress message.
func (h *Hub) PublishHandoffProgress(p HandoffProgressMessage) {
	p.Type = "handoff_progress"
	h.Publish(p)
}

// PublishCatalogUpdated broadcasts a catalog_updated message.
func (h *Hub) PublishCatalogUpdated(projectPath, action, itemID string) {
	h.Publish(CatalogUpdatedMessage{Type: "catalog_updated", ProjectPath: projectPath, Action: action, ItemID: itemID})
}

// PublishFocusTerminalResult broadcasts the outcome of a terminal-activation
// request.
func (h *Hub) PublishFocusTerminalResult(sessionID string, success bool, method, errMsg string) {
	h.Publish(FocusTerminalResultMessage{Type: "focus_terminal_result", SessionID: sessionID, Success: success, Method: method, Error: errMsg})
}

// PublishHandoffContext broadcasts the answer to a get_handoff_context
// request.
func (h *Hub) PublishHandoffContext(sessionID, context string, tokenEstimate int, data map[string]any) {
	h.Publish(HandoffContextMessage{Type: "handoff_context", SessionID: sessionID, Context: context, TokenEstimate: tokenEstimate, Data: data})
}

// PublishHandoffContextError broadcasts a get_handoff_context failure.
func (h *Hub) PublishHandoffContextError(sessionID, errMsg string) {
	h.Publish(HandoffContextErrorMessage{Type: "handoff_context_error", SessionID: sessionID, Error: errMsg})
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Every message type here is a plain struct of JSON-safe fields;
		// a marshal failure means a programming error, not a runtime one.
		panic(err)
	}
	return b
}
