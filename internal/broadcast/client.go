// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package broadcast

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval = 54 * time.Second
	pongWait     = 60 * time.Second
)

// InboundHandler reacts to client-originated websocket messages. A daemon
// assembles one from the components that own the corresponding state
// (focus activation, autocompact settings, catalog extraction). Unrecognized
// inbound types are logged and ignored, and the UI/chat commands this daemon
// does not implement are ignored without a log line; neither closes the
// connection.
type InboundHandler interface {
	SelectSession(sessionID string)
	ToggleAutocompact(enabled bool)
	FocusTerminal(sessionID string)
	GetHandoffContext(sessionID string)
}

// Client wraps one accepted websocket connection.
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
	inbound InboundHandler
	logger  *log.Logger
}

// NewClient wraps conn for use with Hub.Register. inbound may be nil, in
// which case inbound messages are decoded but never acted on.
func NewClient(conn *websocket.Conn, hub *Hub, inbound InboundHandler, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		conn:    conn,
		send:    make(chan []byte, clientSendBuffer),
		hub:     hub,
		inbound: inbound,
		logger:  logger,
	}
}

// enqueue attempts a non-blocking send; it reports false if the client's
// buffer is full or the channel is already closed.
func (c *Client) enqueue(payload []byte) (ok bool) {
	defer func() {
		// send may already be closed by a concurrent Unregister.
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Run drives the client's read and write pumps until the connection closes,
// then unregisters it from the hub. Call in its own goroutine after Register.
func (c *Client) Run() {
	defer c.hub.Unregister(c)
	defer c.conn.Close()

	done := make(chan struct{})
	go c.readPump(done)
	c.writePump(done)
}

func (c *Client) readPump(done chan struct{}) {
	defer close(done)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleInbound(data)
	}
}

func (c *Client) writePump(done chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

type inboundEnvelope struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Enabled   bool   `json:"enabled"`
}

func (c *Client) handleInbound(data []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Printf("broadcast: dropping malformed inbound message: %v", err)
		return
	}

	if c.inbound == nil {
		return
	}

	switch env.Type {
	case "select_session":
		c.inbound.SelectSession(env.SessionID)
	case "toggle_autocompact":
		c.inbound.ToggleAutocompact(env.Enabled)
	case "focus_terminal":
		c.inbound.FocusTerminal(env.SessionID)
	case "get_handoff_context":
		c.inbound.GetHandoffContext(env.SessionID)
	case "trigger_action", "tile_windows", "update_notification_settings", "chat_send", "chat_abort":
		// UI/chat-subsystem commands; not implemented by this daemon.
	default:
		c.logger.Printf("broadcast: unrecognized inbound message type %q", env.Type)
	}
}
