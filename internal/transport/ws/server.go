// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package ws implements the fan-out websocket endpoint: upgrade the
// connection, register it with the broadcast hub, and run its pumps until
// it disconnects.
package ws

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/wingedpig/jacquesd/internal/broadcast"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades HTTP connections to websockets and hands them to a
// broadcast.Hub.
type Handler struct {
	hub     *broadcast.Hub
	snap    broadcast.StateSnapshot
	inbound broadcast.InboundHandler
	logger  *log.Logger
}

// NewHandler creates a websocket Handler. inbound may be nil.
func NewHandler(hub *broadcast.Hub, snap broadcast.StateSnapshot, inbound broadcast.InboundHandler, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{hub: hub, snap: snap, inbound: inbound, logger: logger}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("ws: upgrade failed: %v", err)
		return
	}

	client := broadcast.NewClient(conn, h.hub, h.inbound, h.logger)
	h.hub.Register(client, h.snap)
	client.Run()
}
