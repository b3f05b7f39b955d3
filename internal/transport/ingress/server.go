// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package ingress implements the event-ingress transport: a local stream
// listener (Unix domain socket on POSIX, named pipe on Windows) that accepts
// any number of connections, each a stream of newline-delimited JSON events
// until EOF.
package ingress

import (
	"bufio"
	"context"
	"log"
	"net"

	"github.com/wingedpig/jacquesd/internal/dispatch"
)

// maxLineBytes bounds a single ingress line; larger lines are a malformed
// event; emitters never need anywhere near this much for the documented
// schema.
const maxLineBytes = 1 << 20

// Server accepts ingress connections and feeds every decoded line to a
// Dispatcher, serializing dispatch so that, per session id, registry
// mutations are applied in arrival order regardless of which connection
// they arrived on.
type Server struct {
	listener   net.Listener
	dispatcher *dispatch.Dispatcher
	logger     *log.Logger
}

// NewServer wraps an already-bound listener (see Listen).
func NewServer(listener net.Listener, dispatcher *dispatch.Dispatcher, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{listener: listener, dispatcher: dispatcher, logger: logger}
}

// Serve accepts connections until ctx is canceled or the listener is closed.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		// Dispatch expects a stable slice; scanner.Bytes() is reused on the
		// next Scan, so copy before handing it off.
		cp := make([]byte, len(line))
		copy(cp, line)
		s.dispatcher.Dispatch(cp)
	}
	if err := scanner.Err(); err != nil {
		s.logger.Printf("ingress: connection read error: %v", err)
	}
}

// Close closes the underlying listener.
func (s *Server) Close() error {
	return s.listener.Close()
}
