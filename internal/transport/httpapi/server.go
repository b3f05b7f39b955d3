// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package httpapi is the read-only session/project query server plus the
// explicit write endpoints (catalog-extraction triggers, settings toggle).
package httpapi

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/wingedpig/jacquesd/internal/broadcast"
	"github.com/wingedpig/jacquesd/internal/catalog"
	"github.com/wingedpig/jacquesd/internal/focus"
	"github.com/wingedpig/jacquesd/internal/registry"
)

// Dependencies are the collaborators every handler needs. None of them are
// package-level globals; the Server holds exactly one of each.
type Dependencies struct {
	Registry           *registry.Registry
	Hub                *broadcast.Hub
	Activator          *focus.Activator
	CatalogDirName     string // e.g. ".jacques", sibling of each project dir
	PlanDedupThreshold float64
	SettingsPath       string // ~/.claude/settings.json
	Logger             *log.Logger
}

// Server is the HTTP query server: one *http.Server plus the
// collaborators its handlers close over.
type Server struct {
	deps     Dependencies
	srv      *http.Server
	catalogs *catalog.ManagerCache
}

// NewServer builds a Server bound to host:port with router and middleware
// wired in.
func NewServer(host string, port int, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	s := &Server{deps: deps, catalogs: catalog.NewManagerCache(deps.CatalogDirName, deps.PlanDedupThreshold)}
	s.srv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: s.router(),
	}
	return s
}

// Router exposes the wired handler, mainly for tests to drive with
// httptest without binding a socket.
func (s *Server) Router() http.Handler { return s.srv.Handler }

// ListenAndServe blocks serving HTTP until the listener errors or Shutdown
// is called (which surfaces as http.ErrServerClosed).
func (s *Server) ListenAndServe() error { return s.srv.ListenAndServe() }

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }

// managerFor returns the catalog Manager rooted at projectDir's catalog
// directory, opening and caching it on first use.
func (s *Server) managerFor(projectDir string) (*catalog.Manager, error) {
	return s.catalogs.Get(projectDir)
}
