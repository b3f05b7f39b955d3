// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wingedpig/jacquesd/internal/catalog"
)

// projectListing is one entry in GET /api/projects, the dash-encoded form
// of the project directory alongside its plain path and live session count.
type projectListing struct {
	Path         string `json:"path"`
	Encoded      string `json:"encoded"`
	SessionCount int    `json:"session_count"`
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	counts := make(map[string]int)
	for _, sess := range s.deps.Registry.List() {
		if sess.CWD != "" {
			counts[sess.CWD]++
		}
	}

	listings := make([]projectListing, 0, len(counts))
	for dir, count := range counts {
		listings = append(listings, projectListing{Path: dir, Encoded: dashEncode(dir), SessionCount: count})
	}
	writeJSON(w, http.StatusOK, listings)
}

func (s *Server) handleListProjectSessions(w http.ResponseWriter, r *http.Request) {
	encoded := mux.Vars(r)["project"]
	dir, ok := resolveProjectDir(s.deps.Registry, encoded)
	if !ok {
		writeError(w, http.StatusNotFound, "PROJECT_NOT_FOUND", "no known project matches that path")
		return
	}

	var sessions []any
	for _, sess := range s.deps.Registry.List() {
		if sess.CWD == dir {
			sessions = append(sessions, sess)
		}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// handleExtractProject runs a catalog extraction across every live session
// belonging to one project, reporting per-session progress over the
// websocket hub as it goes.
func (s *Server) handleExtractProject(w http.ResponseWriter, r *http.Request) {
	encoded := mux.Vars(r)["project"]
	dir, ok := resolveProjectDir(s.deps.Registry, encoded)
	if !ok {
		writeError(w, http.StatusNotFound, "PROJECT_NOT_FOUND", "no known project matches that path")
		return
	}

	var sources []catalog.SessionSource
	for _, sess := range s.deps.Registry.List() {
		if sess.CWD != dir || sess.TranscriptPath == "" {
			continue
		}
		sources = append(sources, catalog.SessionSource{
			SessionID:      sess.ID,
			Project:        sess.Project,
			TranscriptPath: sess.TranscriptPath,
		})
	}

	manager, err := s.managerFor(dir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "CATALOG_UNAVAILABLE", err.Error())
		return
	}

	results, err := manager.ExtractProjectCatalog(dir, sources, false, s.deps.Hub)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "EXTRACT_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handlePlanContent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	dir, ok := resolveProjectDir(s.deps.Registry, vars["project"])
	if !ok {
		writeError(w, http.StatusNotFound, "PROJECT_NOT_FOUND", "no known project matches that path")
		return
	}

	manager, err := s.managerFor(dir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "CATALOG_UNAVAILABLE", err.Error())
		return
	}

	content, found, err := manager.PlanContent(vars["planID"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, "PLAN_CONTENT_READ_FAILED", err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "PLAN_NOT_FOUND", "plan id has no stored content")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"plan_id": vars["planID"], "content": content})
}
