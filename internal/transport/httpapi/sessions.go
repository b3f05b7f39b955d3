// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Registry.List())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	session, ok := s.deps.Registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "no session with that id")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handleSessionPlanContent resolves a session's plan by its message index
// (the position at which it was detected in the transcript) rather than by
// catalog plan id, then fetches the cataloged content.
func (s *Server) handleSessionPlanContent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	messageIndex, err := strconv.Atoi(vars["messageIndex"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_MESSAGE_INDEX", "messageIndex must be an integer")
		return
	}

	session, ok := s.deps.Registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "no session with that id")
		return
	}
	if session.CWD == "" {
		writeError(w, http.StatusNotFound, "PROJECT_UNKNOWN", "session has no known project directory")
		return
	}

	manager, err := s.managerFor(session.CWD)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "CATALOG_UNAVAILABLE", err.Error())
		return
	}

	manifest, found, err := manager.Manifest(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "MANIFEST_READ_FAILED", err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "MANIFEST_NOT_FOUND", "session has not been cataloged yet")
		return
	}

	var planID string
	for _, ref := range manifest.Plans {
		if ref.MessageIndex == messageIndex {
			planID = ref.PlanID
			break
		}
	}
	if planID == "" {
		writeError(w, http.StatusNotFound, "PLAN_NOT_FOUND", "no cataloged plan at that message index")
		return
	}

	content, found, err := manager.PlanContent(planID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "PLAN_CONTENT_READ_FAILED", err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "PLAN_CONTENT_NOT_FOUND", "plan id has no stored content")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"plan_id": planID, "content": content})
}

// handleExtractSession triggers a single-session catalog extraction on
// demand (e.g. a UI "refresh" action), bypassing the incremental-skip gate.
func (s *Server) handleExtractSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	session, ok := s.deps.Registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "no session with that id")
		return
	}
	if session.TranscriptPath == "" {
		writeError(w, http.StatusConflict, "NO_TRANSCRIPT", "session has no known transcript path")
		return
	}

	manager, err := s.managerFor(session.CWD)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "CATALOG_UNAVAILABLE", err.Error())
		return
	}

	result, err := manager.Extract(session.ID, session.Project, session.TranscriptPath, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "EXTRACT_FAILED", err.Error())
		return
	}
	if s.deps.Hub != nil && result.Extracted {
		s.deps.Hub.PublishCatalogUpdated(session.Project, "session_manifest", session.ID)
	}
	writeJSON(w, http.StatusOK, result)
}

// handleFocusSession drives the terminal activator for one session's
// terminal_key, mirroring the websocket focus_terminal inbound message but
// reachable over plain HTTP for scripting/testing.
func (s *Server) handleFocusSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	session, ok := s.deps.Registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "no session with that id")
		return
	}
	if s.deps.Activator == nil {
		writeError(w, http.StatusNotImplemented, "ACTIVATION_UNAVAILABLE", "terminal activation is not configured")
		return
	}

	result := s.deps.Activator.Activate(r.Context(), session.TerminalKey)
	if s.deps.Hub != nil {
		s.deps.Hub.PublishFocusTerminalResult(session.ID, result.Success, result.Method, result.Error)
	}
	writeJSON(w, http.StatusOK, result)
}
