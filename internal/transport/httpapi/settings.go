// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/wingedpig/jacquesd/internal/settingsfile"
)

type toggleAutocompactRequest struct {
	Enabled bool `json:"enabled"`
}

// handleToggleAutocompact flips the autocompact setting by reading the
// assistant's settings file, mutating only the one key jacquesd owns, and
// atomically writing it back.
func (s *Server) handleToggleAutocompact(w http.ResponseWriter, r *http.Request) {
	var req toggleAutocompactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "expected {\"enabled\": bool}")
		return
	}

	if err := settingsfile.ToggleAutocompact(s.deps.SettingsPath, req.Enabled); err != nil {
		writeError(w, http.StatusInternalServerError, "SETTINGS_WRITE_FAILED", err.Error())
		return
	}

	if s.deps.Hub != nil {
		s.deps.Hub.PublishAutocompactToggled(req.Enabled, "")
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}
