// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"github.com/gorilla/mux"
)

// router wires every route behind the audit/recovery middleware, audit
// outermost and recovery inside it so a recovered panic is still audited.
func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(audit(s.deps.Hub, s.deps.Logger))
	r.Use(recovery(s.deps.Logger))

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}/plans/{messageIndex}", s.handleSessionPlanContent).Methods("GET")
	api.HandleFunc("/sessions/{id}/extract", s.handleExtractSession).Methods("POST")
	api.HandleFunc("/sessions/{id}/focus", s.handleFocusSession).Methods("POST")

	api.HandleFunc("/projects", s.handleListProjects).Methods("GET")
	api.HandleFunc("/projects/{project}/sessions", s.handleListProjectSessions).Methods("GET")
	api.HandleFunc("/projects/{project}/extract", s.handleExtractProject).Methods("POST")
	api.HandleFunc("/projects/{project}/plans/{planID}/content", s.handlePlanContent).Methods("GET")

	api.HandleFunc("/settings/autocompact", s.handleToggleAutocompact).Methods("POST")

	return r
}
