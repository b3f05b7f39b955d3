// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package catalog

import "github.com/wingedpig/jacquesd/internal/broadcast"

// SessionSource names one session worth of work for a bulk run.
type SessionSource struct {
	SessionID      string
	Project        string
	TranscriptPath string
}

// ExtractProjectCatalog runs Extract for every session belonging to one
// project, in order, reporting progress on hub after each. hub may be nil
// for silent extraction (e.g. tests).
func (m *Manager) ExtractProjectCatalog(projectPath string, sessions []SessionSource, force bool, hub *broadcast.Hub) ([]Result, error) {
	results := make([]Result, 0, len(sessions))
	for i, s := range sessions {
		res, err := m.Extract(s.SessionID, s.Project, s.TranscriptPath, force)
		if err != nil {
			return results, err
		}
		results = append(results, res)

		if hub != nil {
			hub.PublishHandoffProgress(broadcast.HandoffProgressMessage{
				SessionID:        s.SessionID,
				Stage:            "extracting",
				ExtractorsDone:   i + 1,
				ExtractorsTotal:  len(sessions),
				CurrentExtractor: "catalog",
			})
			if res.Extracted {
				hub.PublishCatalogUpdated(projectPath, "session_manifest", s.SessionID)
			}
		}
	}
	return results, nil
}

// ExtractAllCatalogs runs ExtractProjectCatalog across every project in
// bySessions, keyed by project path.
func (m *Manager) ExtractAllCatalogs(bySessions map[string][]SessionSource, force bool, hub *broadcast.Hub) (map[string][]Result, error) {
	out := make(map[string][]Result, len(bySessions))
	for project, sessions := range bySessions {
		results, err := m.ExtractProjectCatalog(project, sessions, force, hub)
		if err != nil {
			return out, err
		}
		out[project] = results
	}
	return out, nil
}
