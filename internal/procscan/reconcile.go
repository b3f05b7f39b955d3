// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package procscan

import (
	"log"

	"github.com/wingedpig/jacquesd/internal/registry"
)

// source is the subset of Scanner's behavior Reconcile depends on, so
// tests can supply a fixed set of discoveries instead of scanning the
// real process table.
type source interface {
	Scan() ([]Discovery, error)
}

// Reconcile scans the process table once and registers any assistant
// session not already known to reg as a discovered session, so
// sessions started before the daemon came up still show up in the
// registry instead of waiting for their next hook event.
func Reconcile(s source, reg *registry.Registry, logger *log.Logger) {
	discoveries, err := s.Scan()
	if err != nil {
		logger.Printf("procscan: scan failed: %v", err)
		return
	}

	for _, d := range discoveries {
		if _, exists := reg.Get(d.SessionID); exists {
			continue
		}
		timestamp := d.StartedAt.UnixMilli()
		session := reg.RegisterDiscoveredSession(registry.DiscoveredInput{
			SessionID:        d.SessionID,
			Timestamp:        timestamp,
			TranscriptPath:   d.TranscriptPath,
			CWD:              d.CWD,
			TerminalKeyInner: d.TerminalKeyInner,
		})
		if session != nil {
			logger.Printf("procscan: discovered session %s (pid %d, cwd %s)", d.SessionID, d.PID, d.CWD)
		}
	}
}
