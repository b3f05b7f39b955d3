// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package procscan

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/jacquesd/internal/registry"
)

type fixedSource struct {
	discoveries []Discovery
	err         error
}

func (f fixedSource) Scan() ([]Discovery, error) { return f.discoveries, f.err }

func discardLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestReconcile_RegistersNewDiscoveredSession(t *testing.T) {
	reg := registry.New()
	src := fixedSource{discoveries: []Discovery{
		{SessionID: "sess-1", PID: 100, CWD: "/home/u/proj", TranscriptPath: "/home/u/.claude/projects/p/sess-1.jsonl", TerminalKeyInner: "PID:100", StartedAt: time.Unix(1700000000, 0)},
	}}

	Reconcile(src, reg, discardLogger())

	session, ok := reg.Get("sess-1")
	require.True(t, ok)
	assert.Equal(t, "/home/u/proj", session.CWD)
	assert.Contains(t, session.TerminalKey, "DISCOVERED:PID:100")
}

func TestReconcile_SkipsSessionAlreadyKnown(t *testing.T) {
	reg := registry.New()
	reg.RegisterSession(registry.RegisterInput{SessionID: "sess-1", Timestamp: 1, CWD: "/already/known"})

	src := fixedSource{discoveries: []Discovery{
		{SessionID: "sess-1", PID: 100, CWD: "/home/u/proj", TerminalKeyInner: "PID:100"},
	}}

	Reconcile(src, reg, discardLogger())

	session, ok := reg.Get("sess-1")
	require.True(t, ok)
	assert.Equal(t, "/already/known", session.CWD)
}

func TestReconcile_ScanErrorIsLoggedNotPanicked(t *testing.T) {
	reg := registry.New()
	src := fixedSource{err: assert.AnError}

	assert.NotPanics(t, func() {
		Reconcile(src, reg, discardLogger())
	})
	assert.Empty(t, reg.List())
}
