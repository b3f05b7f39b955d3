// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterSession_NewFocusesIt(t *testing.T) {
	r := New()

	s := r.RegisterSession(RegisterInput{
		SessionID: "sess-1",
		Timestamp: 1000,
		CWD:       "/home/user/proj",
		TerminalKey: "TTY:/dev/ttys001",
	})

	require.NotNil(t, s)
	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, "proj", s.Project)
	assert.Equal(t, "sess-1", r.Focused())
}

func TestRegisterSession_UpgradesPartialKeyInPlace(t *testing.T) {
	r := New()
	r.RegisterDiscoveredSession(DiscoveredInput{
		SessionID:        "sess-1",
		Timestamp:        1000,
		CWD:              "/home/user/proj",
		TerminalKeyInner: "PID:555",
	})

	before, _ := r.Get("sess-1")
	assert.True(t, IsPartialKey(before.TerminalKey))

	after := r.RegisterSession(RegisterInput{
		SessionID:   "sess-1",
		Timestamp:   2000,
		TerminalKey: "TTY:/dev/ttys001",
	})

	assert.Equal(t, "TTY:/dev/ttys001", after.TerminalKey)
	assert.False(t, IsPartialKey(after.TerminalKey))
	assert.Equal(t, int64(2000), after.LastActivity)
}

func TestRegisterSession_IdempotentDoesNotRegress(t *testing.T) {
	r := New()
	r.RegisterSession(RegisterInput{SessionID: "sess-1", Timestamp: 5000, TerminalKey: "TTY:/dev/ttys001"})

	s := r.RegisterSession(RegisterInput{SessionID: "sess-1", Timestamp: 1000, TerminalKey: "TTY:/dev/ttys001"})
	assert.Equal(t, int64(5000), s.LastActivity, "last_activity must never decrease")
}

func TestRegisterDiscoveredSession_NoopIfAlreadyKnown(t *testing.T) {
	r := New()
	r.RegisterSession(RegisterInput{SessionID: "sess-1", Timestamp: 1000, TerminalKey: "TTY:/dev/ttys001"})

	got := r.RegisterDiscoveredSession(DiscoveredInput{SessionID: "sess-1", Timestamp: 2000, TerminalKeyInner: "PID:9"})
	assert.Nil(t, got)

	s, _ := r.Get("sess-1")
	assert.Equal(t, "TTY:/dev/ttys001", s.TerminalKey)
}

func TestUpdateActivity_FocusesAndAdvancesStatus(t *testing.T) {
	r := New()
	r.RegisterSession(RegisterInput{SessionID: "a", Timestamp: 1000, TerminalKey: "TTY:/dev/ttys1"})
	r.RegisterSession(RegisterInput{SessionID: "b", Timestamp: 1500, TerminalKey: "TTY:/dev/ttys2"})

	s := r.UpdateActivity(ActivityInput{SessionID: "a", Timestamp: 2000, ToolName: "Edit"})
	require.NotNil(t, s)
	assert.Equal(t, StatusWorking, s.Status)
	assert.Equal(t, "a", r.Focused())
}

func TestUpdateActivity_UnknownSessionIsDropped(t *testing.T) {
	r := New()
	s := r.UpdateActivity(ActivityInput{SessionID: "ghost", Timestamp: 1})
	assert.Nil(t, s)
	assert.Equal(t, "", r.Focused())
}

func TestSetSessionIdle_DoesNotChangeFocus(t *testing.T) {
	r := New()
	r.RegisterSession(RegisterInput{SessionID: "a", Timestamp: 1000, TerminalKey: "TTY:/dev/ttys1"})
	r.RegisterSession(RegisterInput{SessionID: "b", Timestamp: 1500, TerminalKey: "TTY:/dev/ttys2"})

	r.SetSessionIdle("b")
	s, _ := r.Get("b")
	assert.Equal(t, StatusIdle, s.Status)
	assert.Equal(t, "b", r.Focused(), "idle transition must not move focus")
}

func TestUnregisterSession_ShiftsFocusToMostRecentSurvivor(t *testing.T) {
	r := New()
	r.RegisterSession(RegisterInput{SessionID: "a", Timestamp: 1000, TerminalKey: "TTY:/dev/ttys1"})
	r.RegisterSession(RegisterInput{SessionID: "b", Timestamp: 3000, TerminalKey: "TTY:/dev/ttys2"})
	r.RegisterSession(RegisterInput{SessionID: "c", Timestamp: 2000, TerminalKey: "TTY:/dev/ttys3"})
	require.True(t, r.SetFocus("b"))

	removed, newFocus := r.UnregisterSession("b")
	assert.True(t, removed)
	assert.Equal(t, "c", newFocus, "focus must shift to the most-recently-active survivor")
	assert.Equal(t, "c", r.Focused())
}

func TestUnregisterSession_LastSessionClearsFocus(t *testing.T) {
	r := New()
	r.RegisterSession(RegisterInput{SessionID: "a", Timestamp: 1000, TerminalKey: "TTY:/dev/ttys1"})

	removed, newFocus := r.UnregisterSession("a")
	assert.True(t, removed)
	assert.Equal(t, "", newFocus)
}

func TestUnregisterSession_UnknownIDIsNoop(t *testing.T) {
	r := New()
	removed, _ := r.UnregisterSession("ghost")
	assert.False(t, removed)
}

func TestSetFocus_MovesFocusToKnownSession(t *testing.T) {
	r := New()
	r.RegisterSession(RegisterInput{SessionID: "a", Timestamp: 1000})
	r.RegisterSession(RegisterInput{SessionID: "b", Timestamp: 1001})

	changed := r.SetFocus("a")
	assert.True(t, changed)
	assert.Equal(t, "a", r.Focused())
}

func TestSetFocus_UnknownSessionIsNoop(t *testing.T) {
	r := New()
	r.RegisterSession(RegisterInput{SessionID: "a", Timestamp: 1000})

	changed := r.SetFocus("ghost")
	assert.False(t, changed)
	assert.Equal(t, "a", r.Focused())
}

func TestSetFocus_AlreadyFocusedIsNoop(t *testing.T) {
	r := New()
	r.RegisterSession(RegisterInput{SessionID: "a", Timestamp: 1000})

	changed := r.SetFocus("a")
	assert.False(t, changed)
}

func TestUpdateTranscriptStats_UnknownSessionReturnsFalse(t *testing.T) {
	r := New()
	assert.False(t, r.UpdateTranscriptStats("nope", 10, 20))
}

func TestUpdateTranscriptStats_SetsCountersWithoutTouchingFocus(t *testing.T) {
	r := New()
	r.RegisterSession(RegisterInput{SessionID: "a", Timestamp: 1000})
	r.RegisterSession(RegisterInput{SessionID: "b", Timestamp: 2000})
	require.Equal(t, "b", r.Focused())

	changed := r.UpdateTranscriptStats("a", 111, 222)
	require.True(t, changed)

	s, ok := r.Get("a")
	require.True(t, ok)
	require.NotNil(t, s.ContextMetrics)
	assert.Equal(t, 111, s.ContextMetrics.TotalInputTokens)
	assert.Equal(t, 222, s.ContextMetrics.TotalOutputTokens)
	assert.True(t, s.ContextMetrics.IsEstimate)
	assert.Equal(t, "b", r.Focused(), "transcript-derived stats must never move focus")
}

func TestUpdateTranscriptStats_PreservesExistingPercentageFromHook(t *testing.T) {
	r := New()
	r.RegisterSession(RegisterInput{SessionID: "a", Timestamp: 1000})
	r.UpdateContext(ContextUpdateInput{
		SessionID: "a",
		Timestamp: 1001,
		Metrics:   ContextMetrics{UsedPercentage: 42, RemainingPercentage: 58, WindowSize: 200000},
	})

	r.UpdateTranscriptStats("a", 5, 6)

	s, _ := r.Get("a")
	assert.Equal(t, 42.0, s.ContextMetrics.UsedPercentage)
	assert.Equal(t, 200000, s.ContextMetrics.WindowSize)
}

func TestFindByTerminalKey_ExactMatch(t *testing.T) {
	r := New()
	r.RegisterSession(RegisterInput{SessionID: "a", Timestamp: 1000, TerminalKey: "TTY:/dev/ttys1"})

	id, ok := r.FindByTerminalKey("TTY:/dev/ttys1")
	assert.True(t, ok)
	assert.Equal(t, "a", id)
}

func TestFindByTerminalKey_ITermUUIDSuffixMatchesAcrossPrefixForm(t *testing.T) {
	r := New()
	r.RegisterSession(RegisterInput{
		SessionID:   "a",
		Timestamp:   1000,
		TerminalKey: PrefixITerm + ":w0t0p0:550e8400-e29b-41d4-a716-446655440000",
	})

	id, ok := r.FindByTerminalKey(PrefixITerm + ":550e8400-e29b-41d4-a716-446655440000")
	assert.True(t, ok)
	assert.Equal(t, "a", id)
}

func TestFindByTerminalKey_NoMatch(t *testing.T) {
	r := New()
	_, ok := r.FindByTerminalKey("TTY:/dev/ttys9")
	assert.False(t, ok)
}

func TestList_StrictDescendingActivityOrder(t *testing.T) {
	r := New()
	r.RegisterSession(RegisterInput{SessionID: "a", Timestamp: 1000, TerminalKey: "TTY:/dev/ttys1"})
	r.RegisterSession(RegisterInput{SessionID: "b", Timestamp: 3000, TerminalKey: "TTY:/dev/ttys2"})
	r.RegisterSession(RegisterInput{SessionID: "c", Timestamp: 2000, TerminalKey: "TTY:/dev/ttys3"})

	sessions := r.List()
	require.Len(t, sessions, 3)
	assert.Equal(t, "b", sessions[0].ID)
	assert.Equal(t, "c", sessions[1].ID)
	assert.Equal(t, "a", sessions[2].ID)
}

func TestStartCleanup_RemovesStaleIdleSessions(t *testing.T) {
	r := New()
	r.RegisterSession(RegisterInput{SessionID: "a", Timestamp: time.Now().Add(-2 * time.Hour).UnixMilli(), TerminalKey: "TTY:/dev/ttys1"})
	r.SetSessionIdle("a")

	removedCh := make(chan string, 1)
	r.StartCleanup(20*time.Millisecond, time.Minute, func(id, _ string) {
		removedCh <- id
	})
	defer r.StopCleanup()

	select {
	case id := <-removedCh:
		assert.Equal(t, "a", id)
	case <-time.After(time.Second):
		t.Fatal("cleanup did not remove stale idle session in time")
	}

	_, ok := r.Get("a")
	assert.False(t, ok)
}

func TestStartCleanup_LeavesActiveSessionsAlone(t *testing.T) {
	r := New()
	r.RegisterSession(RegisterInput{SessionID: "a", Timestamp: time.Now().Add(-2 * time.Hour).UnixMilli(), TerminalKey: "TTY:/dev/ttys1"})

	r.StartCleanup(20*time.Millisecond, time.Minute, nil)
	time.Sleep(100 * time.Millisecond)
	r.StopCleanup()

	_, ok := r.Get("a")
	assert.True(t, ok, "active (non-idle) sessions must survive the sweep regardless of age")
}

func TestClone_IsIndependentOfOriginal(t *testing.T) {
	r := New()
	r.RegisterSession(RegisterInput{
		SessionID:   "a",
		Timestamp:   1000,
		TerminalKey: "TTY:/dev/ttys1",
		Autocompact: &AutocompactStatus{Enabled: true, ThresholdPercent: 80},
	})

	s1, _ := r.Get("a")
	s1.Autocompact.ThresholdPercent = 999

	s2, _ := r.Get("a")
	assert.Equal(t, 80, s2.Autocompact.ThresholdPercent, "mutating a returned clone must not affect registry state")
}
