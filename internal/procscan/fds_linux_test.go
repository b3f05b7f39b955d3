// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package procscan

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessCWD_ReadsOwnWorkingDirectory(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Skip("cannot determine working directory")
	}
	cwd, ok := processCWD(os.Getpid())
	assert.True(t, ok)
	assert.Equal(t, wd, cwd)
}

func TestProcessStartTime_ReturnsNonZeroForLiveProcess(t *testing.T) {
	assert.False(t, processStartTime(os.Getpid()).IsZero())
}

func TestDiscoverTranscriptPath_NoMatchingFDReturnsFalse(t *testing.T) {
	_, ok := discoverTranscriptPath(os.Getpid())
	assert.False(t, ok)
}

func TestNodeCmdlineMatchesPattern_UnknownPIDReturnsFalse(t *testing.T) {
	assert.False(t, nodeCmdlineMatchesPattern(-1, []string{"claude"}))
}
