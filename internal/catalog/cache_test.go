// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCache_OpensManagerForEachProjectDir(t *testing.T) {
	cache := NewManagerCache(".jacques", 0.9)

	m1, err := cache.Get(t.TempDir())
	require.NoError(t, err)
	m2, err := cache.Get(t.TempDir())
	require.NoError(t, err)

	assert.NotNil(t, m1)
	assert.NotNil(t, m2)
}

func TestManagerCache_CachesByProjectDir(t *testing.T) {
	cache := NewManagerCache(".jacques", 0.9)
	dir := t.TempDir()

	m1, err := cache.Get(dir)
	require.NoError(t, err)
	m2, err := cache.Get(dir)
	require.NoError(t, err)

	assert.Same(t, m1, m2)
}
