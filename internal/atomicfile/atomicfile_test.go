// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package atomicfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name string `json:"name"`
}

func TestWriteJSON_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "record.json")

	require.NoError(t, WriteJSON(path, record{Name: "a"}))

	var got record
	ok, err := ReadJSON(path, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", got.Name)
}

func TestWriteJSON_LeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "record.json")

	require.NoError(t, WriteJSON(path, record{Name: "a"}))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestReadJSON_MissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	var got record
	ok, err := ReadJSON(filepath.Join(dir, "missing.json"), &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteJSON_OverwritesPriorContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "record.json")

	require.NoError(t, WriteJSON(path, record{Name: "first"}))
	require.NoError(t, WriteJSON(path, record{Name: "second"}))

	var got record
	_, err := ReadJSON(path, &got)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Name)
}
