// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package settingsfile owns the one key jacquesd reads and writes inside the
// assistant's settings file (e.g. ~/.claude/settings.json): the autocompact
// toggle. Both the HTTP and websocket transports mutate it through here so
// the read-modify-write is identical regardless of which one a client used.
package settingsfile

import "github.com/wingedpig/jacquesd/internal/atomicfile"

// AutocompactKey is the field jacquesd owns; every other key in the
// settings file is preserved verbatim across the read-modify-write.
const AutocompactKey = "autocompactEnabled"

// ToggleAutocompact sets AutocompactKey to enabled in the JSON object at
// path, leaving every other key untouched.
func ToggleAutocompact(path string, enabled bool) error {
	settings := make(map[string]any)
	if _, err := atomicfile.ReadJSON(path, &settings); err != nil {
		return err
	}
	settings[AutocompactKey] = enabled
	return atomicfile.WriteJSON(path, settings)
}
