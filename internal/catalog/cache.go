// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"path/filepath"
	"sync"
)

// ManagerCache opens and reuses one Manager per project directory, since
// each Manager is rooted at one project's catalog folder and
// plancatalog.Open loads its index once at open time. Shared by the HTTP
// query server and the daemon's handoff-triggered extraction path so
// neither keeps its own duplicate cache.
type ManagerCache struct {
	dirName            string
	planDedupThreshold float64

	mu       sync.Mutex
	managers map[string]*Manager
}

// NewManagerCache returns a cache that opens managers rooted at
// "<projectDir>/<dirName>".
func NewManagerCache(dirName string, planDedupThreshold float64) *ManagerCache {
	return &ManagerCache{
		dirName:            dirName,
		planDedupThreshold: planDedupThreshold,
		managers:           make(map[string]*Manager),
	}
}

// Get returns the Manager for projectDir, opening it on first use.
func (c *ManagerCache) Get(projectDir string) (*Manager, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.managers[projectDir]; ok {
		return m, nil
	}
	m, err := NewManager(filepath.Join(projectDir, c.dirName), c.planDedupThreshold)
	if err != nil {
		return nil, err
	}
	c.managers[projectDir] = m
	return m, nil
}
