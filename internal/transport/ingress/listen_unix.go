// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package ingress

import (
	"fmt"
	"net"
	"os"
	"time"
)

// livenessProbeTimeout bounds how long Listen waits to find out whether an
// existing socket file has a live listener on the other end.
const livenessProbeTimeout = 200 * time.Millisecond

// Listen binds a Unix domain socket at path. If the path already exists,
// Listen first probes it: a successful dial means another instance is
// already listening, and Listen fails rather than stealing the socket; a
// failed dial means the file is stale (owner crashed without cleanup) and
// is unlinked before binding.
func Listen(path string) (net.Listener, error) {
	if _, err := os.Stat(path); err == nil {
		if probeLive(path) {
			return nil, fmt.Errorf("ingress: another process is already listening on %s", path)
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("ingress: removing stale socket %s: %w", path, err)
		}
	}

	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("ingress: listen on %s: %w", path, err)
	}
	return l, nil
}

func probeLive(path string) bool {
	conn, err := net.DialTimeout("unix", path, livenessProbeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
