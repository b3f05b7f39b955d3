// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build windows

package ingress

import (
	"fmt"
	"net"
	"time"

	winio "github.com/tailscale/go-winio"
)

const livenessProbeTimeout = 200 * time.Millisecond

// Listen binds a Windows named pipe at path (e.g. `\\.\pipe\jacques`). A
// successful dial of an existing pipe means another instance owns it;
// Listen fails rather than racing it. Named pipes have no stale-file state
// to clean up the way a Unix socket does, so there is no unlink step.
func Listen(path string) (net.Listener, error) {
	if probeLive(path) {
		return nil, fmt.Errorf("ingress: another process is already listening on %s", path)
	}

	l, err := winio.ListenPipe(path, nil)
	if err != nil {
		return nil, fmt.Errorf("ingress: listen on %s: %w", path, err)
	}
	return l, nil
}

func probeLive(path string) bool {
	conn, err := winio.DialPipe(path, &livenessProbeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
