// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package pidfile implements the daemon's PID-file lifecycle: startup fails
// fast if the file names a live process, the file is written once acquired,
// and removed last during shutdown.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrAlreadyRunning is returned by Acquire when the PID file names a
// process that is still alive.
var ErrAlreadyRunning = errors.New("another instance holds the pid file")

// PIDFile is a single fixed-path lock file, e.g. ~/.jacques/server.pid.
type PIDFile struct {
	path string
}

// New returns a PIDFile at path. The file is not touched until Acquire.
func New(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Path returns the underlying file path.
func (p *PIDFile) Path() string { return p.path }

// Acquire checks for a live owner and, finding none, writes the current
// process's pid. A stale file (unparseable, or naming a dead process) is
// overwritten rather than treated as an error.
func (p *PIDFile) Acquire() error {
	if pid, ok, err := readPID(p.path); err != nil {
		return fmt.Errorf("read pid file: %w", err)
	} else if ok && processAlive(pid) {
		return ErrAlreadyRunning
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create pid file directory: %w", err)
	}
	if err := os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

// Remove deletes the pid file. Called last in the shutdown sequence, after
// every listener has closed. A missing file is not an error.
func (p *PIDFile) Remove() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pid file: %w", err)
	}
	return nil
}

func readPID(path string) (pid int, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	pid, convErr := strconv.Atoi(strings.TrimSpace(string(data)))
	if convErr != nil {
		return 0, false, nil
	}
	return pid, true, nil
}

// processAlive reports whether pid names a live process, using the
// zero-signal liveness probe (signal 0 checks permissions/existence
// without actually delivering a signal).
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
