// Ganglink Core
// Copyright (c) 2026 The Ganglink Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Ganglink Core.
//
// Ganglink Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Ganglink Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Ganglink Core.  If not, see <http://www.gnu.org/licenses/>.

package helpers

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ganglink/ganglink-core/pkg/config"
	"github.com/shirou/gopsutil/v4/process"
)

// ErrAlreadyRunning is returned when another driver process holds the
// PID file.
var ErrAlreadyRunning = errors.New("service already running")

// PidFile marks the running service process.
type PidFile struct {
	path string
}

func NewPidFile(tempDir string) *PidFile {
	return &PidFile{path: filepath.Join(tempDir, config.PidFile)}
}

func (p *PidFile) Path() string {
	return p.path
}

// Pid returns the recorded process ID, or 0 when no file exists.
func (p *PidFile) Pid() (int, error) {
	//nolint:gosec // path built from the driver's temp dir
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("error reading pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("error parsing pid: %w", err)
	}
	return pid, nil
}

// Running reports whether the recorded process is alive.
func (p *PidFile) Running() bool {
	pid, err := p.Pid()
	if err != nil || pid <= 0 || pid == os.Getpid() {
		return false
	}
	return ProcessAlive(pid)
}

// Create records the current process, failing if another live process
// already holds the file.
func (p *PidFile) Create() error {
	if p.Running() {
		return ErrAlreadyRunning
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o750); err != nil {
		return fmt.Errorf("failed to create pid directory: %w", err)
	}
	if err := os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

func (p *PidFile) Remove() error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// ProcessAlive reports whether pid names a live process.
func ProcessAlive(pid int) bool {
	if pid <= 0 || pid > math.MaxInt32 {
		return false
	}
	//nolint:gosec // range checked above
	exists, err := process.PidExists(int32(pid))
	return err == nil && exists
}
