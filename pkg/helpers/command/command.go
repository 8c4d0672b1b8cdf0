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

// Package command starts external processes behind an interface so callers
// can be tested without spawning anything.
package command

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// StartOptions configures how a background process is started.
type StartOptions struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// HideWindow prevents a console window from appearing (Windows only).
	HideWindow bool
	// Detach puts the process in its own process group so it survives
	// signals sent to the caller's group.
	Detach bool
}

// Executor starts processes.
type Executor interface {
	// LookPath resolves an executable name or path.
	LookPath(file string) (string, error)

	// StartWithOptions starts a command without waiting for it. The process
	// is reaped in the background.
	StartWithOptions(ctx context.Context, opts StartOptions, name string, args ...string) error
}

// RealExecutor runs actual system processes.
type RealExecutor struct{}

// LookPath wraps exec.LookPath.
//
//nolint:wrapcheck // exec errors already name the file
func (*RealExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// StartWithOptions starts name with platform specific options applied.
func (*RealExecutor) StartWithOptions(
	ctx context.Context,
	opts StartOptions,
	name string,
	args ...string,
) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir
	applyOptions(cmd, opts)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}

	pid := cmd.Process.Pid
	log.Debug().Str("name", name).Int("pid", pid).Msg("process started")

	go func() {
		if err := cmd.Wait(); err != nil {
			log.Warn().Err(err).Str("name", name).Int("pid", pid).Msg("process exited")
			return
		}
		log.Debug().Str("name", name).Int("pid", pid).Msg("process exited")
	}()

	return nil
}
