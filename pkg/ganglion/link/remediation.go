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

package link

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ganglink/ganglink-core/pkg/helpers/command"
	"github.com/rs/zerolog/log"
)

// ErrNoHubPath is returned when no hub executable is configured.
var ErrNoHubPath = errors.New("hub executable path not configured")

// HubLauncher starts the external hub process when the first connection
// attempt fails.
type HubLauncher interface {
	LaunchHub(ctx context.Context) error
}

// LauncherFunc adapts a function to HubLauncher.
type LauncherFunc func(ctx context.Context) error

func (f LauncherFunc) LaunchHub(ctx context.Context) error {
	return f(ctx)
}

// CommandLauncher starts the hub executable at Path.
type CommandLauncher struct {
	Executor command.Executor
	Path     string
	Args     []string
}

// NewCommandLauncher returns a launcher for the hub at path using the
// real process executor.
func NewCommandLauncher(path string, args ...string) *CommandLauncher {
	return &CommandLauncher{
		Executor: &command.RealExecutor{},
		Path:     path,
		Args:     args,
	}
}

// LaunchHub starts the hub detached from the caller, in the directory that
// holds the executable.
func (c *CommandLauncher) LaunchHub(ctx context.Context) error {
	if c.Path == "" {
		return ErrNoHubPath
	}

	path, err := c.Executor.LookPath(c.Path)
	if err != nil {
		return fmt.Errorf("hub executable %s not found: %w", c.Path, err)
	}

	log.Info().Str("path", path).Strs("args", c.Args).Msg("starting hub process")

	// the hub must outlive the connect attempt that launched it
	err = c.Executor.StartWithOptions(
		context.WithoutCancel(ctx),
		command.StartOptions{
			Dir:        filepath.Dir(path),
			HideWindow: true,
			Detach:     true,
		},
		path,
		c.Args...,
	)
	if err != nil {
		return fmt.Errorf("failed to start hub %s: %w", path, err)
	}
	return nil
}
