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
	"testing"

	"github.com/ganglink/ganglink-core/pkg/helpers/command"
	"github.com/ganglink/ganglink-core/pkg/testing/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCommandLauncherStartsHub(t *testing.T) {
	t.Parallel()

	exec := &mocks.MockCommandExecutor{}
	exec.On("LookPath", "GanglionHub").Return("/opt/ganglion/GanglionHub", nil)
	exec.On("StartWithOptions",
		mock.Anything,
		command.StartOptions{Dir: "/opt/ganglion", HideWindow: true, Detach: true},
		"/opt/ganglion/GanglionHub",
		[]string{"--port", "10996"},
	).Return(nil)

	launcher := &CommandLauncher{
		Executor: exec,
		Path:     "GanglionHub",
		Args:     []string{"--port", "10996"},
	}

	ctx, cancel := context.WithCancel(t.Context())
	require.NoError(t, launcher.LaunchHub(ctx))
	cancel()

	exec.AssertExpectations(t)

	started, ok := exec.Calls[1].Arguments.Get(0).(context.Context)
	require.True(t, ok)
	assert.NoError(t, started.Err(), "hub context must not follow the caller's cancellation")
}

func TestCommandLauncherWithoutPath(t *testing.T) {
	t.Parallel()

	exec := &mocks.MockCommandExecutor{}
	launcher := &CommandLauncher{Executor: exec}

	require.ErrorIs(t, launcher.LaunchHub(t.Context()), ErrNoHubPath)
	exec.AssertNotCalled(t, "StartWithOptions")
}

func TestCommandLauncherMissingExecutable(t *testing.T) {
	t.Parallel()

	notFound := errors.New("executable file not found")
	exec := &mocks.MockCommandExecutor{}
	exec.On("LookPath", "/missing/hub").Return("", notFound)

	launcher := &CommandLauncher{Executor: exec, Path: "/missing/hub"}

	err := launcher.LaunchHub(t.Context())

	require.ErrorIs(t, err, notFound)
	exec.AssertNotCalled(t, "StartWithOptions")
}

func TestCommandLauncherStartFailure(t *testing.T) {
	t.Parallel()

	failed := errors.New("permission denied")
	exec := &mocks.MockCommandExecutor{}
	exec.On("LookPath", "/opt/hub").Return("/opt/hub", nil)
	exec.On("StartWithOptions", mock.Anything, mock.Anything, "/opt/hub", mock.Anything).Return(failed)

	launcher := NewCommandLauncher("/opt/hub")
	launcher.Executor = exec

	err := launcher.LaunchHub(t.Context())

	require.ErrorIs(t, err, failed)
}

func TestNewCommandLauncherUsesRealExecutor(t *testing.T) {
	t.Parallel()

	launcher := NewCommandLauncher("/opt/hub", "-v")

	assert.IsType(t, &command.RealExecutor{}, launcher.Executor)
	assert.Equal(t, []string{"-v"}, launcher.Args)
}
