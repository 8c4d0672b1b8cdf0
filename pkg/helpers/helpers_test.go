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
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/adrg/xdg"
	"github.com/ganglink/ganglink-core/pkg/config"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dirs := Dirs{
		ConfigDir: filepath.Join(root, "cfg"),
		DataDir:   filepath.Join(root, "data", "nested"),
		TempDir:   filepath.Join(root, "tmp"),
		LogDir:    filepath.Join(root, "logs"),
	}

	require.NoError(t, EnsureDirectories(dirs))

	for _, dir := range []string{dirs.ConfigDir, dirs.DataDir, dirs.TempDir, dirs.LogDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestEnsureDirectoriesInvalidPath(t *testing.T) {
	t.Parallel()

	err := EnsureDirectories(Dirs{TempDir: "/proc/invalid\x00path"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create temp directory")
}

func TestDefaultDirs(t *testing.T) {
	t.Parallel()

	dirs, err := DefaultDirs()
	if err != nil {
		t.Skipf("no user directories on this system: %v", err)
	}

	assert.NotEmpty(t, dirs.ConfigDir)
	assert.NotEmpty(t, dirs.LogDir)
	assert.Contains(t, dirs.TempDir, config.AppName)
	if _, portable := HasUserDir(); !portable {
		assert.Equal(t, filepath.Join(xdg.DataHome, config.AppName), dirs.DataDir)
		assert.Equal(t, filepath.Join(xdg.ConfigHome, config.AppName), dirs.ConfigDir)
	}
}

func TestInitLogging(t *testing.T) {
	// modifies the global logger
	saved := log.Logger
	t.Cleanup(func() { log.Logger = saved })

	logDir := filepath.Join(t.TempDir(), "logs")
	var buf bytes.Buffer

	require.NoError(t, InitLogging(logDir, []io.Writer{&buf}))
	log.Info().Str("device", "ganglion-1").Msg("hello")

	assert.Contains(t, buf.String(), `"device":"ganglion-1"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)

	buf.Reset()
	_, err := LogWriter().Write([]byte("direct\n"))
	require.NoError(t, err)
	assert.Equal(t, "direct\n", buf.String())

	data, err := os.ReadFile(filepath.Join(logDir, config.LogFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestPidFile(t *testing.T) {
	t.Parallel()

	pf := NewPidFile(t.TempDir())

	pid, err := pf.Pid()
	require.NoError(t, err)
	assert.Zero(t, pid)
	assert.False(t, pf.Running())

	require.NoError(t, pf.Create())
	pid, err = pf.Pid()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, pf.Remove())
	require.NoError(t, pf.Remove())
}

func TestPidFileGarbage(t *testing.T) {
	t.Parallel()

	pf := NewPidFile(t.TempDir())
	require.NoError(t, os.WriteFile(pf.Path(), []byte("not-a-pid"), 0o600))

	_, err := pf.Pid()
	require.Error(t, err)
	assert.False(t, pf.Running())
}

func TestPidFileStaleProcess(t *testing.T) {
	t.Parallel()

	pf := NewPidFile(t.TempDir())
	// PIDs this large are never allocated
	require.NoError(t, os.WriteFile(pf.Path(), []byte(strconv.Itoa(1<<30)), 0o600))

	assert.False(t, pf.Running())
	require.NoError(t, pf.Create())
}

func TestProcessAlive(t *testing.T) {
	t.Parallel()

	assert.True(t, ProcessAlive(os.Getpid()))
	assert.False(t, ProcessAlive(0))
	assert.False(t, ProcessAlive(-4))
}
