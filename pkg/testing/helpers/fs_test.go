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
	"testing"

	"github.com/ganglink/ganglink-core/pkg/archive"
	"github.com/ganglink/ganglink-core/pkg/config"
	"github.com/ganglink/ganglink-core/pkg/testing/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteArchiveReadsBack(t *testing.T) {
	t.Parallel()

	h := NewMemoryFS()
	path := "/data/archives/fixture.gla"
	require.NoError(t, h.WriteArchive(path, fixtures.SampleFrames))

	assert.True(t, h.FileExists(path))
	files, err := h.ListFiles("/data/archives")
	require.NoError(t, err)
	assert.Equal(t, []string{"fixture.gla"}, files)

	a := archive.New(h.Fs)
	require.NoError(t, a.BeginRead(path))
	defer func() { assert.NoError(t, a.Close()) }()

	assert.Equal(t, int64(len(fixtures.SampleFrames)), a.Length())
	for _, want := range fixtures.SampleFrames {
		got, err := a.ReadNextFrame()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestNewConfigWritesDefaults(t *testing.T) {
	t.Parallel()

	h := NewMemoryFS()
	cfg, err := h.NewConfig("/cfg", config.BaseDefaults)
	require.NoError(t, err)

	assert.True(t, h.FileExists(cfg.Path()))
	assert.Equal(t, config.DefaultHubPort, cfg.HubPort())
}
