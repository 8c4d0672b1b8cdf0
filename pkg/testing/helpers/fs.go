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
	"path/filepath"

	"github.com/ganglink/ganglink-core/pkg/archive"
	"github.com/ganglink/ganglink-core/pkg/config"
	"github.com/ganglink/ganglink-core/pkg/ganglion/samples"
	"github.com/spf13/afero"
)

// FSHelper provides utilities for filesystem mocking in tests
type FSHelper struct {
	Fs afero.Fs
}

// NewMemoryFS creates a new in-memory filesystem for testing
func NewMemoryFS() *FSHelper {
	return &FSHelper{
		Fs: afero.NewMemMapFs(),
	}
}

// NewConfig loads a config from dir on the helper's filesystem, writing
// vals as the defaults.
//
//nolint:gocritic // config struct copied for immutability
func (h *FSHelper) NewConfig(dir string, vals config.Values) (*config.Instance, error) {
	cfg, err := config.NewConfigFs(h.Fs, dir, vals)
	if err != nil {
		return nil, fmt.Errorf("failed to create test config: %w", err)
	}
	return cfg, nil
}

// WriteArchive records frames to path as a finished archive.
func (h *FSHelper) WriteArchive(path string, frames []samples.Frame) error {
	if err := h.Fs.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for archive %s: %w", path, err)
	}

	a := archive.New(h.Fs)
	if err := a.BeginWrite(path); err != nil {
		return fmt.Errorf("failed to begin archive: %w", err)
	}
	for _, f := range frames {
		if err := a.AppendFrame(f); err != nil {
			return errors.Join(fmt.Errorf("failed to write frame: %w", err), a.Close())
		}
	}
	if err := a.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}
	return nil
}

// FileExists checks if a file exists
func (h *FSHelper) FileExists(path string) bool {
	exists, err := afero.Exists(h.Fs, path)
	if err != nil {
		return false
	}
	return exists
}

// ListFiles lists all files in a directory
func (h *FSHelper) ListFiles(path string) ([]string, error) {
	files, err := afero.ReadDir(h.Fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		names = append(names, file.Name())
	}
	return names, nil
}
