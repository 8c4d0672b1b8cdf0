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

package config

import "path/filepath"

type Archive struct {
	Dir        string `toml:"dir,omitempty"`
	AutoRecord bool   `toml:"auto_record,omitempty"`
}

// ArchiveDir returns the directory new recordings are written to. Relative
// paths are resolved against dataDir, and an empty setting means
// dataDir/archives.
func (c *Instance) ArchiveDir(dataDir string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := c.vals.Archive.Dir
	switch {
	case dir == "":
		return filepath.Join(dataDir, ArchiveDirName)
	case filepath.IsAbs(dir):
		return dir
	default:
		return filepath.Join(dataDir, dir)
	}
}

// AutoRecord reports whether a recording starts when a device connects.
func (c *Instance) AutoRecord() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Archive.AutoRecord
}
