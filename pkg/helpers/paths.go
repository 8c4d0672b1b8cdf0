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
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/ganglink/ganglink-core/pkg/config"
)

// ErrNoUserDirs is returned when the user's base directories can't be
// resolved.
var ErrNoUserDirs = errors.New("failed to find user directories")

// UserDirName is the folder next to the executable that, when present,
// holds every driver directory for a portable install.
const UserDirName = "user"

// Dirs are the directories the driver reads and writes.
type Dirs struct {
	ConfigDir string
	DataDir   string
	TempDir   string
	LogDir    string
}

// ExeDir returns the directory holding the running executable.
func ExeDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(exe)
}

// HasUserDir reports whether a portable user directory sits next to the
// executable, and returns its path.
func HasUserDir() (string, bool) {
	exeDir := ExeDir()
	if exeDir == "" {
		return "", false
	}

	userDir := filepath.Join(exeDir, UserDirName)
	info, err := os.Stat(userDir)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return userDir, true
}

// DefaultDirs resolves the platform directories, preferring a portable
// user directory when one exists.
func DefaultDirs() (Dirs, error) {
	if userDir, ok := HasUserDir(); ok {
		return Dirs{
			ConfigDir: userDir,
			DataDir:   userDir,
			TempDir:   filepath.Join(userDir, "tmp"),
			LogDir:    filepath.Join(userDir, "logs"),
		}, nil
	}

	if xdg.ConfigHome == "" || xdg.DataHome == "" || xdg.CacheHome == "" {
		return Dirs{}, ErrNoUserDirs
	}

	return Dirs{
		ConfigDir: filepath.Join(xdg.ConfigHome, config.AppName),
		DataDir:   filepath.Join(xdg.DataHome, config.AppName),
		TempDir:   filepath.Join(os.TempDir(), config.AppName),
		LogDir:    filepath.Join(xdg.CacheHome, config.AppName, "logs"),
	}, nil
}

// EnsureDirectories creates every directory in d.
func EnsureDirectories(d Dirs) error {
	var errs []error
	for name, dir := range map[string]string{
		"config": d.ConfigDir,
		"data":   d.DataDir,
		"temp":   d.TempDir,
		"log":    d.LogDir,
	} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			errs = append(errs, fmt.Errorf("failed to create %s directory: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
