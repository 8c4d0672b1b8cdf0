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

//go:build windows

package command

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// applyOptions hides the console window and detaches the process group on
// Windows.
func applyOptions(cmd *exec.Cmd, opts StartOptions) {
	attr := &syscall.SysProcAttr{HideWindow: opts.HideWindow}
	if opts.Detach {
		attr.CreationFlags |= windows.CREATE_NEW_PROCESS_GROUP
	}
	cmd.SysProcAttr = attr
}
