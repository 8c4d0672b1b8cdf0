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

package fixtures

import (
	"fmt"
	"strings"

	"github.com/ganglink/ganglink-core/pkg/ganglion/samples"
)

// Common test frame fixtures for use in tests

// SampleFrames is a short session with distinct, signed channel values.
var SampleFrames = []samples.Frame{
	{0, 100, -200, 300, -400},
	{1, 101, -201, 301, -401},
	{2, 102, -202, 302, -402},
	{3, -8388608, 8388607, 0, 1},
}

// SampleLine formats f as the hub's sample message.
func SampleLine(f samples.Frame) string {
	return fmt.Sprintf("t,204,%d,%d,%d,%d,%d;", f[0], f[1], f[2], f[3], f[4])
}

// SampleLines formats frames as newline separated hub output.
func SampleLines(frames []samples.Frame) string {
	var sb strings.Builder
	for _, f := range frames {
		sb.WriteString(SampleLine(f))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// DeviceLines is the hub's scan output for the named devices.
func DeviceLines(names ...string) []string {
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = "s,201," + name + ",;"
	}
	return lines
}
