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

// State is the connection state of a device link.
type State int

const (
	// StateIdle means no device is connected and no scan is running.
	StateIdle State = iota
	// StateScanning means the hub is searching for devices.
	StateScanning
	// StateConnected means the hub confirmed a device connection.
	StateConnected
	// StateReading means sample frames are arriving from the device.
	StateReading
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateConnected:
		return "connected"
	case StateReading:
		return "reading"
	default:
		return "unknown"
	}
}

// IsConnected reports whether a device connection is live.
func (s State) IsConnected() bool {
	return s == StateConnected || s == StateReading
}
