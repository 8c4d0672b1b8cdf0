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

// Package models holds the JSON types exchanged over the control API and
// the notification stream.
package models

import "encoding/json"

const (
	NotificationLinkState    = "link.state"
	NotificationDeviceFound  = "link.device_found"
	NotificationImpedance    = "link.impedance"
	NotificationSamples      = "link.samples"
	NotificationLinkLost     = "link.lost"
	NotificationWarning      = "link.warning"
	NotificationArchiveEnded = "archive.ended"
)

// AllNotifications lists every notification method, in a stable order.
var AllNotifications = []string{
	NotificationLinkState,
	NotificationDeviceFound,
	NotificationImpedance,
	NotificationSamples,
	NotificationLinkLost,
	NotificationWarning,
	NotificationArchiveEnded,
}

type Notification struct {
	Method string
	Params json.RawMessage
}

// NotificationObject is a notification as written to clients.
type NotificationObject struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type LinkStateParams struct {
	State  string `json:"state"`
	Device string `json:"device,omitempty"`
}

type DeviceFoundParams struct {
	Name string `json:"name"`
}

type ImpedanceParams struct {
	Quality string `json:"quality"`
	Color   string `json:"color"`
	Channel int    `json:"channel"`
	Raw     int    `json:"raw"`
}

// SamplesParams carries a batch of calibrated frames in arrival order.
type SamplesParams struct {
	Frames [][4]float64 `json:"frames"`
	Replay bool         `json:"replay"`
}

type LinkLostParams struct {
	Error string `json:"error"`
}

type WarningParams struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type ArchiveEndedParams struct {
	Path   string `json:"path"`
	Frames int64  `json:"frames"`
}
