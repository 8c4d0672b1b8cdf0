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

package models

import "time"

type ArchiveResponse struct {
	RecordedAt *time.Time `json:"recordedAt,omitempty"`
	Path       string     `json:"path,omitempty"`
	Mode       string     `json:"mode"`
	Length     int64      `json:"length"`
	Position   int64      `json:"position"`
}

type StatusResponse struct {
	LastValues *[4]float64       `json:"lastValues,omitempty"`
	State      string            `json:"state"`
	Target     string            `json:"target,omitempty"`
	Version    string            `json:"version"`
	Devices    []string          `json:"devices"`
	Impedance  []ImpedanceParams `json:"impedance"`
	Archive    ArchiveResponse   `json:"archive"`
}

type HealthResponse struct {
	HostUptimeSeconds *float64 `json:"hostUptimeSeconds,omitempty"`
	Version           string   `json:"version"`
	UptimeSeconds     float64  `json:"uptimeSeconds"`
}

type DevicesResponse struct {
	Devices []string `json:"devices"`
}

type ConnectRequest struct {
	Name string `json:"name" validate:"devicename"`
}

type RecordRequest struct {
	Path string `json:"path" validate:"omitempty,max=255,archivepath"`
}

type ReplayRequest struct {
	Path string `json:"path" validate:"required,max=255,archivepath"`
}

type SeekRequest struct {
	Position int64 `json:"position" validate:"gte=0"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
