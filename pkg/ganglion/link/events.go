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

import "github.com/rs/zerolog/log"

// EventKind identifies what an Event reports.
type EventKind int

const (
	EventStateChanged EventKind = iota
	EventDeviceFound
	EventImpedance
	EventHardwareWarning
	EventLinkError
	EventLinkLost
)

func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "state_changed"
	case EventDeviceFound:
		return "device_found"
	case EventImpedance:
		return "impedance"
	case EventHardwareWarning:
		return "hardware_warning"
	case EventLinkError:
		return "link_error"
	case EventLinkLost:
		return "link_lost"
	default:
		return "unknown"
	}
}

// Event is sent to the host whenever the link's observable state changes.
type Event struct {
	Err       error
	Device    string
	Message   string
	Impedance Impedance
	Channel   int
	Kind      EventKind
	State     State
}

// emit delivers ev without blocking the reader. A full channel drops the
// event.
func (l *Link) emit(ev Event) {
	if ev.Kind == EventImpedance && l.onImpedance != nil {
		l.onImpedance(ev.Channel, ev.Impedance)
	}

	if l.events == nil {
		return
	}
	select {
	case l.events <- ev:
	default:
		log.Warn().Str("event", ev.Kind.String()).Msg("link event channel full, dropping event")
	}
}
