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

import (
	"strings"
	"sync"
	"time"

	"github.com/ganglink/ganglink-core/pkg/ganglion/protocol"
	"github.com/ganglink/ganglink-core/pkg/ganglion/samples"
)

// replyTo makes the hub answer any connect command with reply.
func replyTo(l *Link, reply string) func(string) {
	return func(line string) {
		if strings.HasPrefix(line, "c,") {
			go l.HandleMessage(protocol.Classify(reply))
		}
	}
}

// testTiming keeps real-clock tests fast.
func testTiming() Timing {
	return Timing{
		PollTimeout:       5 * time.Millisecond,
		IdleSleep:         time.Millisecond,
		NotConnectedSleep: 5 * time.Millisecond,
		ScanStartDelay:    time.Millisecond,
		ScanStopDelay:     time.Millisecond,
		BLEStartDelay:     time.Millisecond,
		ConnectTimeout:    time.Second,
		DisconnectDelay:   time.Millisecond,
		HubStartDelay:     time.Millisecond,
		ReaderStartDelay:  time.Millisecond,
	}
}

type collector struct {
	values []samples.Values
	mu     sync.Mutex
}

func (c *collector) PassValues(v samples.Values) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, v)
}

func (c *collector) Values() []samples.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]samples.Values(nil), c.values...)
}

func drainEvents(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventsOfKind(evs []Event, kind EventKind) []Event {
	var out []Event
	for _, ev := range evs {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}
