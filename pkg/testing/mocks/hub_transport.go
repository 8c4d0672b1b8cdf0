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

package mocks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ganglink/ganglink-core/pkg/ganglion/transport"
)

// FakeHub is an in-memory hub transport. Lines sent to it are recorded and
// can trigger scripted replies, which the reader then polls back. HangUp
// simulates the hub dropping the socket.
//
// Example:
//
//	hub := mocks.NewFakeHub()
//	hub.Reply("c,ganglion-1,;", "c,200,;")
type FakeHub struct {
	OpenErr   error
	onSend    func(line string)
	replies   map[string][]string
	incoming  chan []byte
	closed    chan struct{}
	openErrs  []error
	sent      []string
	opens     int
	connected bool
	hungUp    bool
	mu        sync.Mutex
}

func NewFakeHub() *FakeHub {
	return &FakeHub{
		replies:  make(map[string][]string),
		incoming: make(chan []byte, 256),
		closed:   make(chan struct{}),
	}
}

// Reply scripts the lines the hub answers with when it receives cmd.
// cmd is matched without its trailing newline.
func (h *FakeHub) Reply(cmd string, lines ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.replies[cmd] = lines
}

// Feed queues raw bytes for the next Poll.
func (h *FakeHub) Feed(data string) {
	h.incoming <- []byte(data)
}

// FailOpens makes the next Open calls return errs in order. A nil entry
// lets that Open succeed.
func (h *FakeHub) FailOpens(errs ...error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.openErrs = append(h.openErrs, errs...)
}

// OnSend registers a hook called with every line sent, after it is
// recorded.
func (h *FakeHub) OnSend(hook func(line string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onSend = hook
}

// HangUp makes Poll report the connection closed by the peer.
func (h *FakeHub) HangUp() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.connected && !h.hungUp {
		h.hungUp = true
		close(h.closed)
	}
}

func (h *FakeHub) Sent() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.sent...)
}

func (h *FakeHub) Opens() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opens
}

func (h *FakeHub) Open(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opens++
	if len(h.openErrs) > 0 {
		err := h.openErrs[0]
		h.openErrs = h.openErrs[1:]
		if err != nil {
			return err
		}
	} else if h.OpenErr != nil {
		return h.OpenErr
	}
	if !h.connected {
		h.connected = true
		h.hungUp = false
		h.closed = make(chan struct{})
	}
	return nil
}

func (h *FakeHub) SendLine(line string) error {
	h.mu.Lock()
	if !h.connected {
		h.mu.Unlock()
		return transport.ErrNotConnected
	}
	h.sent = append(h.sent, line)
	replies := h.replies[strings.TrimSuffix(line, "\n")]
	hook := h.onSend
	h.mu.Unlock()

	for _, reply := range replies {
		h.Feed(reply + "\n")
	}
	if hook != nil {
		hook(line)
	}
	return nil
}

func (h *FakeHub) Poll(timeout time.Duration) ([]byte, error) {
	h.mu.Lock()
	if !h.connected {
		h.mu.Unlock()
		return nil, transport.ErrNotConnected
	}
	closed := h.closed
	h.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data := <-h.incoming:
		return data, nil
	case <-closed:
		return nil, transport.ErrClosed
	case <-timer.C:
		return nil, nil
	}
}

func (h *FakeHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.connected {
		h.connected = false
		if !h.hungUp {
			close(h.closed)
		}
	}
	return nil
}

func (h *FakeHub) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

var _ transport.Transport = (*FakeHub)(nil)

// ErrHubDown is a convenience error for scripting open failures.
var ErrHubDown = errors.New("connection refused")
