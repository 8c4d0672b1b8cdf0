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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForEvent(t *testing.T, ch <-chan Event, kind EventKind) Event {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %s event received", kind)
			return Event{}
		}
	}
}

func TestReaderDispatchesSplitLines(t *testing.T) {
	t.Parallel()

	tl := newTestLink(t)
	require.NoError(t, tl.Open(t.Context()))
	defer func() { assert.NoError(t, tl.Close()) }()

	tl.tr.Feed("s,201,ganglion-a,;\ns,2")
	tl.tr.Feed("01,ganglion-b,;\nc,2")
	tl.tr.Feed("00,;\n")

	assert.Eventually(t, func() bool {
		return tl.State() == StateConnected
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"ganglion-a", "ganglion-b"}, tl.Devices())
}

func TestReaderStreamsSamplesInOrder(t *testing.T) {
	t.Parallel()

	tl := newTestLink(t)
	require.NoError(t, tl.Open(t.Context()))
	defer func() { assert.NoError(t, tl.Close()) }()

	tl.tr.Feed("c,200,;\nt,204,0,1,1,1,1;\nt,204,1,2,2,2,2;\n")
	tl.tr.Feed("t,204,2,3,3,3,3;\n")

	assert.Eventually(t, func() bool {
		return len(tl.out.Values()) == 3
	}, 2*time.Second, 5*time.Millisecond)

	got := tl.out.Values()
	for i, v := range got {
		want := float64(i+1) * 0.0018699498629276496
		assert.InDelta(t, want, v[0], 1e-12, "frame %d", i)
	}
	assert.Equal(t, StateReading, tl.State())
}

func TestReaderReportsLinkLoss(t *testing.T) {
	t.Parallel()

	tl := newTestLink(t)
	require.NoError(t, tl.Open(t.Context()))
	tl.tr.Feed("c,200,;\n")
	assert.Eventually(t, func() bool {
		return tl.State() == StateConnected
	}, 2*time.Second, 5*time.Millisecond)

	tl.tr.HangUp()

	ev := waitForEvent(t, tl.events, EventLinkLost)
	require.ErrorIs(t, ev.Err, ErrLinkLost)
	assert.Equal(t, StateIdle, tl.State())
	assert.False(t, tl.tr.Connected())

	require.NoError(t, tl.Close())
	assert.Empty(t, tl.tr.Sent())
}

func TestReaderRestartsAfterLinkLoss(t *testing.T) {
	t.Parallel()

	tl := newTestLink(t)
	require.NoError(t, tl.Open(t.Context()))
	tl.tr.HangUp()
	waitForEvent(t, tl.events, EventLinkLost)

	require.NoError(t, tl.Open(t.Context()))
	defer func() { assert.NoError(t, tl.Close()) }()

	tl.tr.Feed("c,200,;\n")
	assert.Eventually(t, func() bool {
		return tl.State() == StateConnected
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCloseStopsReaderPromptly(t *testing.T) {
	t.Parallel()

	tl := newTestLink(t)
	require.NoError(t, tl.Open(t.Context()))

	start := time.Now()
	require.NoError(t, tl.Close())

	assert.Less(t, time.Since(start), readerStopGrace)
	tl.readerMu.Lock()
	defer tl.readerMu.Unlock()
	assert.Nil(t, tl.readerDone)
}

func TestReaderWaitsWhileTransportDown(t *testing.T) {
	t.Parallel()

	tl := newTestLink(t)
	tl.startReader()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateIdle, tl.State())

	tl.stopReader()
	assert.Empty(t, drainEvents(tl.events))
}
