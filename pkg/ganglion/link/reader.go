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
	"fmt"
	"slices"
	"time"

	"github.com/ganglink/ganglink-core/pkg/ganglion/protocol"
	"github.com/ganglink/ganglink-core/pkg/ganglion/samples"
	"github.com/rs/zerolog/log"
)

// MaxDeviceNameLength is the longest device name kept in the list.
const MaxDeviceNameLength = 20

const readerStopGrace = time.Second

// startReader launches the reader goroutine unless one is already running.
func (l *Link) startReader() {
	l.readerMu.Lock()
	defer l.readerMu.Unlock()

	if l.readerDone != nil {
		select {
		case <-l.readerDone:
		default:
			return
		}
	}

	l.stopping.Store(false)
	stop := make(chan struct{})
	done := make(chan struct{})
	l.readerStop = stop
	l.readerDone = done

	go l.readLoop(stop, done)
}

// stopReader signals the reader and waits for it to exit. If it does not
// exit in time the transport is closed under it.
func (l *Link) stopReader() {
	l.readerMu.Lock()
	stop, done := l.readerStop, l.readerDone
	l.readerStop, l.readerDone = nil, nil
	l.readerMu.Unlock()

	if done == nil {
		return
	}

	l.stopping.Store(true)
	close(stop)

	timer := time.NewTimer(readerStopGrace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		log.Warn().Msg("reader did not stop in time, closing transport")
		if err := l.transport.Close(); err != nil {
			log.Debug().Err(err).Msg("error closing transport")
		}
		<-done
	}
}

func (l *Link) readLoop(stop <-chan struct{}, done chan<- struct{}) {
	var lost error
	defer func() {
		close(done)
		if lost != nil {
			l.linkLost(lost)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic in reader loop")
		}
	}()

	log.Debug().Msg("reader loop started")
	var buf protocol.LineBuffer

loop:
	for !l.stopping.Load() {
		if !l.transport.Connected() {
			if !l.pause(stop, l.timing.NotConnectedSleep) {
				break
			}
			continue
		}

		data, err := l.transport.Poll(l.timing.PollTimeout)
		switch {
		case err != nil:
			if !l.stopping.Load() {
				lost = err
			}
			break loop
		case len(data) == 0:
			if !l.pause(stop, l.timing.IdleSleep) {
				break loop
			}
			continue
		}

		_, _ = buf.Write(data)
		for _, line := range buf.Lines() {
			l.HandleMessage(protocol.Classify(line))
		}
	}

	log.Debug().Msg("reader loop stopped")
}

// pause sleeps for d and reports false if stop was signalled first.
func (l *Link) pause(stop <-chan struct{}, d time.Duration) bool {
	select {
	case <-stop:
		return false
	case <-l.clock.After(d):
		return true
	}
}

func (l *Link) linkLost(err error) {
	log.Error().Err(err).Msg("hub connection lost")

	if cerr := l.transport.Close(); cerr != nil {
		log.Debug().Err(cerr).Msg("error closing transport after link loss")
	}

	l.mu.Lock()
	l.linkErrors++
	changed := l.setStateLocked(StateIdle)
	if !changed {
		l.notifyLocked()
	}
	l.mu.Unlock()

	if changed {
		l.emit(Event{Kind: EventStateChanged, State: StateIdle})
	}
	l.emit(Event{Kind: EventLinkLost, Err: fmt.Errorf("%w: %w", ErrLinkLost, err)})
}

// HandleMessage applies one classified inbound message to the link. The
// reader calls it for every complete line.
func (l *Link) HandleMessage(msg protocol.Message) {
	switch msg.Kind {
	case protocol.KindSamples:
		l.handleSamples(msg)
	case protocol.KindDeviceFound:
		l.handleDeviceFound(msg.Device)
	case protocol.KindImpedance:
		l.handleImpedance(msg)
	case protocol.KindConnected:
		l.handleConnected()
	case protocol.KindLinkError:
		l.handleLinkError(msg)
	case protocol.KindHardwareWarning:
		log.Warn().Str("line", msg.Raw).Msg("hub reported hardware connectivity warning")
		l.emit(Event{Kind: EventHardwareWarning, Message: msg.Raw})
	default:
		log.Trace().Str("line", msg.Raw).Msg("ignoring unrecognised line")
	}
}

func (l *Link) handleSamples(msg protocol.Message) {
	frame, err := samples.FrameFromInts(msg.Integers)
	if err != nil {
		log.Debug().Err(err).Str("line", msg.Raw).Msg("dropping sample line")
		return
	}

	l.mu.Lock()
	l.lastFrame = frame
	l.hasFrame = true
	changed := l.setStateLocked(StateReading)
	l.mu.Unlock()
	if changed {
		l.emit(Event{Kind: EventStateChanged, State: StateReading})
	}

	l.pipeline.Process(frame)
}

func (l *Link) handleDeviceFound(name string) {
	if name == "" {
		return
	}
	if len(name) > MaxDeviceNameLength {
		name = name[:MaxDeviceNameLength]
	}

	l.mu.Lock()
	changed := l.setStateLocked(StateScanning)
	added := false
	if !slices.Contains(l.devices, name) {
		if len(l.devices) < MaxDevices {
			l.devices = append(l.devices, name)
			added = true
		} else {
			log.Warn().Str("device", name).Int("max", MaxDevices).Msg("device list full, ignoring device")
		}
	}
	l.mu.Unlock()

	if changed {
		l.emit(Event{Kind: EventStateChanged, State: StateScanning})
	}
	if added {
		log.Info().Str("device", name).Msg("device found")
		l.emit(Event{Kind: EventDeviceFound, Device: name})
	}
}

func (l *Link) handleImpedance(msg protocol.Message) {
	channel, imp, ok := impedanceReading(msg.Integers)
	if !ok {
		log.Debug().Str("line", msg.Raw).Msg("dropping impedance line")
		return
	}

	l.mu.Lock()
	l.impedance[channel] = imp
	l.mu.Unlock()

	l.emit(Event{Kind: EventImpedance, Channel: channel, Impedance: imp})
}

func (l *Link) handleConnected() {
	l.mu.Lock()
	changed := l.setStateLocked(StateConnected)
	target := l.target
	l.mu.Unlock()

	if changed {
		log.Info().Str("device", target).Msg("device connected")
		l.emit(Event{Kind: EventStateChanged, State: StateConnected, Device: target})
	}
}

func (l *Link) handleLinkError(msg protocol.Message) {
	log.Error().Str("line", msg.Raw).Msg("hub reported link error")

	l.mu.Lock()
	l.linkErrors++
	changed := l.setStateLocked(StateIdle)
	if !changed {
		l.notifyLocked()
	}
	l.mu.Unlock()

	if changed {
		l.emit(Event{Kind: EventStateChanged, State: StateIdle})
	}
	l.emit(Event{Kind: EventLinkError, Message: msg.Raw})
}
