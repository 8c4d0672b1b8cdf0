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

// Package link drives one Ganglion device through the hub: connection state
// machine, background reader, sample pipeline and archive sessions.
package link

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ganglink/ganglink-core/pkg/archive"
	"github.com/ganglink/ganglink-core/pkg/ganglion/protocol"
	"github.com/ganglink/ganglink-core/pkg/ganglion/samples"
	"github.com/ganglink/ganglink-core/pkg/ganglion/transport"
	"github.com/ganglink/ganglink-core/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// MaxDevices caps the discovered device list.
const MaxDevices = 25

var (
	// ErrHubUnavailable is returned when the hub cannot be reached, even
	// after trying to launch it.
	ErrHubUnavailable = errors.New("hub unavailable")
	// ErrLinkLost reports that the hub connection died under the reader.
	ErrLinkLost = errors.New("hub link lost")
	// ErrConnectTimeout is returned when the device never confirms a
	// connection.
	ErrConnectTimeout = errors.New("timed out waiting for device connection")
	// ErrConnectRefused is returned when the hub reports a link error
	// while a connection is pending.
	ErrConnectRefused = errors.New("hub reported connection error")
	// ErrNoDevice is returned when connecting without a device name.
	ErrNoDevice = errors.New("no device name given")
	// ErrLinkClosed is returned by a Connect that Close interrupted.
	ErrLinkClosed = errors.New("link closed")
)

// Timing holds the pacing used around protocol commands and by the reader.
type Timing struct {
	// PollTimeout bounds each transport poll.
	PollTimeout time.Duration
	// IdleSleep is the pause after an empty poll.
	IdleSleep time.Duration
	// NotConnectedSleep is the pause while the transport is down.
	NotConnectedSleep time.Duration
	// ScanStartDelay follows the scan start command.
	ScanStartDelay time.Duration
	// ScanStopDelay follows the scan stop issued before connecting.
	ScanStopDelay time.Duration
	// BLEStartDelay separates the BLE start and connect commands.
	BLEStartDelay time.Duration
	// ConnectTimeout bounds the wait for the connect confirmation.
	ConnectTimeout time.Duration
	// DisconnectDelay lets the disconnect command flush before teardown.
	DisconnectDelay time.Duration
	// HubStartDelay is the wait between launching the hub and retrying.
	HubStartDelay time.Duration
	// ReaderStartDelay follows starting the reader.
	ReaderStartDelay time.Duration
}

// DefaultTiming returns the hub's expected pacing.
func DefaultTiming() Timing {
	return Timing{
		PollTimeout:       transport.DefaultPollTimeout,
		IdleSleep:         5 * time.Millisecond,
		NotConnectedSleep: 100 * time.Millisecond,
		ScanStartDelay:    100 * time.Millisecond,
		ScanStopDelay:     400 * time.Millisecond,
		BLEStartDelay:     100 * time.Millisecond,
		ConnectTimeout:    5 * time.Second,
		DisconnectDelay:   100 * time.Millisecond,
		HubStartDelay:     2 * time.Second,
		ReaderStartDelay:  100 * time.Millisecond,
	}
}

// Options configures a Link. Transport is required; everything else has a
// usable default.
type Options struct {
	Transport   transport.Transport
	Clock       clockwork.Clock
	Archive     *archive.Archive
	Launcher    HubLauncher
	Events      chan<- Event
	OnImpedance ImpedanceHandler
	Outputs     []samples.Output
	Timing      Timing
}

// Snapshot is a consistent copy of the link's shared state.
type Snapshot struct {
	Target    string
	Devices   []string
	Archive   archive.Info
	Impedance ImpedanceTable
	LastFrame samples.Frame
	HasFrame  bool
	State     State
}

// Link is one device link: it owns the hub transport, the reader goroutine
// and the archive.
type Link struct {
	transport   transport.Transport
	clock       clockwork.Clock
	archive     *archive.Archive
	launcher    HubLauncher
	pipeline    *samples.Pipeline
	events      chan<- Event
	onImpedance ImpedanceHandler
	stateCh     chan struct{}
	// closing is closed by Close to abort a pending Connect. Open replaces
	// it.
	closing    chan struct{}
	readerStop chan struct{}
	readerDone chan struct{}
	target     string
	devices    []string
	timing     Timing
	linkErrors uint64
	impedance  ImpedanceTable
	lastFrame  samples.Frame
	hasFrame   bool
	state      State
	stopping   atomic.Bool
	mu         syncutil.RWMutex
	cmdMu      syncutil.Mutex
	readerMu   syncutil.Mutex
}

// New returns an idle link. Call Open to connect to the hub.
//
//nolint:gocritic // options struct copied once at construction
func New(opts Options) *Link {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Archive == nil {
		opts.Archive = archive.New(afero.NewOsFs())
	}
	if opts.Timing == (Timing{}) {
		opts.Timing = DefaultTiming()
	}

	return &Link{
		transport:   opts.Transport,
		clock:       opts.Clock,
		archive:     opts.Archive,
		launcher:    opts.Launcher,
		pipeline:    samples.NewPipeline(opts.Archive, opts.Outputs...),
		events:      opts.Events,
		onImpedance: opts.OnImpedance,
		timing:      opts.Timing,
		stateCh:     make(chan struct{}),
		closing:     make(chan struct{}),
		state:       StateIdle,
	}
}

// Open connects to the hub and starts the reader. If the hub is not
// reachable the launcher is asked to start it once, and the connection is
// retried once after HubStartDelay.
func (l *Link) Open(ctx context.Context) error {
	l.mu.Lock()
	select {
	case <-l.closing:
		l.closing = make(chan struct{})
	default:
	}
	l.mu.Unlock()

	err := l.transport.Open(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not connect to hub")

		if l.launcher == nil {
			return fmt.Errorf("%w: %w", ErrHubUnavailable, err)
		}
		if lerr := l.launcher.LaunchHub(ctx); lerr != nil {
			log.Error().Err(lerr).Msg("could not start hub")
			return fmt.Errorf("%w: %w", ErrHubUnavailable, errors.Join(err, lerr))
		}

		log.Info().Dur("delay", l.timing.HubStartDelay).Msg("hub launched, retrying connection")
		if werr := l.wait(ctx, l.timing.HubStartDelay); werr != nil {
			return werr
		}
		if err = l.transport.Open(ctx); err != nil {
			log.Error().Err(err).Msg("connection to hub failed after launch")
			return fmt.Errorf("%w: %w", ErrHubUnavailable, err)
		}
	}

	l.startReader()
	return l.wait(ctx, l.timing.ReaderStartDelay)
}

// Close disconnects the device, stops the reader, and releases the
// transport and archive. It always attempts every step.
func (l *Link) Close() error {
	l.mu.Lock()
	select {
	case <-l.closing:
	default:
		close(l.closing)
	}
	l.mu.Unlock()

	l.cmdMu.Lock()
	defer l.cmdMu.Unlock()

	var errs []error

	if l.transport.Connected() {
		if err := l.send(protocol.CmdDisconnect); err != nil {
			errs = append(errs, err)
		}
		l.clock.Sleep(l.timing.DisconnectDelay)
	}

	l.stopReader()

	if err := l.transport.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := l.archive.Close(); err != nil {
		errs = append(errs, err)
	}

	l.transition(StateIdle)
	l.resetImpedance()

	return errors.Join(errs...)
}

// Snapshot returns a copy of the shared link state.
func (l *Link) Snapshot() Snapshot {
	l.mu.RLock()
	s := Snapshot{
		State:     l.state,
		Target:    l.target,
		Devices:   append([]string(nil), l.devices...),
		Impedance: l.impedance,
		LastFrame: l.lastFrame,
		HasFrame:  l.hasFrame,
	}
	l.mu.RUnlock()

	s.Archive = l.archive.Info()
	return s
}

// State returns the current connection state.
func (l *Link) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Devices returns the discovered device names in discovery order.
func (l *Link) Devices() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.devices...)
}

// Impedance returns the latest impedance reading per channel.
func (l *Link) Impedance() ImpedanceTable {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.impedance
}

// Archive returns the link's archive.
func (l *Link) Archive() *archive.Archive {
	return l.archive
}

// Connect asks the hub to connect to the named device and waits for the
// device to confirm. A running scan is stopped first. Connecting while
// already connected does nothing.
func (l *Link) Connect(ctx context.Context, name string) error {
	if name == "" {
		return ErrNoDevice
	}

	l.cmdMu.Lock()
	defer l.cmdMu.Unlock()

	if l.State() == StateScanning {
		if err := l.stopScanLocked(); err != nil {
			return err
		}
	}

	if l.State().IsConnected() {
		log.Debug().Str("device", name).Msg("already connected, skipping connect")
		return nil
	}

	l.mu.Lock()
	l.target = name
	gen := l.linkErrors
	closing := l.closing
	l.mu.Unlock()
	l.resetImpedance()

	log.Info().Str("device", name).Msg("connecting to device")

	if err := l.send(protocol.CmdBLEStart); err != nil {
		return err
	}
	if err := l.waitOrClose(ctx, closing, l.timing.BLEStartDelay); err != nil {
		return err
	}
	if err := l.send(protocol.ConnectCommand(name)); err != nil {
		return err
	}

	return l.awaitConnected(ctx, closing, gen)
}

// awaitConnected blocks until the reader reports the connection, the hub
// reports a link error, the timeout expires or the link is closed.
func (l *Link) awaitConnected(ctx context.Context, closing <-chan struct{}, gen uint64) error {
	timer := l.clock.NewTimer(l.timing.ConnectTimeout)
	defer timer.Stop()

	for {
		l.mu.RLock()
		state, errs, changed := l.state, l.linkErrors, l.stateCh
		l.mu.RUnlock()

		if state.IsConnected() {
			return nil
		}
		if errs != gen {
			return ErrConnectRefused
		}

		select {
		case <-changed:
		case <-timer.Chan():
			log.Warn().Dur("timeout", l.timing.ConnectTimeout).Msg("device did not confirm connection")
			return ErrConnectTimeout
		case <-ctx.Done():
			return fmt.Errorf("connect cancelled: %w", ctx.Err())
		case <-closing:
			return ErrLinkClosed
		}
	}
}

// Disconnect tells the hub to drop the device connection.
func (l *Link) Disconnect() error {
	l.cmdMu.Lock()
	defer l.cmdMu.Unlock()

	err := l.send(protocol.CmdDisconnect)
	l.clock.Sleep(l.timing.DisconnectDelay)

	l.transition(StateIdle)
	l.resetImpedance()
	return err
}

// Scan starts a device scan, clearing previously discovered devices. It is
// a no-op while a scan is already running.
func (l *Link) Scan() error {
	l.cmdMu.Lock()
	defer l.cmdMu.Unlock()

	l.mu.Lock()
	if l.state == StateScanning {
		l.mu.Unlock()
		return nil
	}
	prev := l.state
	l.devices = nil
	changed := l.setStateLocked(StateScanning)
	l.mu.Unlock()

	if changed {
		l.emit(Event{Kind: EventStateChanged, State: StateScanning})
	}

	if err := l.send(protocol.CmdScanStart); err != nil {
		l.transition(prev)
		return err
	}
	l.clock.Sleep(l.timing.ScanStartDelay)
	return nil
}

// StopScan ends a running scan.
func (l *Link) StopScan() error {
	l.cmdMu.Lock()
	defer l.cmdMu.Unlock()
	return l.stopScanLocked()
}

func (l *Link) stopScanLocked() error {
	if err := l.send(protocol.CmdScanStop); err != nil {
		return err
	}
	l.clock.Sleep(l.timing.ScanStopDelay)
	l.transition(StateIdle)
	return nil
}

// StartData starts sample streaming.
func (l *Link) StartData() error {
	return l.send(protocol.CmdDataStart)
}

// StopData stops sample streaming.
func (l *Link) StopData() error {
	err := l.send(protocol.CmdDataStop)

	l.mu.Lock()
	changed := l.state == StateReading && l.setStateLocked(StateConnected)
	l.mu.Unlock()
	if changed {
		l.emit(Event{Kind: EventStateChanged, State: StateConnected})
	}
	return err
}

// StartImpedance starts impedance streaming.
func (l *Link) StartImpedance() error {
	return l.send(protocol.CmdImpStart)
}

// StopImpedance stops impedance streaming.
func (l *Link) StopImpedance() error {
	return l.send(protocol.CmdImpStop)
}

// StartAccel starts accelerometer streaming.
func (l *Link) StartAccel() error {
	return l.send(protocol.CmdAccelStart)
}

// StopAccel stops accelerometer streaming.
func (l *Link) StopAccel() error {
	return l.send(protocol.CmdAccelStop)
}

func (l *Link) send(line string) error {
	if err := l.transport.SendLine(line); err != nil {
		return fmt.Errorf("send %q: %w", strings.TrimSpace(line), err)
	}
	return nil
}

// wait pauses for d or until ctx is done.
func (l *Link) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-l.clock.After(d):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait cancelled: %w", ctx.Err())
	}
}

func (l *Link) waitOrClose(ctx context.Context, closing <-chan struct{}, d time.Duration) error {
	select {
	case <-closing:
		return ErrLinkClosed
	default:
	}
	if d <= 0 {
		return nil
	}
	select {
	case <-l.clock.After(d):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait cancelled: %w", ctx.Err())
	case <-closing:
		return ErrLinkClosed
	}
}

// setStateLocked changes the state and wakes waiters. Caller holds mu.
func (l *Link) setStateLocked(s State) bool {
	if l.state == s {
		return false
	}
	log.Info().Str("from", l.state.String()).Str("to", s.String()).Msg("link state changed")
	l.state = s
	l.notifyLocked()
	return true
}

// notifyLocked wakes everything waiting on a state change. Caller holds mu.
func (l *Link) notifyLocked() {
	close(l.stateCh)
	l.stateCh = make(chan struct{})
}

func (l *Link) transition(s State) {
	l.mu.Lock()
	changed := l.setStateLocked(s)
	l.mu.Unlock()
	if changed {
		l.emit(Event{Kind: EventStateChanged, State: s})
	}
}

func (l *Link) resetImpedance() {
	l.mu.Lock()
	l.impedance = ImpedanceTable{}
	l.mu.Unlock()
}
