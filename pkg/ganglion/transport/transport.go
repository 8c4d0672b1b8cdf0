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

// Package transport owns the TCP connection to the local Ganglion hub.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/ganglink/ganglink-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultHost and DefaultPort locate the hub process.
	DefaultHost = "localhost"
	DefaultPort = 10996
	// DefaultPollTimeout bounds a single Poll call.
	DefaultPollTimeout = 50 * time.Millisecond

	dialTimeout  = 3 * time.Second
	writeTimeout = 2 * time.Second
	readSize     = 8192
)

var (
	// ErrNotConnected is returned when sending without an open connection.
	ErrNotConnected = errors.New("hub transport not connected")
	// ErrClosed is returned by Poll once the socket is no longer viable.
	ErrClosed = errors.New("hub connection closed")
)

// Stage identifies which step of Open failed.
type Stage string

const (
	StageResolve  Stage = "resolve"
	StageOpen     Stage = "open"
	StageRegister Stage = "register"
)

// ConnectError reports a failed Open, tagged with the failing stage.
type ConnectError struct {
	Err   error
	Stage Stage
	Addr  string
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("hub connect %s %s: %v", e.Stage, e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Transport is the connection used by a device link.
type Transport interface {
	// Open connects to the hub. It does not retry.
	Open(ctx context.Context) error
	// SendLine writes one protocol line.
	SendLine(line string) error
	// Poll waits up to timeout for data. It returns (nil, nil) when nothing
	// arrived and ErrClosed when the connection is gone.
	Poll(timeout time.Duration) ([]byte, error)
	// Close releases the connection. Safe to call repeatedly.
	Close() error
	// Connected reports whether the connection is open.
	Connected() bool
}

// TCP is a Transport over a TCP socket.
type TCP struct {
	conn     net.Conn
	resolver *net.Resolver
	host     string
	port     int
	readBuf  []byte
	mu       syncutil.RWMutex
	writeMu  syncutil.Mutex
}

// NewTCP returns a transport for host:port. Empty host or zero port fall
// back to the hub defaults.
func NewTCP(host string, port int) *TCP {
	if host == "" {
		host = DefaultHost
	}
	if port == 0 {
		port = DefaultPort
	}
	return &TCP{
		host:     host,
		port:     port,
		resolver: net.DefaultResolver,
		readBuf:  make([]byte, readSize),
	}
}

// Addr returns the configured host:port.
func (t *TCP) Addr() string {
	return net.JoinHostPort(t.host, strconv.Itoa(t.port))
}

func (t *TCP) Open(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return nil
	}

	addr := t.Addr()

	ips, err := t.resolver.LookupIPAddr(ctx, t.host)
	if err != nil {
		return &ConnectError{Stage: StageResolve, Addr: addr, Err: err}
	}
	if len(ips) == 0 {
		return &ConnectError{Stage: StageResolve, Addr: addr, Err: errors.New("no addresses")}
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	target := net.JoinHostPort(ips[0].IP.String(), strconv.Itoa(t.port))
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return &ConnectError{Stage: StageOpen, Addr: addr, Err: err}
	}

	if err := register(conn); err != nil {
		_ = conn.Close()
		return &ConnectError{Stage: StageRegister, Addr: addr, Err: err}
	}

	t.conn = conn
	log.Info().Str("addr", addr).Str("remote", conn.RemoteAddr().String()).Msg("connected to hub")
	return nil
}

// register prepares the socket for short polling reads.
func register(conn net.Conn) error {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := tcp.SetNoDelay(true); err != nil {
		return fmt.Errorf("set no delay: %w", err)
	}
	if err := tcp.SetKeepAlive(true); err != nil {
		return fmt.Errorf("set keepalive: %w", err)
	}
	return nil
}

func (t *TCP) SendLine(line string) error {
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	log.Debug().Str("line", line).Msg("hub send")

	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := io.WriteString(conn, line); err != nil {
		return fmt.Errorf("failed to send line: %w", err)
	}
	return nil
}

func (t *TCP) Poll(timeout time.Duration) ([]byte, error) {
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()

	if conn == nil {
		return nil, ErrClosed
	}

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, ErrClosed
	}

	n, err := conn.Read(t.readBuf)
	if n > 0 {
		out := make([]byte, n)
		copy(out, t.readBuf[:n])
		return out, nil
	}

	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, os.ErrDeadlineExceeded):
		return nil, nil
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		return nil, ErrClosed
	default:
		return nil, fmt.Errorf("%w: %w", ErrClosed, err)
	}
}

func (t *TCP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}

	err := t.conn.Close()
	t.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close hub connection: %w", err)
	}
	log.Info().Str("addr", t.Addr()).Msg("hub connection closed")
	return nil
}

func (t *TCP) Connected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.conn != nil
}
