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

package config

import "time"

const (
	DefaultHubHost        = "localhost"
	DefaultHubPort        = 10996
	DefaultConnectTimeout = 5 * time.Second
	DefaultPollTimeout    = 50 * time.Millisecond
)

type Hub struct {
	Port             *int     `toml:"port,omitempty"`
	ConnectTimeoutMs *int     `toml:"connect_timeout_ms,omitempty"`
	PollTimeoutMs    *int     `toml:"poll_timeout_ms,omitempty"`
	Host             string   `toml:"host"`
	ExePath          string   `toml:"exe_path,omitempty"`
	Device           string   `toml:"device,omitempty"`
	ExeArgs          []string `toml:"exe_args,omitempty"`
}

func (c *Instance) HubHost() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Hub.Host == "" {
		return DefaultHubHost
	}
	return c.vals.Hub.Host
}

func (c *Instance) HubPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Hub.Port == nil || *c.vals.Hub.Port <= 0 {
		return DefaultHubPort
	}
	return *c.vals.Hub.Port
}

func (c *Instance) SetHubPort(port int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Hub.Port = &port
}

// HubExePath is the hub executable started when the hub is not running.
// Empty disables launching.
func (c *Instance) HubExePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Hub.ExePath
}

func (c *Instance) HubExeArgs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.vals.Hub.ExeArgs...)
}

// HubDevice is the device connected to on startup, if any.
func (c *Instance) HubDevice() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Hub.Device
}

func (c *Instance) SetHubDevice(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Hub.Device = name
}

func (c *Instance) ConnectTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return millisOr(c.vals.Hub.ConnectTimeoutMs, DefaultConnectTimeout)
}

func (c *Instance) PollTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return millisOr(c.vals.Hub.PollTimeoutMs, DefaultPollTimeout)
}

func millisOr(ms *int, def time.Duration) time.Duration {
	if ms == nil || *ms <= 0 {
		return def
	}
	return time.Duration(*ms) * time.Millisecond
}
