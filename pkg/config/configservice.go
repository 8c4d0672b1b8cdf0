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

import (
	"net"
	"strconv"
)

const (
	DefaultAPIPort   = 7597
	DefaultRateLimit = 20
	// DefaultAPIHost keeps the API on the local machine unless api_listen
	// names another address.
	DefaultAPIHost = "127.0.0.1"
)

type Service struct {
	APIPort        *int           `toml:"api_port,omitempty"`
	RateLimit      *int           `toml:"rate_limit,omitempty"`
	Discovery      Discovery      `toml:"discovery,omitempty"`
	DeviceID       string         `toml:"device_id"`
	APIListen      string         `toml:"api_listen,omitempty"`
	AllowedOrigins []string       `toml:"allowed_origins,omitempty"`
	Publishers     Publishers     `toml:"publishers,omitempty"`
	ErrorReporting ErrorReporting `toml:"error_reporting,omitempty"`
}

// ErrorReporting sends error level logs to a Sentry project. Both fields
// must be set for anything to leave the machine.
type ErrorReporting struct {
	Enabled bool   `toml:"enabled"`
	DSN     string `toml:"dsn,omitempty"`
}

type Publishers struct {
	MQTT  []MQTTPublisher  `toml:"mqtt,omitempty"`
	Redis []RedisPublisher `toml:"redis,omitempty"`
}

type MQTTPublisher struct {
	Enabled *bool    `toml:"enabled,omitempty"`
	Broker  string   `toml:"broker"`
	Topic   string   `toml:"topic"`
	Filter  []string `toml:"filter,omitempty,multiline"`
}

type RedisPublisher struct {
	Enabled  *bool    `toml:"enabled,omitempty"`
	Addr     string   `toml:"addr"`
	Password string   `toml:"password,omitempty"`
	Prefix   string   `toml:"prefix,omitempty"`
	Filter   []string `toml:"filter,omitempty,multiline"`
	DB       int      `toml:"db,omitempty"`
}

type Discovery struct {
	Enabled      *bool  `toml:"enabled,omitempty"`
	InstanceName string `toml:"instance_name,omitempty"`
}

func (c *Instance) APIPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiPortLocked()
}

// apiPortLocked returns the API port. Caller must hold mu.
func (c *Instance) apiPortLocked() int {
	if c.vals.Service.APIPort == nil {
		return DefaultAPIPort
	}
	return *c.vals.Service.APIPort
}

func (c *Instance) SetAPIPort(port int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Service.APIPort = &port
}

func (c *Instance) APIListen() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Service.APIListen == "" {
		return net.JoinHostPort(DefaultAPIHost, strconv.Itoa(c.apiPortLocked()))
	}
	return c.vals.Service.APIListen
}

// RateLimit is the sustained API requests per second allowed per client IP.
func (c *Instance) RateLimit() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Service.RateLimit == nil || *c.vals.Service.RateLimit <= 0 {
		return DefaultRateLimit
	}
	return *c.vals.Service.RateLimit
}

func (c *Instance) AllowedOrigins() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Service.AllowedOrigins
}

func (c *Instance) GetMQTTPublishers() []MQTTPublisher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Service.Publishers.MQTT
}

func (c *Instance) GetRedisPublishers() []RedisPublisher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Service.Publishers.Redis
}

func (c *Instance) DeviceID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Service.DeviceID
}

func (c *Instance) DiscoveryEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Service.Discovery.Enabled == nil {
		return true
	}
	return *c.vals.Service.Discovery.Enabled
}

func (c *Instance) DiscoveryInstanceName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Service.Discovery.InstanceName
}

func (c *Instance) ErrorReporting() ErrorReporting {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Service.ErrorReporting
}
