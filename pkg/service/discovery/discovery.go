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

// Package discovery advertises the driver's control API over mDNS so
// clients on the network can find the headset without an address.
package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ganglink/ganglink-core/pkg/config"
	"github.com/ganglink/ganglink-core/pkg/helpers/syncutil"
	"github.com/grandcat/zeroconf"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ServiceType is the DNS-SD service type of the control API.
const ServiceType = "_ganglink._tcp"

const (
	retryInterval    = 30 * time.Second
	maxRetryDuration = 5 * time.Minute
)

// interfaces created by containers and VPNs are not advertised on
var virtualInterfacePrefixes = []string{
	"docker", "br-", "veth", "virbr", "lxc", "lxd",
	"cni", "flannel", "cali", "tunl", "wg",
}

func getPreferredInterfaces() ([]net.Interface, error) {
	allIfaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list network interfaces: %w", err)
	}
	return filterInterfaces(allIfaces), nil
}

// filterInterfaces keeps interfaces that are up, multicast capable, not
// loopback and not virtual.
func filterInterfaces(ifaces []net.Interface) []net.Interface {
	var preferred []net.Interface
	for _, iface := range ifaces {
		switch {
		case iface.Flags&net.FlagUp == 0,
			iface.Flags&net.FlagLoopback != 0,
			iface.Flags&net.FlagMulticast == 0,
			isVirtualInterface(iface.Name):
			continue
		}
		preferred = append(preferred, iface)
	}
	return preferred
}

func isVirtualInterface(name string) bool {
	lowerName := strings.ToLower(name)
	for _, prefix := range virtualInterfacePrefixes {
		if strings.HasPrefix(lowerName, prefix) {
			return true
		}
	}
	return false
}

// advertisement is a live mDNS registration.
type advertisement interface {
	SetText(text []string)
	Shutdown()
}

type registerFunc func(
	instance, service, domain string,
	port int,
	text []string,
	ifaces []net.Interface,
) (advertisement, error)

func zeroconfRegister(
	instance, service, domain string,
	port int,
	text []string,
	ifaces []net.Interface,
) (advertisement, error) {
	server, err := zeroconf.Register(instance, service, domain, port, text, ifaces)
	if err != nil {
		return nil, fmt.Errorf("zeroconf register: %w", err)
	}
	return server, nil
}

// Service advertises the API and keeps the connected device name in the
// TXT record.
type Service struct {
	server       advertisement
	cfg          *config.Instance
	clock        clockwork.Clock
	register     registerFunc
	interfaces   func() ([]net.Interface, error)
	cancelFunc   context.CancelFunc
	retryDone    chan struct{}
	instanceName string
	device       string
	stopped      bool
	mu           syncutil.Mutex
}

func New(cfg *config.Instance) *Service {
	return &Service{
		cfg:        cfg,
		clock:      clockwork.NewRealClock(),
		register:   zeroconfRegister,
		interfaces: getPreferredInterfaces,
	}
}

// Start begins advertising. When the network is not ready yet it keeps
// retrying in the background, so only configuration problems are errors.
func (s *Service) Start() error {
	if !s.cfg.DiscoveryEnabled() {
		log.Info().Msg("mDNS discovery disabled by configuration")
		return nil
	}

	instanceName, err := s.resolveInstanceName()
	if err != nil {
		return fmt.Errorf("resolve instance name: %w", err)
	}
	s.mu.Lock()
	s.instanceName = instanceName
	s.mu.Unlock()

	if s.tryRegister() {
		return nil
	}

	log.Info().
		Dur("retryInterval", retryInterval).
		Dur("maxDuration", maxRetryDuration).
		Msg("mDNS registration failed, retrying in background")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.mu.Lock()
	s.cancelFunc = cancel
	s.retryDone = done
	s.mu.Unlock()

	go s.retryLoop(ctx, done)
	return nil
}

func (s *Service) txtRecords() []string {
	return []string{
		"id=" + s.cfg.DeviceID(),
		"version=" + config.AppVersion,
		"device=" + s.device,
	}
}

func (s *Service) tryRegister() bool {
	port := s.cfg.APIPort()

	ifaces, err := s.interfaces()
	if err != nil {
		log.Debug().Err(err).Msg("failed to get network interfaces")
		return false
	}
	if len(ifaces) == 0 {
		log.Debug().Msg("no suitable network interfaces found for mDNS")
		return false
	}

	ifaceNames := make([]string, len(ifaces))
	for i, iface := range ifaces {
		ifaceNames[i] = iface.Name
	}

	s.mu.Lock()
	name, txt := s.instanceName, s.txtRecords()
	s.mu.Unlock()

	server, err := s.register(name, ServiceType, "local.", port, txt, ifaces)
	if err != nil {
		log.Debug().Err(err).Msg("mDNS registration attempt failed")
		return false
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		server.Shutdown()
		return false
	}
	s.server = server
	s.mu.Unlock()

	log.Info().
		Str("instance", name).
		Int("port", port).
		Str("type", ServiceType).
		Strs("interfaces", ifaceNames).
		Msg("mDNS service advertising started")
	return true
}

func (s *Service) retryLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := s.clock.NewTicker(retryInterval)
	defer ticker.Stop()
	deadline := s.clock.NewTimer(maxRetryDuration)
	defer deadline.Stop()

	for {
		select {
		case <-ticker.Chan():
			if s.tryRegister() {
				log.Info().Msg("mDNS registration succeeded after retry")
				return
			}
		case <-deadline.Chan():
			log.Warn().Msg("mDNS registration retry timed out, discovery will not be available")
			return
		case <-ctx.Done():
			return
		}
	}
}

// SetDevice publishes the connected device name. An empty name clears it.
func (s *Service) SetDevice(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == name {
		return
	}
	s.device = name
	if s.server != nil {
		s.server.SetText(s.txtRecords())
	}
}

// Stop withdraws the advertisement. It is safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel, done := s.cancelFunc, s.retryDone
	s.cancelFunc, s.retryDone = nil, nil
	server := s.server
	s.server = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if server != nil {
		log.Debug().Msg("stopping mDNS service advertising")
		server.Shutdown()
	}
}

// InstanceName returns the advertised instance name, empty before Start.
func (s *Service) InstanceName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instanceName
}

// resolveInstanceName prefers the configured name, then the hostname.
func (s *Service) resolveInstanceName() (string, error) {
	if name := s.cfg.DiscoveryInstanceName(); name != "" {
		return name, nil
	}

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		log.Warn().Err(err).Msg("failed to get hostname, using fallback")
		deviceID := s.cfg.DeviceID()
		if len(deviceID) >= 8 {
			return config.AppName + "-" + deviceID[:8], nil
		}
		return config.AppName, nil
	}
	return hostname, nil
}
