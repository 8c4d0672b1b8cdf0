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

package discovery

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ganglink/ganglink-core/pkg/config"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdvert struct {
	text     []string
	shutdown int
	mu       sync.Mutex
}

func (f *fakeAdvert) SetText(text []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = text
}

func (f *fakeAdvert) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdown++
}

func testConfig(t *testing.T, defaults config.Values) *config.Instance {
	t.Helper()
	cfg, err := config.NewConfigFs(afero.NewMemMapFs(), "/cfg", defaults)
	require.NoError(t, err)
	return cfg
}

func namedDefaults(name string) config.Values {
	vals := config.BaseDefaults
	vals.Service.Discovery.InstanceName = name
	return vals
}

func testService(t *testing.T, failures int) (*Service, *fakeAdvert, *clockwork.FakeClock, *int) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	advert := &fakeAdvert{}
	attempts := 0

	svc := New(testConfig(t, namedDefaults("lab-bench")))
	svc.clock = clock
	svc.interfaces = func() ([]net.Interface, error) {
		return []net.Interface{{Name: "eth0", Flags: net.FlagUp | net.FlagMulticast}}, nil
	}
	svc.register = func(instance, service, _ string, _ int, text []string, _ []net.Interface) (advertisement, error) {
		attempts++
		assert.Equal(t, "lab-bench", instance)
		assert.Equal(t, ServiceType, service)
		if attempts <= failures {
			return nil, errors.New("network down")
		}
		advert.SetText(text)
		return advert, nil
	}
	return svc, advert, clock, &attempts
}

func TestServiceType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "_ganglink._tcp", ServiceType)
}

func TestFilterInterfaces(t *testing.T) {
	t.Parallel()

	up := net.FlagUp | net.FlagMulticast
	ifaces := []net.Interface{
		{Name: "eth0", Flags: up},
		{Name: "lo", Flags: up | net.FlagLoopback},
		{Name: "wlan0", Flags: net.FlagMulticast},
		{Name: "tun0", Flags: net.FlagUp},
		{Name: "docker0", Flags: up},
		{Name: "veth12ab", Flags: up},
		{Name: "wlp2s0", Flags: up},
	}

	got := filterInterfaces(ifaces)

	names := make([]string, len(got))
	for i, iface := range got {
		names[i] = iface.Name
	}
	assert.Equal(t, []string{"eth0", "wlp2s0"}, names)
}

func TestStartRegistersWithTxtRecords(t *testing.T) {
	t.Parallel()

	svc, advert, _, attempts := testService(t, 0)

	require.NoError(t, svc.Start())
	defer svc.Stop()

	assert.Equal(t, 1, *attempts)
	assert.Equal(t, "lab-bench", svc.InstanceName())

	advert.mu.Lock()
	defer advert.mu.Unlock()
	assert.Contains(t, advert.text, "version="+config.AppVersion)
	assert.Contains(t, advert.text, "device=")
	assert.Contains(t, advert.text, "id="+svc.cfg.DeviceID())
}

func TestSetDeviceUpdatesTxt(t *testing.T) {
	t.Parallel()

	svc, advert, _, _ := testService(t, 0)
	require.NoError(t, svc.Start())
	defer svc.Stop()

	svc.SetDevice("ganglion-4f2a")

	advert.mu.Lock()
	defer advert.mu.Unlock()
	assert.Contains(t, advert.text, "device=ganglion-4f2a")
}

func TestStartRetriesInBackground(t *testing.T) {
	t.Parallel()

	svc, advert, clock, _ := testService(t, 1)
	require.NoError(t, svc.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// ticker and deadline timer
	require.NoError(t, clock.BlockUntilContext(ctx, 2))
	clock.Advance(retryInterval)

	svc.mu.Lock()
	done := svc.retryDone
	svc.mu.Unlock()
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("retry loop did not finish")
	}

	svc.mu.Lock()
	assert.Equal(t, advert, svc.server)
	svc.mu.Unlock()

	svc.Stop()
	assert.Equal(t, 1, advert.shutdown)
}

func TestStartDisabled(t *testing.T) {
	t.Parallel()

	vals := config.BaseDefaults
	disabled := false
	vals.Service.Discovery.Enabled = &disabled

	svc := New(testConfig(t, vals))
	svc.register = func(string, string, string, int, []string, []net.Interface) (advertisement, error) {
		t.Fatal("register called while disabled")
		return nil, nil
	}

	require.NoError(t, svc.Start())
	assert.Empty(t, svc.InstanceName())
}

func TestStopIdempotent(t *testing.T) {
	t.Parallel()

	svc, advert, _, _ := testService(t, 0)
	require.NoError(t, svc.Start())

	svc.Stop()
	svc.Stop()

	assert.Equal(t, 1, advert.shutdown)
}

func TestStopCancelsRetry(t *testing.T) {
	t.Parallel()

	svc, _, _, attempts := testService(t, 100)
	require.NoError(t, svc.Start())

	svc.Stop()

	assert.Equal(t, 1, *attempts)
}
