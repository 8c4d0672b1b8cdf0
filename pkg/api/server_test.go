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

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ganglink/ganglink-core/pkg/api/models"
	"github.com/ganglink/ganglink-core/pkg/api/notifications"
	"github.com/ganglink/ganglink-core/pkg/archive"
	"github.com/ganglink/ganglink-core/pkg/config"
	"github.com/ganglink/ganglink-core/pkg/ganglion/link"
	"github.com/ganglink/ganglink-core/pkg/ganglion/samples"
	"github.com/ganglink/ganglink-core/pkg/service/broker"
	"github.com/gorilla/websocket"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	snap       link.Snapshot
	connectErr error
	recordErr  error
	calls      []string
	mu         sync.Mutex
}

func (f *fakeController) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeController) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeController) Snapshot() link.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeController) Scan() error       { return f.record("scan") }
func (f *fakeController) Disconnect() error { return f.record("disconnect") }
func (f *fakeController) StartData() error  { return f.record("data/start") }
func (f *fakeController) StopData() error   { return f.record("data/stop") }
func (f *fakeController) StartImpedance() error {
	return f.record("impedance/start")
}
func (f *fakeController) StopImpedance() error { return f.record("impedance/stop") }
func (f *fakeController) StartAccel() error    { return f.record("accel/start") }
func (f *fakeController) StopAccel() error     { return f.record("accel/stop") }
func (f *fakeController) StopRecording() error { return f.record("record/stop") }
func (f *fakeController) StopReplay() error    { return f.record("replay/stop") }

func (f *fakeController) Connect(_ context.Context, name string) error {
	if name == "" {
		return link.ErrNoDevice
	}
	_ = f.record("connect " + name)
	return f.connectErr
}

func (f *fakeController) StartRecording(path string) (string, error) {
	_ = f.record("record " + path)
	return path, f.recordErr
}

func (f *fakeController) StartReplay(path string) error {
	return f.record("replay " + path)
}

func (f *fakeController) SeekReplay(pos int64) (int64, error) {
	_ = f.record(fmt.Sprintf("seek %d", pos))
	return pos, nil
}

func testConfig(t *testing.T) *config.Instance {
	t.Helper()
	cfg, err := config.NewConfigFs(afero.NewMemMapFs(), "/cfg", config.BaseDefaults)
	require.NoError(t, err)
	return cfg
}

func newTestServer(t *testing.T, ctrl Controller) (*Server, chan models.Notification) {
	t.Helper()

	ns := make(chan models.Notification, 16)
	b := broker.NewBroker(t.Context(), ns)
	b.Start()
	t.Cleanup(b.Stop)

	return New(testConfig(t), ctrl, b), ns
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	t.Parallel()

	ctrl := &fakeController{snap: link.Snapshot{
		State:     link.StateReading,
		Target:    "ganglion-1",
		Devices:   []string{"ganglion-1"},
		LastFrame: samples.Frame{3, 100, 0, 0, 0},
		HasFrame:  true,
		Archive:   archive.Info{Mode: "writing", Path: "a.gla", Length: 4, Position: 4},
	}}
	ctrl.snap.Impedance[0] = link.NewImpedance(5)
	s, _ := newTestServer(t, ctrl)

	rec := do(t, s, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "reading", resp.State)
	assert.Equal(t, "ganglion-1", resp.Target)
	assert.Equal(t, config.AppVersion, resp.Version)
	assert.Equal(t, "writing", resp.Archive.Mode)
	assert.Equal(t, int64(4), resp.Archive.Length)
	assert.Nil(t, resp.Archive.RecordedAt)
	require.NotNil(t, resp.LastValues)
	assert.InDelta(t, samples.Scale(100), resp.LastValues[0], 1e-12)
	require.Len(t, resp.Impedance, samples.NumChannels)
	assert.Equal(t, "good", resp.Impedance[0].Quality)
	assert.Equal(t, "gray", resp.Impedance[1].Color)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, &fakeController{})
	s.started = time.Now().Add(-time.Minute)
	s.uptime = func() (time.Duration, error) { return 2 * time.Hour, nil }

	rec := do(t, s, http.MethodGet, "/api/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, config.AppVersion, resp.Version)
	assert.GreaterOrEqual(t, resp.UptimeSeconds, 60.0)
	require.NotNil(t, resp.HostUptimeSeconds)
	assert.InDelta(t, 7200.0, *resp.HostUptimeSeconds, 0.001)
}

func TestHealthWithoutHostUptime(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, &fakeController{})
	s.uptime = func() (time.Duration, error) { return 0, errors.New("unsupported") }

	rec := do(t, s, http.MethodGet, "/api/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hostUptimeSeconds")
}

func TestDevicesNeverNull(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, &fakeController{})

	rec := do(t, s, http.MethodGet, "/api/devices", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"devices":[]}`, rec.Body.String())
}

func TestCommandRoutes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method string
		path   string
		body   string
		call   string
	}{
		{method: http.MethodPost, path: "/api/scan", call: "scan"},
		{method: http.MethodPost, path: "/api/connect/ganglion-9", call: "connect ganglion-9"},
		{method: http.MethodPost, path: "/api/disconnect", call: "disconnect"},
		{method: http.MethodPost, path: "/api/data/start", call: "data/start"},
		{method: http.MethodPost, path: "/api/data/stop", call: "data/stop"},
		{method: http.MethodPost, path: "/api/impedance/start", call: "impedance/start"},
		{method: http.MethodPost, path: "/api/impedance/stop", call: "impedance/stop"},
		{method: http.MethodPost, path: "/api/accel/start", call: "accel/start"},
		{method: http.MethodPost, path: "/api/accel/stop", call: "accel/stop"},
		{method: http.MethodPost, path: "/api/record", call: "record "},
		{method: http.MethodPost, path: "/api/record", body: `{"path":"x.gla"}`, call: "record x.gla"},
		{method: http.MethodDelete, path: "/api/record", call: "record/stop"},
		{method: http.MethodPost, path: "/api/replay", body: `{"path":"x.gla"}`, call: "replay x.gla"},
		{method: http.MethodDelete, path: "/api/replay", call: "replay/stop"},
		{method: http.MethodPost, path: "/api/replay/seek", body: `{"position":12}`, call: "seek 12"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path+" "+tt.body, func(t *testing.T) {
			t.Parallel()

			ctrl := &fakeController{}
			s, _ := newTestServer(t, ctrl)

			rec := do(t, s, tt.method, tt.path, tt.body)

			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, []string{tt.call}, ctrl.Calls())
		})
	}
}

func TestUnknownStream(t *testing.T) {
	t.Parallel()

	ctrl := &fakeController{}
	s, _ := newTestServer(t, ctrl)

	rec := do(t, s, http.MethodPost, "/api/video/start", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, ctrl.Calls())
}

func TestReplayRequiresPath(t *testing.T) {
	t.Parallel()

	ctrl := &fakeController{}
	s, _ := newTestServer(t, ctrl)

	rec := do(t, s, http.MethodPost, "/api/replay", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ctrl.Calls())
}

func TestRequestValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "record escapes dir", method: http.MethodPost, path: "/api/record", body: `{"path":"../x.gla"}`},
		{
			name:   "record absolute path",
			method: http.MethodPost,
			path:   "/api/record",
			body:   `{"path":"/home/u/.ssh/authorized_keys"}`,
		},
		{name: "record without extension", method: http.MethodPost, path: "/api/record", body: `{"path":"notes"}`},
		{name: "replay absolute path", method: http.MethodPost, path: "/api/replay", body: `{"path":"/etc/x.gla"}`},
		{name: "replay wrong extension", method: http.MethodPost, path: "/api/replay", body: `{"path":"x.csv"}`},
		{name: "replay bad json", method: http.MethodPost, path: "/api/replay", body: `{"path":`},
		{name: "negative seek", method: http.MethodPost, path: "/api/replay/seek", body: `{"position":-1}`},
		{name: "missing seek", method: http.MethodPost, path: "/api/replay/seek"},
		{name: "device name too long", method: http.MethodPost, path: "/api/connect/" + strings.Repeat("g", 21)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := &fakeController{}
			s, _ := newTestServer(t, ctrl)

			rec := do(t, s, tt.method, tt.path, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Empty(t, ctrl.Calls())
		})
	}
}

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{err: link.ErrNoDevice, want: http.StatusBadRequest},
		{err: fmt.Errorf("resolve: %w", archive.ErrInvalidPath), want: http.StatusBadRequest},
		{err: link.ErrLinkClosed, want: http.StatusServiceUnavailable},
		{err: fmt.Errorf("begin: %w", archive.ErrModeConflict), want: http.StatusConflict},
		{err: archive.ErrNotReading, want: http.StatusConflict},
		{err: link.ErrConnectTimeout, want: http.StatusGatewayTimeout},
		{err: link.ErrConnectRefused, want: http.StatusBadGateway},
		{err: link.ErrHubUnavailable, want: http.StatusServiceUnavailable},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, errorStatus(tt.err), tt.err.Error())
	}
}

func TestConnectErrorResponse(t *testing.T) {
	t.Parallel()

	ctrl := &fakeController{connectErr: link.ErrConnectTimeout}
	s, _ := newTestServer(t, ctrl)

	rec := do(t, s, http.MethodPost, "/api/connect/ganglion-1", "")

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, link.ErrConnectTimeout.Error(), resp.Error)
}

func TestEventsWebsocket(t *testing.T) {
	t.Parallel()

	ctrl := &fakeController{snap: link.Snapshot{State: link.StateConnected, Target: "ganglion-1"}}
	s, ns := newTestServer(t, ctrl)

	ctx, cancel := context.WithCancel(t.Context())
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	serveErr := make(chan error, 1)
	go func() { serveErr <- s.Serve(ctx, ln) }()
	defer func() {
		cancel()
		assert.NoError(t, <-serveErr)
	}()

	url := "ws://" + ln.Addr().String() + "/api/events"
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var greeting models.NotificationObject
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, "2.0", greeting.JSONRPC)
	assert.Equal(t, models.NotificationLinkState, greeting.Method)
	assert.JSONEq(t, `{"state":"connected","device":"ganglion-1"}`, string(greeting.Params))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	_, pong, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(pong))

	notifications.DeviceFound(ns, "ganglion-2")

	var found models.NotificationObject
	require.NoError(t, conn.ReadJSON(&found))
	assert.Equal(t, models.NotificationDeviceFound, found.Method)
	assert.JSONEq(t, `{"name":"ganglion-2"}`, string(found.Params))
}
