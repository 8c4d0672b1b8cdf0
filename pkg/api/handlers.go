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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ganglink/ganglink-core/pkg/api/models"
	"github.com/ganglink/ganglink-core/pkg/api/validation"
	"github.com/ganglink/ganglink-core/pkg/archive"
	"github.com/ganglink/ganglink-core/pkg/config"
	"github.com/ganglink/ganglink-core/pkg/ganglion/link"
	"github.com/ganglink/ganglink-core/pkg/ganglion/transport"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const maxBodySize = 4096

var errUnknownStream = errors.New("unknown stream command")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("writing response")
	}
}

// errorStatus maps link and archive errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case validation.IsValidationError(err),
		errors.Is(err, archive.ErrInvalidPath),
		errors.Is(err, link.ErrNoDevice),
		errors.Is(err, errUnknownStream):
		return http.StatusBadRequest
	case errors.Is(err, archive.ErrModeConflict),
		errors.Is(err, archive.ErrNotWriting),
		errors.Is(err, archive.ErrNotReading):
		return http.StatusConflict
	case errors.Is(err, link.ErrConnectTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, link.ErrConnectRefused):
		return http.StatusBadGateway
	case errors.Is(err, transport.ErrNotConnected),
		errors.Is(err, transport.ErrClosed),
		errors.Is(err, link.ErrLinkClosed),
		errors.Is(err, link.ErrHubUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	log.Warn().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("API request failed")
	writeJSON(w, status, models.ErrorResponse{Error: err.Error()})
}

// decodeBody reads and validates a JSON request body. An empty body is
// validated as the zero value when optional is set.
func decodeBody[T any](r *http.Request, dest *T, optional bool) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return validation.ErrInvalidParams
	}
	if len(body) == 0 && optional {
		return validation.DefaultValidator.Validate(dest)
	}
	return validation.ValidateAndUnmarshal(body, dest)
}

func (s *Server) command(fn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(); err != nil {
			writeError(w, r, err)
			return
		}
		s.handleStatus(w, r)
	}
}

func impedanceParams(table link.ImpedanceTable) []models.ImpedanceParams {
	out := make([]models.ImpedanceParams, len(table))
	for i, imp := range table {
		out[i] = models.ImpedanceParams{
			Channel: i,
			Raw:     imp.Raw,
			Quality: imp.Quality.String(),
			Color:   imp.Quality.Color(),
		}
	}
	return out
}

func statusResponse(snap link.Snapshot) models.StatusResponse {
	resp := models.StatusResponse{
		State:     snap.State.String(),
		Target:    snap.Target,
		Version:   config.AppVersion,
		Devices:   snap.Devices,
		Impedance: impedanceParams(snap.Impedance),
		Archive: models.ArchiveResponse{
			Path:     snap.Archive.Path,
			Mode:     snap.Archive.Mode,
			Length:   snap.Archive.Length,
			Position: snap.Archive.Position,
		},
	}
	if resp.Devices == nil {
		resp.Devices = []string{}
	}
	if !snap.Archive.RecordedAt.IsZero() {
		recordedAt := snap.Archive.RecordedAt
		resp.Archive.RecordedAt = &recordedAt
	}
	if snap.HasFrame {
		values := [4]float64(snap.LastFrame.Values())
		resp.LastValues = &values
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse(s.ctrl.Snapshot()))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := models.HealthResponse{
		Version:       config.AppVersion,
		UptimeSeconds: time.Since(s.started).Seconds(),
	}
	if host, err := s.uptime(); err == nil {
		secs := host.Seconds()
		resp.HostUptimeSeconds = &secs
	} else {
		log.Debug().Err(err).Msg("host uptime unavailable")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.ctrl.Snapshot().Devices
	if devices == nil {
		devices = []string{}
	}
	writeJSON(w, http.StatusOK, models.DevicesResponse{Devices: devices})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	req := models.ConnectRequest{Name: chi.URLParam(r, "name")}
	if err := validation.DefaultValidator.Validate(&req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ctrl.Connect(r.Context(), req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	s.handleStatus(w, r)
}

func (s *Server) streamCommand(stream, action string) (func() error, error) {
	commands := map[string]map[string]func() error{
		"data":      {"start": s.ctrl.StartData, "stop": s.ctrl.StopData},
		"impedance": {"start": s.ctrl.StartImpedance, "stop": s.ctrl.StopImpedance},
		"accel":     {"start": s.ctrl.StartAccel, "stop": s.ctrl.StopAccel},
	}
	fn, ok := commands[stream][action]
	if !ok {
		return nil, errUnknownStream
	}
	return fn, nil
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	fn, err := s.streamCommand(chi.URLParam(r, "stream"), chi.URLParam(r, "action"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
		return
	}
	s.command(fn)(w, r)
}

func (s *Server) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	var req models.RecordRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.ctrl.StartRecording(req.Path); err != nil {
		writeError(w, r, err)
		return
	}
	s.handleStatus(w, r)
}

func (s *Server) handleStartReplay(w http.ResponseWriter, r *http.Request) {
	var req models.ReplayRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ctrl.StartReplay(req.Path); err != nil {
		writeError(w, r, err)
		return
	}
	s.handleStatus(w, r)
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req models.SeekRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.ctrl.SeekReplay(req.Position); err != nil {
		writeError(w, r, err)
		return
	}
	s.handleStatus(w, r)
}
