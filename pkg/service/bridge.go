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

package service

import (
	"context"
	"time"

	"github.com/ganglink/ganglink-core/pkg/api/models"
	"github.com/ganglink/ganglink-core/pkg/api/notifications"
	"github.com/ganglink/ganglink-core/pkg/archive"
	"github.com/ganglink/ganglink-core/pkg/ganglion/link"
	"github.com/rs/zerolog/log"
)

const (
	sampleBatchSize     = 20
	sampleFlushInterval = 100 * time.Millisecond
)

// forwardEvents turns link events into notifications until ctx is done.
func (s *Service) forwardEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			s.handleEvent(ev)
		}
	}
}

func (s *Service) handleEvent(ev link.Event) {
	switch ev.Kind {
	case link.EventStateChanged:
		snap := s.Snapshot()
		notifications.LinkState(s.ns, models.LinkStateParams{
			State:  ev.State.String(),
			Device: snap.Target,
		})
		switch ev.State {
		case link.StateConnected:
			s.discovery.SetDevice(snap.Target)
			s.maybeAutoRecord()
		case link.StateIdle:
			s.discovery.SetDevice("")
			s.endAutoRecord()
		case link.StateScanning, link.StateReading:
		}
	case link.EventDeviceFound:
		notifications.DeviceFound(s.ns, ev.Device)
	case link.EventImpedance:
		notifications.Impedance(s.ns, models.ImpedanceParams{
			Channel: ev.Channel,
			Raw:     ev.Impedance.Raw,
			Quality: ev.Impedance.Quality.String(),
			Color:   ev.Impedance.Quality.Color(),
		})
	case link.EventHardwareWarning:
		notifications.Warning(s.ns, "hardware", ev.Message)
	case link.EventLinkError:
		notifications.Warning(s.ns, "link_error", ev.Message)
	case link.EventLinkLost:
		notifications.LinkLost(s.ns, ev.Err)
	default:
		log.Debug().Str("event", ev.Kind.String()).Msg("unhandled link event")
	}
}

func (s *Service) maybeAutoRecord() {
	if !s.cfg.AutoRecord() || s.Archive().Mode() != archive.ModeClosed {
		return
	}
	path, err := s.StartRecording("")
	if err != nil {
		log.Error().Err(err).Msg("auto-record failed")
		return
	}
	s.mu.Lock()
	s.autoRecord = path
	s.mu.Unlock()
}

func (s *Service) endAutoRecord() {
	s.mu.Lock()
	path := s.autoRecord
	s.mu.Unlock()
	if path == "" || s.Archive().Path() != path {
		return
	}
	if err := s.StopRecording(); err != nil {
		log.Warn().Err(err).Msg("ending auto-record")
	}
}

// forwardSamples batches calibrated frames into link.samples notifications.
// A batch is flushed when full or after sampleFlushInterval.
func (s *Service) forwardSamples(ctx context.Context) {
	ticker := s.clock.NewTicker(sampleFlushInterval)
	defer ticker.Stop()

	batch := make([][4]float64, 0, sampleBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		notifications.Samples(s.ns, models.SamplesParams{
			Frames: batch,
			Replay: s.Archive().Mode() == archive.ModeReading,
		})
		batch = make([][4]float64, 0, sampleBatchSize)
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case v := <-s.samplesOut.C():
			batch = append(batch, [4]float64(v))
			if len(batch) >= sampleBatchSize {
				flush()
			}
		case <-ticker.Chan():
			flush()
		}
	}
}
