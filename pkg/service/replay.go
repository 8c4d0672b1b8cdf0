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
	"errors"
	"fmt"
	"time"

	"github.com/ganglink/ganglink-core/pkg/api/models"
	"github.com/ganglink/ganglink-core/pkg/api/notifications"
	"github.com/ganglink/ganglink-core/pkg/archive"
	"github.com/ganglink/ganglink-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// SampleRate is the Ganglion's output rate. Replay produces one archived
// frame per tick at this rate.
const SampleRate = 200

const replayInterval = time.Second / SampleRate

type replayRun struct {
	cancel context.CancelFunc
	done   chan struct{}
	mu     syncutil.Mutex
}

// StartRecording begins a recording session and returns the resolved file
// path. Paths are confined to the archive directory; an empty path records
// to a timestamped file there.
func (s *Service) StartRecording(path string) (string, error) {
	path, err := s.archivePath(path)
	if err != nil {
		return "", err
	}
	if err := s.BeginRecording(path); err != nil {
		return "", fmt.Errorf("start recording: %w", err)
	}
	log.Info().Str("path", path).Msg("recording started")
	return path, nil
}

// StopRecording ends the recording session and announces the archive.
func (s *Service) StopRecording() error {
	info := s.Archive().Info()
	if err := s.EndRecording(); err != nil {
		return fmt.Errorf("stop recording: %w", err)
	}

	s.mu.Lock()
	if s.autoRecord == info.Path {
		s.autoRecord = ""
	}
	s.mu.Unlock()

	log.Info().Str("path", info.Path).Int64("frames", info.Length).Msg("recording stopped")
	notifications.ArchiveEnded(s.ns, models.ArchiveEndedParams{Path: info.Path, Frames: info.Length})
	return nil
}

// StartReplay opens an archive and replays it through the sample outputs
// at the device's sample rate. Any running replay is stopped first.
func (s *Service) StartReplay(path string) error {
	path, err := s.archivePath(path)
	if err != nil {
		return err
	}

	s.replay.mu.Lock()
	defer s.replay.mu.Unlock()

	s.stopReplayLocked()
	if s.Archive().Mode() == archive.ModeReading {
		if err := s.CloseArchive(); err != nil {
			log.Warn().Err(err).Msg("closing previous replay archive")
		}
	}

	if err := s.OpenArchiveForReplay(path); err != nil {
		return fmt.Errorf("start replay: %w", err)
	}

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	s.replay.cancel = cancel
	s.replay.done = done

	log.Info().Str("path", path).Int64("frames", s.SessionLength()).Msg("replay started")
	go s.runReplay(ctx, done)
	return nil
}

// StopReplay stops the replay ticker and closes the archive.
func (s *Service) StopReplay() error {
	s.replay.mu.Lock()
	defer s.replay.mu.Unlock()

	s.stopReplayLocked()
	if err := s.CloseArchive(); err != nil {
		return fmt.Errorf("stop replay: %w", err)
	}
	return nil
}

// SeekReplay moves the replay position. It is clamped to the archive.
func (s *Service) SeekReplay(pos int64) (int64, error) {
	newPos, err := s.SeekSession(pos)
	if err != nil {
		return 0, fmt.Errorf("seek replay: %w", err)
	}
	return newPos, nil
}

func (s *Service) stopReplay() {
	s.replay.mu.Lock()
	defer s.replay.mu.Unlock()
	s.stopReplayLocked()
}

func (s *Service) stopReplayLocked() {
	if s.replay.cancel == nil {
		return
	}
	s.replay.cancel()
	<-s.replay.done
	s.replay.cancel = nil
	s.replay.done = nil
}

func (s *Service) runReplay(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := s.clock.NewTicker(replayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			_, err := s.ProduceNextChannelValues()
			switch {
			case err == nil:
				continue
			case errors.Is(err, archive.ErrEndOfArchive):
				s.finishReplay()
			case errors.Is(err, archive.ErrNotReading):
				log.Debug().Msg("replay archive closed")
			default:
				log.Error().Err(err).Msg("replay failed")
			}
			return
		}
	}
}

// finishReplay closes an exhausted archive and announces it.
func (s *Service) finishReplay() {
	info := s.Archive().Info()
	if err := s.CloseArchive(); err != nil {
		log.Warn().Err(err).Msg("closing replay archive")
	}
	log.Info().Str("path", info.Path).Int64("frames", info.Length).Msg("replay finished")
	notifications.ArchiveEnded(s.ns, models.ArchiveEndedParams{Path: info.Path, Frames: info.Length})
}
