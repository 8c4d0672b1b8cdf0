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

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/ganglink/ganglink-core/pkg/config"
	"github.com/ganglink/ganglink-core/pkg/helpers"
	"github.com/ganglink/ganglink-core/pkg/service"
	"github.com/rs/zerolog/log"
)

// Run starts the service and blocks until ctx is cancelled. A PID file in
// the temp dir keeps a second instance from starting.
func (f *Flags) Run(ctx context.Context, cfg *config.Instance, dirs helpers.Dirs) (err error) {
	pid := helpers.NewPidFile(dirs.TempDir)
	if err := pid.Create(); err != nil {
		return fmt.Errorf("error creating pid file: %w", err)
	}
	defer func() {
		if rmErr := pid.Remove(); rmErr != nil {
			log.Warn().Err(rmErr).Msg("error removing pid file")
		}
	}()

	svc, err := service.New(cfg, service.Options{
		DataDir: dirs.DataDir,
		Offline: *f.Replay != "",
	})
	if err != nil {
		return fmt.Errorf("error creating service: %w", err)
	}
	if err := svc.Start(); err != nil {
		log.Error().Err(err).Msg("error starting service")
		return fmt.Errorf("error starting service: %w", err)
	}
	defer func() {
		if stopErr := svc.Stop(); stopErr != nil {
			log.Error().Err(stopErr).Msg("error stopping service")
			err = errors.Join(err, stopErr)
		}
	}()

	if err := f.startSession(svc); err != nil {
		return err
	}

	if *f.Daemon {
		log.Info().Msg("started in daemon mode")
	}
	<-ctx.Done()
	log.Info().Msg("shutdown requested")
	return nil
}

// Session is the part of the service the archive flags drive.
type Session interface {
	StartRecording(path string) (string, error)
	StartReplay(path string) error
}

// startSession starts a recording or replay requested on the command
// line. Recorded frames are appended once the device streams.
func (f *Flags) startSession(s Session) error {
	switch {
	case *f.Replay != "":
		if err := s.StartReplay(*f.Replay); err != nil {
			return fmt.Errorf("error starting replay: %w", err)
		}
	case *f.Record != "":
		path, err := s.StartRecording(*f.Record)
		if err != nil {
			return fmt.Errorf("error starting recording: %w", err)
		}
		log.Info().Str("path", path).Msg("recording from command line")
	}
	return nil
}
