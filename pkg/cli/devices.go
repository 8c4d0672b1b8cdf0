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
	"io"
	"time"

	"github.com/ganglink/ganglink-core/pkg/config"
	"github.com/ganglink/ganglink-core/pkg/ganglion/link"
	"github.com/ganglink/ganglink-core/pkg/ganglion/transport"
	"github.com/rs/zerolog/log"
)

// ScanDuration is how long -scan listens for advertising devices.
const ScanDuration = 5 * time.Second

// ScanDevices opens its own hub link, scans for ScanDuration and prints one
// device name per line.
func ScanDevices(ctx context.Context, cfg *config.Instance, out io.Writer) error {
	opts := link.Options{
		Transport: transport.NewTCP(cfg.HubHost(), cfg.HubPort()),
	}
	if cfg.HubExePath() != "" {
		opts.Launcher = link.NewCommandLauncher(cfg.HubExePath(), cfg.HubExeArgs()...)
	}
	return scanDevices(ctx, link.New(opts), ScanDuration, out)
}

func scanDevices(ctx context.Context, l *link.Link, wait time.Duration, out io.Writer) (err error) {
	if err := l.Open(ctx); err != nil {
		return fmt.Errorf("error opening hub link: %w", err)
	}
	defer func() {
		err = errors.Join(err, l.Close())
	}()

	if err := l.Scan(); err != nil {
		return fmt.Errorf("error starting scan: %w", err)
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		log.Info().Msg("scan interrupted")
	}

	if err := l.StopScan(); err != nil {
		log.Warn().Err(err).Msg("error stopping scan")
	}

	devices := l.Devices()
	if len(devices) == 0 {
		_, _ = fmt.Fprintln(out, "no devices found")
		return nil
	}
	for _, name := range devices {
		_, _ = fmt.Fprintln(out, name)
	}
	return nil
}
