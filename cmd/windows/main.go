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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ganglink/ganglink-core/internal/telemetry"
	"github.com/ganglink/ganglink-core/pkg/cli"
	"github.com/ganglink/ganglink-core/pkg/config"
	"github.com/ganglink/ganglink-core/pkg/helpers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		telemetry.Flush()
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags(flag.CommandLine)
	if exit, err := flags.Pre(os.Args[1:], os.Stdout); exit {
		return err
	}

	dirs, err := helpers.DefaultDirs()
	if err != nil {
		return fmt.Errorf("error resolving directories: %w", err)
	}

	defaults := config.BaseDefaults
	defaults.DebugLogging = true

	cfg, err := cli.Setup(
		dirs,
		defaults,
		[]io.Writer{zerolog.ConsoleWriter{Out: os.Stderr}},
	)
	if err != nil {
		return err
	}
	defer telemetry.Close()
	flags.Apply(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *flags.Scan {
		return cli.ScanDevices(ctx, cfg, os.Stdout)
	}

	fmt.Printf("Ganglink v%s\n", config.AppVersion)
	fmt.Printf("API: http://localhost:%d/api/status\n", cfg.APIPort())
	fmt.Println("Press Ctrl+C to exit")

	if err := flags.Run(ctx, cfg, dirs); err != nil {
		log.Error().Err(err).Msg("service exited with error")
		return err
	}
	return nil
}
