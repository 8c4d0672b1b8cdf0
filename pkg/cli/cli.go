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

// Package cli holds the flags and startup shared by every platform entry
// point.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/ganglink/ganglink-core/internal/telemetry"
	"github.com/ganglink/ganglink-core/pkg/config"
	"github.com/ganglink/ganglink-core/pkg/helpers"
	"github.com/rs/zerolog/log"
)

// ErrRecordAndReplay is returned when both -record and -replay are given.
var ErrRecordAndReplay = errors.New("-record and -replay cannot be used together")

type Flags struct {
	fs      *flag.FlagSet
	Version *bool
	Daemon  *bool
	Scan    *bool
	Device  *string
	Record  *string
	Replay  *string
}

// SetupFlags defines all common CLI flags on fs.
func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		fs: fs,
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
		Daemon: fs.Bool(
			"daemon",
			false,
			"run service in foreground and log to stderr",
		),
		Scan: fs.Bool(
			"scan",
			false,
			"scan for devices, print them and exit",
		),
		Device: fs.String(
			"device",
			"",
			"connect to this device on startup, overriding the config",
		),
		Record: fs.String(
			"record",
			"",
			"record the session to this .gla file in the archive directory",
		),
		Replay: fs.String(
			"replay",
			"",
			"replay this .gla file from the archive directory without connecting to the hub",
		),
	}
}

// IsFlagPassed reports whether name was set on the command line.
func (f *Flags) IsFlagPassed(name string) bool {
	found := false
	f.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

// Pre parses args and handles flags that need no environment. It reports
// whether the program should exit.
func (f *Flags) Pre(args []string, out io.Writer) (exit bool, err error) {
	if err := f.fs.Parse(args); err != nil {
		return true, fmt.Errorf("failed to parse flags: %w", err)
	}

	if *f.Version {
		_, _ = fmt.Fprintf(out, "Ganglink v%s\n", config.AppVersion)
		return true, nil
	}

	if *f.Record != "" && *f.Replay != "" {
		return true, ErrRecordAndReplay
	}
	return false, nil
}

// Apply copies command line overrides into cfg.
func (f *Flags) Apply(cfg *config.Instance) {
	if f.IsFlagPassed("device") {
		log.Info().Str("device", *f.Device).Msg("device set from command line")
		cfg.SetHubDevice(*f.Device)
	}
}

// Setup creates the driver directories, starts logging and loads the
// config.
//
//nolint:gocritic // config struct copied for immutability
func Setup(
	dirs helpers.Dirs,
	defaultConfig config.Values,
	writers []io.Writer,
) (*config.Instance, error) {
	if err := helpers.EnsureDirectories(dirs); err != nil {
		return nil, fmt.Errorf("error creating directories: %w", err)
	}

	if err := helpers.InitLogging(dirs.LogDir, writers); err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(dirs.ConfigDir, defaultConfig)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	config.ApplyLogLevel(cfg.DebugLogging())

	reporting := cfg.ErrorReporting()
	if err := telemetry.Init(telemetry.Options{
		Enabled:  reporting.Enabled,
		DSN:      reporting.DSN,
		DeviceID: cfg.DeviceID(),
		Version:  config.AppVersion,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg, nil
}
