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

//go:build deadlock

// Package syncutil holds the locks used across the driver. Building with
// -tags=deadlock swaps in go-deadlock's detector.
package syncutil

import (
	"time"

	"github.com/rs/zerolog/log"
	deadlock "github.com/sasha-s/go-deadlock"
)

// DeadlockEnabled reports whether the detector is compiled in.
const DeadlockEnabled = true

// reader and command locks are never held across more than a connect
// timeout plus pacing, so anything past this is a real hang
const lockTimeout = 15 * time.Second

func init() {
	deadlock.Opts.DeadlockTimeout = lockTimeout
	deadlock.Opts.LogBuf = log.Logger
	deadlock.Opts.OnPotentialDeadlock = func() {
		log.Error().Dur("timeout", lockTimeout).Msg("potential deadlock detected")
	}
}

// Mutex is a mutual exclusion lock.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex is a reader/writer lock.
type RWMutex struct {
	deadlock.RWMutex
}
