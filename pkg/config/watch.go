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
package config

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// reloadDelay is how long the file must stay quiet before it is reloaded.
// Saves arrive as a truncate followed by one or more writes.
const reloadDelay = 250 * time.Millisecond

// Watch reloads the config whenever its file changes on disk and applies
// the new log level. onReload, if set, runs after each successful reload.
// The directory is watched rather than the file so editors that replace
// the file on save are picked up. Blocks until ctx is done.
func (c *Instance) Watch(ctx context.Context, onReload func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			log.Debug().Err(err).Msg("closing config watcher")
		}
	}()

	path := filepath.Clean(c.Path())
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}
	log.Debug().Str("path", path).Msg("watching config file")

	c.watchLoop(ctx, watcher.Events, watcher.Errors, clockwork.NewRealClock(), onReload)
	return nil
}

// watchLoop debounces file events and reloads once the file has been quiet
// for reloadDelay.
func (c *Instance) watchLoop(
	ctx context.Context,
	events <-chan fsnotify.Event,
	errs <-chan error,
	clock clockwork.Clock,
	onReload func(),
) {
	path := filepath.Clean(c.Path())

	var timer clockwork.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path ||
				!event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = clock.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			fire = timer.Chan()
		case <-fire:
			fire = nil
			if c.reloadFromDisk() && onReload != nil {
				onReload()
			}
		case watchErr, ok := <-errs:
			if !ok {
				return
			}
			log.Error().Err(watchErr).Msg("error in config watcher")
		}
	}
}

// reloadFromDisk loads the file if it holds a complete config. An empty
// file is a save still in progress and is skipped.
func (c *Instance) reloadFromDisk() bool {
	c.mu.Lock()
	path := c.cfgPath
	data, err := afero.ReadFile(c.fs, path)
	switch {
	case err != nil:
		err = fmt.Errorf("failed to read config file: %w", err)
	case len(bytes.TrimSpace(data)) == 0:
		c.mu.Unlock()
		log.Debug().Msg("config file empty, waiting for the rest of the save")
		return false
	default:
		err = c.loadLocked(data)
	}
	debug := c.vals.DebugLogging
	c.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Msg("config changed but failed to reload")
		return false
	}
	ApplyLogLevel(debug)
	log.Info().Str("path", path).Msg("config reloaded")
	return true
}
