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

package samples

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Output receives calibrated values, one call per frame, in order.
type Output interface {
	PassValues(v Values)
}

// Appender stores raw frames. Append reports false when no recording is
// active, which is not an error.
type Appender interface {
	AppendIfWriting(f Frame) (bool, error)
}

// Pipeline scales frames and fans them out to the archive and the outputs.
type Pipeline struct {
	archive Appender
	outputs []Output
}

// NewPipeline returns a pipeline writing to archive (may be nil) and
// passing values to every output.
func NewPipeline(archive Appender, outputs ...Output) *Pipeline {
	return &Pipeline{
		archive: archive,
		outputs: outputs,
	}
}

// Process handles one frame. Archive write failures are logged and do not
// stop the values reaching the outputs.
func (p *Pipeline) Process(f Frame) Values {
	if p.archive != nil {
		if _, err := p.archive.AppendIfWriting(f); err != nil {
			log.Error().Err(err).Msg("failed to append frame to archive")
		}
	}

	v := f.Values()
	for _, out := range p.outputs {
		out.PassValues(v)
	}
	return v
}

const dropLogEvery = 1000

// ChannelOutput is an Output backed by a buffered channel. When the
// consumer falls behind, new frames are dropped and counted rather than
// blocking the reader.
type ChannelOutput struct {
	ch      chan Values
	dropped atomic.Uint64
}

// NewChannelOutput returns an output buffering up to size frames.
func NewChannelOutput(size int) *ChannelOutput {
	return &ChannelOutput{ch: make(chan Values, size)}
}

func (o *ChannelOutput) PassValues(v Values) {
	select {
	case o.ch <- v:
	default:
		n := o.dropped.Add(1)
		if n == 1 || n%dropLogEvery == 0 {
			log.Warn().Uint64("dropped", n).Msg("sample output full, dropping frames")
		}
	}
}

// C returns the receive side of the output.
func (o *ChannelOutput) C() <-chan Values {
	return o.ch
}

// Dropped returns how many frames were discarded on overflow.
func (o *ChannelOutput) Dropped() uint64 {
	return o.dropped.Load()
}

// OutputFunc adapts a function to Output.
type OutputFunc func(v Values)

func (f OutputFunc) PassValues(v Values) {
	f(v)
}
