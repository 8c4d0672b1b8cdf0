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

// Package samples converts raw Ganglion sample frames into calibrated
// channel values and forwards them to the archive and downstream outputs.
package samples

import (
	"errors"
	"fmt"
	"math"
)

const (
	// NumChannels is the number of EEG channels on the board.
	NumChannels = 4
	// FrameLen is the number of integers in one frame: a marker followed
	// by one raw count per channel.
	FrameLen = NumChannels + 1
	// SampleRate is the board's nominal sample rate in Hz.
	SampleRate = 200
)

// MCP3912 ADC constants used to derive ScaleFactor.
const (
	ADCVref       = 1.2
	ADCGain       = 1.0
	ADCFullScale  = 8388607.0
	ADCInAmpRatio = 1.5
	ADCDivider    = 51.0
)

// ScaleFactor converts one raw ADC count to microvolts.
const ScaleFactor = (ADCVref * 1e6) / (ADCFullScale * ADCGain * ADCInAmpRatio * ADCDivider)

// ErrShortFrame is returned when a sample line carries fewer than FrameLen
// integers.
var ErrShortFrame = errors.New("sample frame too short")

// Frame is one sample as sent by the hub and stored in archives.
type Frame [FrameLen]int32

// Values holds one calibrated value per channel, in microvolts.
type Values [NumChannels]float64

// FrameFromInts builds a frame from the first FrameLen parsed integers.
// Values outside the int32 range are clamped.
func FrameFromInts(ints []int) (Frame, error) {
	var f Frame
	if len(ints) < FrameLen {
		return f, fmt.Errorf("%w: got %d values, need %d", ErrShortFrame, len(ints), FrameLen)
	}
	for i := range FrameLen {
		f[i] = clampInt32(ints[i])
	}
	return f, nil
}

func clampInt32(v int) int32 {
	switch {
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	default:
		return int32(v)
	}
}

// Marker returns the frame's sequence/marker value.
func (f Frame) Marker() int32 {
	return f[0]
}

// Channel returns the raw count for channel ch (0 based).
func (f Frame) Channel(ch int) int32 {
	return f[ch+1]
}

// Values returns the frame's calibrated channel values.
func (f Frame) Values() Values {
	var v Values
	for ch := range NumChannels {
		v[ch] = Scale(f.Channel(ch))
	}
	return v
}

// Scale converts a raw count to microvolts.
func Scale(raw int32) float64 {
	return float64(raw) * ScaleFactor
}
