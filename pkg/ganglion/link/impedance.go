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

package link

import "github.com/ganglink/ganglink-core/pkg/ganglion/samples"

// Quality classifies an electrode's contact impedance.
type Quality int

const (
	QualityUnknown Quality = iota
	QualityGood
	QualityAcceptableHigh
	QualityAcceptableLow
	QualityQuestionable
	QualityBad
)

// QualityFor maps a raw impedance value to its quality class.
func QualityFor(raw int) Quality {
	switch {
	case raw <= 0:
		return QualityUnknown
	case raw <= 10:
		return QualityGood
	case raw <= 50:
		return QualityAcceptableHigh
	case raw <= 100:
		return QualityAcceptableLow
	case raw <= 150:
		return QualityQuestionable
	default:
		return QualityBad
	}
}

func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "good"
	case QualityAcceptableHigh:
		return "acceptable_high"
	case QualityAcceptableLow:
		return "acceptable_low"
	case QualityQuestionable:
		return "questionable"
	case QualityBad:
		return "bad"
	default:
		return "unknown"
	}
}

// Color is the indicator color shown for the quality class.
func (q Quality) Color() string {
	switch q {
	case QualityGood:
		return "green"
	case QualityAcceptableHigh:
		return "yellow"
	case QualityAcceptableLow:
		return "orange"
	case QualityQuestionable:
		return "purple"
	case QualityBad:
		return "red"
	default:
		return "gray"
	}
}

// Impedance is the latest reading for one channel.
type Impedance struct {
	Raw     int
	Quality Quality
}

// NewImpedance derives the quality class for raw.
func NewImpedance(raw int) Impedance {
	return Impedance{Raw: raw, Quality: QualityFor(raw)}
}

// ImpedanceTable holds one reading per channel.
type ImpedanceTable [samples.NumChannels]Impedance

// ImpedanceHandler is called after every accepted impedance reading.
type ImpedanceHandler func(channel int, imp Impedance)

// impedanceReading decodes an i,203 payload: the first value selects the
// channel (1 based), the second is twice the raw impedance.
func impedanceReading(ints []int) (channel int, imp Impedance, ok bool) {
	if len(ints) < 2 {
		return 0, Impedance{}, false
	}
	channel = ints[0] - 1
	if channel < 0 || channel >= samples.NumChannels {
		return channel, Impedance{}, false
	}
	return channel, NewImpedance(ints[1] / 2), true
}
