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

package protocol

// MaxIntegers is the most values ParseIntegers returns for one line.
const MaxIntegers = 10

// ParseIntegers reads a comma separated list of signed decimal integers.
//
// Digits accumulate into the current value, a comma commits it with its
// sign and resets both, and a minus sign makes the current value negative.
// Any other byte is skipped. Parsing stops at ';', at the end of s, or once
// MaxIntegers values are committed. A value still being accumulated when
// parsing stops is committed too, so both "1,2,;" and "1,2;" yield [1 2].
func ParseIntegers(s string) []int {
	out := make([]int, 0, MaxIntegers)
	val, sign := 0, 1
	pending := false

	for i := 0; i < len(s) && len(out) < MaxIntegers; i++ {
		c := s[i]
		switch {
		case c == ';':
			if pending {
				out = append(out, val*sign)
			}
			return out
		case c >= '0' && c <= '9':
			val = val*10 + int(c-'0')
			pending = true
		case c == ',':
			out = append(out, val*sign)
			val, sign = 0, 1
			pending = false
		case c == '-':
			sign = -1
		}
	}

	if pending && len(out) < MaxIntegers {
		out = append(out, val*sign)
	}
	return out
}
