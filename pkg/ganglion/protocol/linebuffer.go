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

import (
	"bytes"

	"github.com/rs/zerolog/log"
)

const (
	// MinLineLength is the shortest line worth classifying. Anything shorter
	// is noise or a fragment.
	MinLineLength = 6
	// MaxBuffered caps how many unterminated bytes are kept between reads.
	MaxBuffered = 8192
)

// LineBuffer accumulates raw bytes from successive reads and splits them
// into ';' terminated lines. It is not safe for concurrent use; the reader
// loop owns it.
type LineBuffer struct {
	buf []byte
}

// Write appends p to the buffer. It never fails.
func (b *LineBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// Len returns the number of buffered bytes not yet returned as lines.
func (b *LineBuffer) Len() int {
	return len(b.buf)
}

// Reset drops everything buffered.
func (b *LineBuffer) Reset() {
	b.buf = b.buf[:0]
}

// Lines returns every complete line currently buffered, in arrival order,
// and keeps the unterminated tail for the next call. Returned lines include
// their ';' terminator; the newline after it is consumed. Lines shorter than
// MinLineLength are dropped.
func (b *LineBuffer) Lines() []string {
	var lines []string
	for {
		i := bytes.IndexByte(b.buf, ';')
		if i < 0 {
			break
		}

		line := bytes.TrimLeft(b.buf[:i+1], "\r\n")
		if len(line) >= MinLineLength {
			lines = append(lines, string(line))
		}

		next := i + 1
		if next < len(b.buf) && b.buf[next] == '\r' {
			next++
		}
		if next < len(b.buf) && b.buf[next] == '\n' {
			next++
		}
		b.buf = b.buf[next:]
	}

	if len(b.buf) > MaxBuffered {
		log.Warn().Int("bytes", len(b.buf)).Msg("line buffer overflow, discarding unterminated data")
		b.buf = nil
	}

	// compact so the backing array does not grow without bound
	if len(b.buf) == 0 {
		b.buf = b.buf[:0:0]
	} else if cap(b.buf) > 2*MaxBuffered {
		b.buf = append([]byte(nil), b.buf...)
	}

	return lines
}
