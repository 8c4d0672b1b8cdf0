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

import (
	"fmt"

	"github.com/ganglink/ganglink-core/pkg/archive"
	"github.com/ganglink/ganglink-core/pkg/ganglion/samples"
)

// BeginRecording starts writing every incoming frame to path.
func (l *Link) BeginRecording(path string) error {
	return l.archive.BeginWrite(path)
}

// EndRecording finishes the active recording.
func (l *Link) EndRecording() error {
	return l.archive.CloseIf(archive.ModeWriting)
}

// OpenArchiveForReplay opens a recorded session for playback.
func (l *Link) OpenArchiveForReplay(path string) error {
	return l.archive.BeginRead(path)
}

// CloseArchive ends the active playback.
func (l *Link) CloseArchive() error {
	return l.archive.CloseIf(archive.ModeReading)
}

// SessionLength returns the number of frames in the open archive.
func (l *Link) SessionLength() int64 {
	return l.archive.Length()
}

// SessionPosition returns the index of the next frame to replay.
func (l *Link) SessionPosition() int64 {
	return l.archive.Position()
}

// SeekSession moves playback to pos, clamped to the session bounds, and
// returns the position actually set.
func (l *Link) SeekSession(pos int64) (int64, error) {
	return l.archive.Seek(pos)
}

// ProduceNextChannelValues replays one archived frame through the outputs,
// as if it had arrived from the device. It returns archive.ErrEndOfArchive
// once the session is exhausted.
func (l *Link) ProduceNextChannelValues() (samples.Values, error) {
	frame, err := l.archive.ReadNextFrame()
	if err != nil {
		return samples.Values{}, fmt.Errorf("replay: %w", err)
	}

	l.mu.Lock()
	l.lastFrame = frame
	l.hasFrame = true
	l.mu.Unlock()

	return l.pipeline.Process(frame), nil
}
