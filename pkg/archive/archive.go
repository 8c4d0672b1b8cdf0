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

// Package archive records raw Ganglion sample frames to a flat file and
// plays them back.
//
// An archive has no header: it is a sequence of frames, each five
// little-endian int32 values (marker then four channel counts). The layout
// matches archives written by earlier Windows tools, so files round-trip
// byte for byte.
package archive

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ganglink/ganglink-core/pkg/ganglion/samples"
	"github.com/ganglink/ganglink-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	// FrameSize is the size of one stored frame in bytes.
	FrameSize = samples.FrameLen * 4
	// Extension is the conventional archive file extension.
	Extension = ".gla"
)

var (
	// ErrModeConflict is returned when starting a read or write session
	// while another session is open.
	ErrModeConflict = errors.New("archive already open in another mode")
	ErrNotWriting   = errors.New("archive not open for writing")
	ErrNotReading   = errors.New("archive not open for reading")
	// ErrEndOfArchive is returned when no complete frame remains.
	ErrEndOfArchive = errors.New("end of archive")
	// ErrInvalidPath is returned by ResolvePath for paths outside the
	// archive directory or without the archive extension.
	ErrInvalidPath = errors.New("invalid archive path")
)

// Mode is the archive's current session type.
type Mode int

const (
	ModeClosed Mode = iota
	ModeWriting
	ModeReading
)

func (m Mode) String() string {
	switch m {
	case ModeWriting:
		return "writing"
	case ModeReading:
		return "reading"
	default:
		return "closed"
	}
}

// Info is a point-in-time view of an archive session.
type Info struct {
	RecordedAt time.Time `json:"recordedAt"`
	Path       string    `json:"path"`
	Mode       string    `json:"mode"`
	Length     int64     `json:"length"`
	Position   int64     `json:"position"`
}

// Archive owns at most one open archive file.
type Archive struct {
	fs         afero.Fs
	file       afero.File
	w          *bufio.Writer
	recordedAt time.Time
	path       string
	buf        [FrameSize]byte
	length     int64
	pos        int64
	mode       Mode
	mu         syncutil.Mutex
}

// New returns a closed archive using fs for all file access.
func New(fs afero.Fs) *Archive {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Archive{fs: fs}
}

// DefaultName returns a timestamped archive file name.
func DefaultName(now time.Time) string {
	return "ganglion-" + now.Format("20060102-150405") + Extension
}

// ResolvePath resolves name against dir. An empty name gets a timestamped
// file name. The result must stay inside dir and carry Extension.
func ResolvePath(dir, name string, now time.Time) (string, error) {
	if name == "" {
		return filepath.Join(dir, DefaultName(now)), nil
	}
	if strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: contains NUL", ErrInvalidPath)
	}
	if filepath.Ext(name) != Extension {
		return "", fmt.Errorf("%w: %q must end in %s", ErrInvalidPath, name, Extension)
	}

	dir = filepath.Clean(dir)
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." ||
		strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q is outside %s", ErrInvalidPath, name, dir)
	}
	return path, nil
}

// BeginWrite creates path, truncating any existing file, and starts a
// recording session.
func (a *Archive) BeginWrite(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode != ModeClosed {
		return fmt.Errorf("%w: %s is %s", ErrModeConflict, a.path, a.mode)
	}

	f, err := a.fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", path, err)
	}

	a.file = f
	a.w = bufio.NewWriter(f)
	a.path = path
	a.mode = ModeWriting
	a.length = 0
	a.pos = 0
	a.recordedAt = time.Now()

	log.Info().Str("path", path).Msg("archive recording started")
	return nil
}

// BeginRead opens an existing archive for playback. The session length is
// derived from the file size; a trailing partial frame is not counted.
func (a *Archive) BeginRead(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode != ModeClosed {
		return fmt.Errorf("%w: %s is %s", ErrModeConflict, a.path, a.mode)
	}

	f, err := a.fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to stat archive %s: %w", path, err)
	}
	if fi.IsDir() {
		_ = f.Close()
		return fmt.Errorf("failed to open archive %s: is a directory", path)
	}

	a.file = f
	a.path = path
	a.mode = ModeReading
	a.length = fi.Size() / FrameSize
	a.pos = 0
	a.recordedAt = fi.ModTime()

	log.Info().
		Str("path", path).
		Int64("frames", a.length).
		Time("recorded_at", a.recordedAt).
		Msg("archive opened for playback")
	return nil
}

// AppendFrame writes one frame. It fails unless a recording is active.
func (a *Archive) AppendFrame(f samples.Frame) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode != ModeWriting {
		return ErrNotWriting
	}
	return a.appendLocked(f)
}

// AppendIfWriting writes f when a recording is active and reports whether
// it did.
func (a *Archive) AppendIfWriting(f samples.Frame) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode != ModeWriting {
		return false, nil
	}
	if err := a.appendLocked(f); err != nil {
		return false, err
	}
	return true, nil
}

func (a *Archive) appendLocked(f samples.Frame) error {
	encodeFrame(a.buf[:], f)
	if _, err := a.w.Write(a.buf[:]); err != nil {
		return fmt.Errorf("failed to write archive frame: %w", err)
	}
	a.length++
	a.pos = a.length
	return nil
}

// ReadNextFrame returns the frame at the current position and advances by
// one. It returns ErrEndOfArchive once the last complete frame was read.
func (a *Archive) ReadNextFrame() (samples.Frame, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var f samples.Frame
	if a.mode != ModeReading {
		return f, ErrNotReading
	}
	if a.pos >= a.length {
		return f, ErrEndOfArchive
	}

	if _, err := io.ReadFull(a.file, a.buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return f, ErrEndOfArchive
		}
		return f, fmt.Errorf("failed to read archive frame: %w", err)
	}

	a.pos++
	return decodeFrame(a.buf[:]), nil
}

// Seek moves playback to frame pos, clamped to [0, Length].
func (a *Archive) Seek(pos int64) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode != ModeReading {
		return 0, ErrNotReading
	}

	pos = max(0, min(pos, a.length))
	if _, err := a.file.Seek(pos*FrameSize, io.SeekStart); err != nil {
		return a.pos, fmt.Errorf("failed to seek archive: %w", err)
	}
	a.pos = pos
	return pos, nil
}

// Close flushes and closes the open file. Closing a closed archive is a
// no-op.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode == ModeClosed {
		return nil
	}
	return a.closeLocked()
}

// CloseIf closes the archive only when it is open in mode. It returns
// ErrNotWriting or ErrNotReading otherwise.
func (a *Archive) CloseIf(mode Mode) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode != mode || mode == ModeClosed {
		if mode == ModeWriting {
			return ErrNotWriting
		}
		return ErrNotReading
	}
	return a.closeLocked()
}

func (a *Archive) closeLocked() error {
	var errs []error
	if a.w != nil {
		if err := a.w.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush archive: %w", err))
		}
	}
	if err := a.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close archive: %w", err))
	}

	log.Info().
		Str("path", a.path).
		Str("mode", a.mode.String()).
		Int64("frames", a.length).
		Msg("archive closed")

	a.file = nil
	a.w = nil
	a.mode = ModeClosed
	a.path = ""
	a.length = 0
	a.pos = 0
	a.recordedAt = time.Time{}

	return errors.Join(errs...)
}

// Mode returns the current session type.
func (a *Archive) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// Path returns the file backing the current session, empty when closed.
func (a *Archive) Path() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.path
}

// Length returns the number of frames in the session: the file's frame
// count when reading, frames written so far when recording, else 0.
func (a *Archive) Length() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.length
}

// Position returns the index of the next frame to read.
func (a *Archive) Position() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pos
}

// Info returns a snapshot of the session.
func (a *Archive) Info() Info {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Info{
		Path:       a.path,
		Mode:       a.mode.String(),
		Length:     a.length,
		Position:   a.pos,
		RecordedAt: a.recordedAt,
	}
}

// RecordedAt returns the archive's modification time when reading, or the
// session start when recording.
func (a *Archive) RecordedAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recordedAt
}

func encodeFrame(dst []byte, f samples.Frame) {
	for i, v := range f {
		binary.LittleEndian.PutUint32(dst[i*4:], uint32(v))
	}
}

func decodeFrame(src []byte) samples.Frame {
	var f samples.Frame
	for i := range f {
		f[i] = int32(binary.LittleEndian.Uint32(src[i*4:]))
	}
	return f
}
