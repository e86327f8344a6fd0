// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package mi reads and writes motion-info files: the header of a motion with its frame
// count, frame rate, stream table and sparse frame flags.
package mi

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"codeberg.org/go-mmap/mmap"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/joint"
)

var (
	// ErrInvalidFormat is returned when a motion-info file is truncated or inconsistent
	ErrInvalidFormat = errors.New("invalid motion info")
)

const (
	// HeaderSize is the size of the fixed header, in bytes
	HeaderSize = 112

	// FlagCountOffset is the position of the flagged-frame count, patched after the header
	FlagCountOffset = 0x68

	// NameSize is the capacity of the motion name field
	NameSize = 12
)

// Info describes a motion.
type Info struct {
	Creature joint.Creature
	Frames   int
	FPS      int
	Name     string
	Streams  []Stream // indexed by slot
	Flags    *Flags
}

// Stream is an entry of the stream table: which joint a storage slot of the channel file
// belongs to, and whether it holds the translation or a rotation.
type Stream struct {
	Translation bool
	Joint       int
	Slot        int
}

// Layout builds the stream table of a motion: the translation of the root joint in slot 0,
// then one rotation stream per distinct joint in ascending joint order.
func Layout(root int, rotations []int) []Stream {
	ids := slices.Clone(rotations)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	out := make([]Stream, 0, len(ids)+1)
	out = append(out, Stream{Translation: true, Joint: root, Slot: 0})
	for i, id := range ids {
		out = append(out, Stream{Joint: id, Slot: i + 1})
	}
	return out
}

// header is the fixed 112-byte layout. The frame count is stored as a float.
type header struct {
	_        [4]byte
	Creature uint32
	Frames   float32
	FPS      int32
	_        [4]byte
	Name     [NameSize]byte
	_        [64]byte
	Streams  int32
	_        [4]byte
	Flags    int32
	_        [4]byte
}

type streamRecord struct {
	Translation int32
	Joint       int32
	Slot        int32
}

type flagRecord struct {
	Frame int32
	Mask  uint32
}

// WriteHeader writes the fixed header and the stream table. The flagged-frame count is left
// at zero, AppendFlags patches it once the flags are known.
func WriteHeader(w io.Writer, info *Info) error {
	head := header{
		Creature: uint32(info.Creature),
		Frames:   float32(info.Frames),
		FPS:      int32(info.FPS),
		Streams:  int32(len(info.Streams)),
	}
	copy(head.Name[:], info.Name)

	if err := binary.Write(w, binary.LittleEndian, &head); err != nil {
		return err
	}

	for _, s := range info.Streams {
		rec := streamRecord{Joint: int32(s.Joint), Slot: int32(s.Slot)}
		if s.Translation {
			rec.Translation = 1
		}

		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return err
		}
	}
	return nil
}

// AppendFlags patches the flagged-frame count into the header, then appends one record per
// flagged frame at the end of the file, in ascending frame order.
func AppendFlags(f io.WriteSeeker, flags *Flags) error {
	if _, err := f.Seek(FlagCountOffset, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, int32(flags.Len())); err != nil {
		return err
	}

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return err
	}

	frames := flags.Frames()
	if len(frames) == 0 {
		return nil
	}

	records := make([]flagRecord, 0, len(frames))
	for _, frame := range frames {
		records = append(records, flagRecord{Frame: int32(frame), Mask: flags.Get(frame)})
	}
	return binary.Write(f, binary.LittleEndian, records)
}

// Open reads a motion-info file through a read-only memory map.
func Open(path string) (*Info, error) {
	file, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	defer file.Close()
	return Decode(file)
}

// Decode reads a motion-info file. Repeated flag records of a frame are combined.
func Decode(r io.Reader) (*Info, error) {
	var head header
	if err := read(r, &head, "header"); err != nil {
		return nil, err
	}

	switch {
	case head.Streams < 1:
		return nil, fmt.Errorf("%w: %d streams", ErrInvalidFormat, head.Streams)
	case head.Flags < 0:
		return nil, fmt.Errorf("%w: %d flagged frames", ErrInvalidFormat, head.Flags)
	case !validFrames(head.Frames) || head.FPS < 0:
		return nil, fmt.Errorf("%w: %v frames at %d fps", ErrInvalidFormat, head.Frames, head.FPS)
	}

	// Sized by the records actually read, not by the stored count.
	records := make([]streamRecord, 0, min(head.Streams, 64))
	for i := int32(0); i < head.Streams; i++ {
		var rec streamRecord
		if err := read(r, &rec, "stream table"); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	info := &Info{
		Creature: joint.Creature(head.Creature),
		Frames:   int(head.Frames),
		FPS:      int(head.FPS),
		Name:     name(head.Name[:]),
		Streams:  make([]Stream, len(records)),
		Flags:    NewFlags(),
	}

	seen := make([]bool, len(records))
	for i, rec := range records {
		if rec.Slot < 0 || rec.Slot >= head.Streams || seen[rec.Slot] {
			return nil, fmt.Errorf("%w: stream %d has slot %d", ErrInvalidFormat, i, rec.Slot)
		}

		seen[rec.Slot] = true
		info.Streams[rec.Slot] = Stream{
			Translation: rec.Translation == 1,
			Joint:       int(rec.Joint),
			Slot:        int(rec.Slot),
		}
	}

	for i := int32(0); i < head.Flags; i++ {
		var rec flagRecord
		if err := read(r, &rec, "frame flags"); err != nil {
			return nil, err
		}
		info.Flags.Set(int(rec.Frame), rec.Mask)
	}
	return info, nil
}

// validFrames reports whether a stored frame count is a finite value within the int32 range.
func validFrames(frames float32) bool {
	f := float64(frames)
	return !math.IsNaN(f) && f >= 0 && f <= math.MaxInt32
}

// Translation returns the translation stream, if any.
func (info *Info) Translation() (Stream, bool) {
	for _, s := range info.Streams {
		if s.Translation {
			return s, true
		}
	}
	return Stream{}, false
}

// name returns the logical name of a fixed-width name field, up to the first zero byte.
func name(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func read(r io.Reader, data any, what string) error {
	switch err := binary.Read(r, binary.LittleEndian, data); {
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		return fmt.Errorf("%w: truncated %s", ErrInvalidFormat, what)
	case err != nil:
		return fmt.Errorf("mi: failed to read %s: %w", what, err)
	default:
		return nil
	}
}
