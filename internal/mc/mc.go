// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package mc reads and writes motion-channel files, which hold the raw per-frame samples of
// every storage slot described by the stream table of a motion-info file.
package mc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"codeberg.org/go-mmap/mmap"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/mi"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrFormatMismatch is returned when a channel file disagrees with its motion-info file
	ErrFormatMismatch = errors.New("channel file does not match motion info")

	// ErrInvalidFormat is returned when a channel file is truncated or its streams are inconsistent
	ErrInvalidFormat = errors.New("invalid channel file")
)

// Stream holds the samples of a storage slot, positions for the translation stream and
// quaternions for the rotation streams.
type Stream struct {
	Positions []r3.Vec
	Rotations []quat.Number
}

// Len returns the number of frames of the stream.
func (s Stream) Len() int {
	return max(len(s.Positions), len(s.Rotations))
}

// size returns the number of bytes of a frame sample.
func (s Stream) size() int {
	if s.Positions != nil {
		return 12
	}
	return 16
}

// Channels is the content of a channel file, indexed by storage slot.
type Channels struct {
	Slots []Stream
}

// Frames returns the number of frames, taken from the first slot.
func (c *Channels) Frames() int {
	if len(c.Slots) == 0 {
		return 0
	}
	return c.Slots[0].Len()
}

// dataStart returns where the first stream begins: past the slot count and the offset table,
// rounded up to the next 16-byte boundary. An already aligned table still gets 16 bytes of
// padding.
func dataStart(slots int) int {
	start := (slots + 1) * 4
	return start + 16 - start%16
}

// Encode writes a channel file: the slot count, the absolute offset of every stream, then
// the streams themselves as little-endian floats.
func Encode(w io.Writer, c *Channels) error {
	frames := c.Frames()
	for i, s := range c.Slots {
		if s.Len() != frames || (s.Positions != nil && s.Rotations != nil) {
			return fmt.Errorf("%w: slot %d has %d frames, expected %d", ErrInvalidFormat, i, s.Len(), frames)
		}
	}

	start := dataStart(len(c.Slots))
	table := make([]uint32, 0, len(c.Slots)+1)
	table = append(table, uint32(len(c.Slots)))
	for offset, i := start, 0; i < len(c.Slots); i++ {
		table = append(table, uint32(offset))
		offset += frames * c.Slots[i].size()
	}

	if err := binary.Write(w, binary.LittleEndian, table); err != nil {
		return err
	}
	if _, err := w.Write(make([]byte, start-4*len(table))); err != nil {
		return err
	}

	for _, s := range c.Slots {
		if err := binary.Write(w, binary.LittleEndian, encodeStream(s)); err != nil {
			return err
		}
	}
	return nil
}

func encodeStream(s Stream) []float32 {
	if s.Positions != nil {
		out := make([]float32, 0, 3*len(s.Positions))
		for _, v := range s.Positions {
			out = append(out, float32(v.X), float32(v.Y), float32(v.Z))
		}
		return out
	}

	out := make([]float32, 0, 4*len(s.Rotations))
	for _, q := range s.Rotations {
		out = append(out, float32(q.Real), float32(q.Imag), float32(q.Jmag), float32(q.Kmag))
	}
	return out
}

// Open reads the channel file paired with a motion-info file through a read-only memory map.
func Open(path string, info *mi.Info) (*Channels, error) {
	file, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	defer file.Close()
	return Decode(file, info)
}

// Decode reads a channel file. The slot count must match the number of streams of the
// motion-info file, which also tells the kind of each slot and the number of frames.
func Decode(r io.ReaderAt, info *mi.Info) (*Channels, error) {
	var head [4]byte
	if n, _ := r.ReadAt(head[:], 0); n < len(head) {
		return nil, fmt.Errorf("%w: truncated header", ErrInvalidFormat)
	}

	count := binary.LittleEndian.Uint32(head[:])
	if int(count) != len(info.Streams) {
		return nil, fmt.Errorf("%w: %d slots, motion info has %d streams", ErrFormatMismatch, count, len(info.Streams))
	}

	offsets := make([]uint32, count)
	if err := binary.Read(io.NewSectionReader(r, 4, int64(4*count)), binary.LittleEndian, offsets); err != nil {
		return nil, fmt.Errorf("%w: truncated offset table", ErrInvalidFormat)
	}

	out := &Channels{Slots: make([]Stream, count)}
	for slot, offset := range offsets {
		stream := info.Streams[slot]
		width := 4
		if stream.Translation {
			width = 3
		}

		size := int64(4 * width * info.Frames)
		if n, _ := r.ReadAt(head[:1], int64(offset)+size-1); size > 0 && n < 1 {
			return nil, fmt.Errorf("%w: truncated stream in slot %d", ErrInvalidFormat, slot)
		}

		values := make([]float32, width*info.Frames)
		if err := binary.Read(io.NewSectionReader(r, int64(offset), int64(4*len(values))), binary.LittleEndian, values); err != nil {
			return nil, fmt.Errorf("%w: truncated stream in slot %d", ErrInvalidFormat, slot)
		}

		out.Slots[slot] = decodeStream(values, stream.Translation)
	}
	return out, nil
}

func decodeStream(values []float32, translation bool) Stream {
	if translation {
		out := make([]r3.Vec, 0, len(values)/3)
		for i := 0; i+3 <= len(values); i += 3 {
			out = append(out, r3.Vec{X: float64(values[i]), Y: float64(values[i+1]), Z: float64(values[i+2])})
		}
		return Stream{Positions: out}
	}

	out := make([]quat.Number, 0, len(values)/4)
	for i := 0; i+4 <= len(values); i += 4 {
		out = append(out, quat.Number{
			Real: float64(values[i]),
			Imag: float64(values[i+1]),
			Jmag: float64(values[i+2]),
			Kmag: float64(values[i+3]),
		})
	}
	return Stream{Rotations: out}
}
