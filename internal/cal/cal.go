// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package cal reads and writes the calibration files describing the rest pose of a
// creature: rigid torsos with fixed attachments, and articulated limb chains.
package cal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"codeberg.org/go-mmap/mmap"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrInvalidFormat is returned when a calibration file is truncated or inconsistent
	ErrInvalidFormat = errors.New("invalid calibration file")
)

// maxEntries is the capacity of the fixed-size arrays of torso and limb records.
const maxEntries = 16

// Calibration is the decoded content of a calibration file.
type Calibration struct {
	Torsos []Torso
	Limbs  []Limb
	Scale  float32
}

// Torso is a rigid cluster: a joint and the joints fixed to it at constant offsets.
type Torso struct {
	Joint  int
	Parent int // -1 when the torso is not attached to another one
	Fixed  []Fixed
}

// Fixed is a joint rigidly attached to a torso.
type Fixed struct {
	Joint  int
	Offset r3.Vec
}

// Limb is a chain of articulated segments hanging from a torso, starting at a joint.
type Limb struct {
	Torso    int
	Start    int
	Segments []Segment
}

// Segment is a link of a limb, its offset from the previous joint being Direction * Length.
type Segment struct {
	Joint     int
	Direction r3.Vec
	Length    float64
}

// Offset returns the rest offset of the segment from the previous joint of the chain.
func (s Segment) Offset() r3.Vec {
	return r3.Scale(s.Length, s.Direction)
}

// header is the preamble of a calibration file
type header struct {
	_      [4]byte
	Torsos int32
	Limbs  int32
}

// torsoRecord is the on-disk layout of a torso, 268 bytes.
type torsoRecord struct {
	Joint   int32
	Parent  int32
	Count   int32
	Fixed   [maxEntries]int32
	Offsets [maxEntries][3]float32
}

// limbRecord is the on-disk layout of a limb, 302 bytes.
type limbRecord struct {
	Torso      int32
	_          [4]byte
	Count      int32
	Start      uint16
	Segments   [maxEntries]uint16
	Directions [maxEntries][3]float32
	Lengths    [maxEntries]float32
}

// Open reads a calibration file through a read-only memory map.
func Open(path string) (*Calibration, error) {
	file, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	defer file.Close()
	return Decode(file)
}

// Decode reads a calibration file.
func Decode(r io.Reader) (*Calibration, error) {
	var head header
	if err := read(r, &head, "header"); err != nil {
		return nil, err
	}

	if head.Torsos < 0 || head.Limbs < 0 {
		return nil, fmt.Errorf("%w: %d torsos, %d limbs", ErrInvalidFormat, head.Torsos, head.Limbs)
	}

	out := &Calibration{
		Torsos: make([]Torso, 0, head.Torsos),
		Limbs:  make([]Limb, 0, head.Limbs),
	}

	for i := int32(0); i < head.Torsos; i++ {
		var rec torsoRecord
		if err := read(r, &rec, "torso"); err != nil {
			return nil, err
		}
		if rec.Count < 0 || rec.Count > maxEntries {
			return nil, fmt.Errorf("%w: torso %d has %d fixed joints", ErrInvalidFormat, i, rec.Count)
		}

		torso := Torso{Joint: int(rec.Joint), Parent: int(rec.Parent)}
		for k := int32(0); k < rec.Count; k++ {
			torso.Fixed = append(torso.Fixed, Fixed{
				Joint:  int(rec.Fixed[k]),
				Offset: vec(rec.Offsets[k]),
			})
		}
		out.Torsos = append(out.Torsos, torso)
	}

	for i := int32(0); i < head.Limbs; i++ {
		var rec limbRecord
		if err := read(r, &rec, "limb"); err != nil {
			return nil, err
		}
		if rec.Count < 0 || rec.Count > maxEntries {
			return nil, fmt.Errorf("%w: limb %d has %d segments", ErrInvalidFormat, i, rec.Count)
		}

		limb := Limb{Torso: int(rec.Torso), Start: int(rec.Start)}
		for k := int32(0); k < rec.Count; k++ {
			limb.Segments = append(limb.Segments, Segment{
				Joint:     int(rec.Segments[k]),
				Direction: vec(rec.Directions[k]),
				Length:    float64(rec.Lengths[k]),
			})
		}
		out.Limbs = append(out.Limbs, limb)
	}

	if err := read(r, &out.Scale, "scale"); err != nil {
		return nil, err
	}
	return out, nil
}

// Encode writes a calibration file.
func Encode(w io.Writer, c *Calibration) error {
	head := header{Torsos: int32(len(c.Torsos)), Limbs: int32(len(c.Limbs))}
	if err := binary.Write(w, binary.LittleEndian, &head); err != nil {
		return err
	}

	for i, torso := range c.Torsos {
		if len(torso.Fixed) > maxEntries {
			return fmt.Errorf("%w: torso %d has %d fixed joints", ErrInvalidFormat, i, len(torso.Fixed))
		}

		rec := torsoRecord{Joint: int32(torso.Joint), Parent: int32(torso.Parent), Count: int32(len(torso.Fixed))}
		for k, f := range torso.Fixed {
			rec.Fixed[k] = int32(f.Joint)
			rec.Offsets[k] = arr(f.Offset)
		}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return err
		}
	}

	for i, limb := range c.Limbs {
		if len(limb.Segments) > maxEntries {
			return fmt.Errorf("%w: limb %d has %d segments", ErrInvalidFormat, i, len(limb.Segments))
		}

		rec := limbRecord{Torso: int32(limb.Torso), Count: int32(len(limb.Segments)), Start: uint16(limb.Start)}
		for k, s := range limb.Segments {
			rec.Segments[k] = uint16(s.Joint)
			rec.Directions[k] = arr(s.Direction)
			rec.Lengths[k] = float32(s.Length)
		}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return err
		}
	}

	return binary.Write(w, binary.LittleEndian, c.Scale)
}

func read(r io.Reader, data any, what string) error {
	switch err := binary.Read(r, binary.LittleEndian, data); {
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		return fmt.Errorf("%w: truncated %s", ErrInvalidFormat, what)
	case err != nil:
		return fmt.Errorf("cal: failed to read %s: %w", what, err)
	default:
		return nil
	}
}

func vec(v [3]float32) r3.Vec {
	return r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}

func arr(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}
