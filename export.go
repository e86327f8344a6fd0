// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package motion

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/bvh"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/fsutil"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/joint"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/mc"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/mi"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/rotation"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Export converts a motion into the binary motion files <dst>.mi and <dst>_.mc, attaching
// the frame flags to the motion info. The motion goes through its text form, exactly as
// a motion read with ExportText would. Nothing is written unless the whole conversion
// succeeds.
func (c *Converter) Export(m *Motion, dst string, flags *Flags) error {
	var text bytes.Buffer
	if err := bvh.Write(&text, m); err != nil {
		return fmt.Errorf("motion: unable to write text motion: %w", err)
	}

	return c.export(text.Bytes(), dst, flags)
}

// ExportText converts a text motion into the binary motion files <dst>.mi and <dst>_.mc.
func (c *Converter) ExportText(r io.Reader, dst string, flags *Flags) error {
	text, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("motion: unable to read text motion: %w", err)
	}

	return c.export(text, dst, flags)
}

func (c *Converter) export(text []byte, dst string, flags *Flags) error {
	dst = trimExt(dst, ".mi")
	m, err := bvh.Parse(bytes.NewReader(text))
	if err != nil {
		return fmt.Errorf("motion: unable to parse text motion: %w", err)
	}

	if c.maxFrames > 0 && len(m.Frames) > c.maxFrames {
		return fmt.Errorf("motion: %w: %d frames, at most %d are allowed", ErrTooManyFrames, len(m.Frames), c.maxFrames)
	}

	names, err := c.jointMap(c.mapFile, c.creature)
	if err != nil {
		return err
	}

	info, channels, err := encode(m, names)
	if err != nil {
		return fmt.Errorf("motion: unable to convert '%s': %w", dst, err)
	}

	info.Creature = c.creature
	info.Name = filepath.Base(dst)
	info.Flags = flags

	if err := c.write(dst, text, info, channels); err != nil {
		return err
	}

	c.logger.Info("exported motion",
		"file", dst,
		"frames", info.Frames,
		"fps", info.FPS,
		"streams", len(info.Streams),
		"flags", flags.Len())
	return nil
}

// write stages every output file and promotes them together once all of them are complete.
func (c *Converter) write(dst string, text []byte, info *mi.Info, channels *mc.Channels) error {
	var stage fsutil.Stage
	defer stage.Abort()

	infoFile, err := stage.Create(dst + ".mi")
	if err != nil {
		return fmt.Errorf("motion: %w", err)
	}

	if err := mi.WriteHeader(infoFile, info); err != nil {
		return fmt.Errorf("motion: unable to write motion info: %w", err)
	}
	if err := mi.AppendFlags(infoFile, info.Flags); err != nil {
		return fmt.Errorf("motion: unable to write frame flags: %w", err)
	}

	channelFile, err := stage.Create(dst + "_.mc")
	if err != nil {
		return fmt.Errorf("motion: %w", err)
	}

	buffer := bufio.NewWriter(channelFile)
	if err := mc.Encode(buffer, channels); err != nil {
		return fmt.Errorf("motion: unable to write motion channels: %w", err)
	}
	if err := buffer.Flush(); err != nil {
		return fmt.Errorf("motion: unable to write motion channels: %w", err)
	}

	if c.keepText {
		textFile, err := stage.Create(dst + ".bvh")
		if err != nil {
			return fmt.Errorf("motion: %w", err)
		}
		if _, err := textFile.Write(text); err != nil {
			return fmt.Errorf("motion: unable to write text motion: %w", err)
		}
	}

	return stage.Commit()
}

// encode maps the tracks of a motion onto storage slots. The first track must be a position
// group, it becomes the translation stream of its joint. Every rotation group becomes the
// quaternion stream of its joint while other position groups are not stored.
func encode(m *Motion, names *joint.Map) (*mi.Info, *mc.Channels, error) {
	tracks := m.Channels()
	if len(tracks) == 0 || tracks[0].Kind != bvh.Position {
		return nil, nil, fmt.Errorf("%w: the first channel must be a position", ErrIncompatibleChannels)
	}

	root := names.Index(tracks[0].Joint.Name)
	joints := make([]int, len(tracks))
	rotations := make(map[int][]quat.Number)
	for i, t := range tracks[1:] {
		if t.Kind != bvh.Rotation {
			joints[i+1] = -1
			continue
		}

		id := names.Index(t.Joint.Name)
		if _, ok := rotations[id]; ok {
			return nil, nil, fmt.Errorf("%w: joint %d (%s) is rotated twice", ErrIncompatibleChannels, id, t.Joint.Name)
		}

		joints[i+1] = id
		rotations[id] = make([]quat.Number, 0, len(m.Frames))
	}

	positions := make([]r3.Vec, 0, len(m.Frames))
	for _, frame := range m.Frames {
		positions = append(positions, tracks[0].XYZ(frame[0]))
		for i := 1; i < len(tracks); i++ {
			if id := joints[i]; id >= 0 {
				rotations[id] = append(rotations[id], rotation.FromEuler(tracks[i].XYZ(frame[i])))
			}
		}
	}

	ids := make([]int, 0, len(rotations))
	for id := range rotations {
		ids = append(ids, id)
	}

	info := &mi.Info{
		Frames:  len(m.Frames),
		FPS:     m.FPS(),
		Streams: mi.Layout(root, ids),
	}

	channels := &mc.Channels{Slots: make([]mc.Stream, len(info.Streams))}
	channels.Slots[0] = mc.Stream{Positions: positions}
	for _, s := range info.Streams[1:] {
		channels.Slots[s.Slot] = mc.Stream{Rotations: rotations[s.Joint]}
	}
	return info, channels, nil
}

// trimExt removes an extension from a path, ignoring case.
func trimExt(path, ext string) string {
	if strings.EqualFold(filepath.Ext(path), ext) {
		return path[:len(path)-len(ext)]
	}
	return path
}
