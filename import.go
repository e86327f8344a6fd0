// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package motion

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/bvh"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/cal"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/fsutil"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/mc"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/mi"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/rotation"
	"gonum.org/v1/gonum/spatial/r3"
)

// Import is the result of reading a binary motion.
type Import struct {
	Info   *Info   // Header of the motion info file
	Motion *Motion // Skeleton of the calibration with the decoded frames
	Flags  *Flags  // Flagged frames
}

// Import reads a binary motion: the motion info file at miPath, the channel file next to
// it and the configured calibration. Joints are named through the configured import map,
// or the builtin table of the creature stored in the motion.
func (c *Converter) Import(miPath string) (*Import, error) {
	info, err := mi.Open(miPath)
	if err != nil {
		return nil, fmt.Errorf("motion: unable to read motion info '%s': %w", miPath, invalid(err))
	}

	mcPath := trimExt(miPath, ".mi") + "_.mc"
	channels, err := mc.Open(mcPath, info)
	if err != nil {
		return nil, fmt.Errorf("motion: unable to read motion channels '%s': %w", mcPath, invalid(err))
	}

	calibration, err := c.loadCalibration(c.calibration)
	if err != nil {
		return nil, err
	}

	names, err := c.jointMap(c.importMap, info.Creature)
	if err != nil {
		return nil, err
	}

	roots, components := calibration.Skeleton().Hierarchy(names)
	m := &Motion{
		Roots:     roots,
		FrameTime: frameTime(info.FPS),
		Frames:    decode(info, channels, components),
	}

	c.logger.Debug("imported motion",
		"file", miPath,
		"creature", info.Creature,
		"frames", info.Frames,
		"streams", len(info.Streams),
		"components", len(components))

	if err := c.keep(trimExt(miPath, ".mi")+".bvh", m); err != nil {
		return nil, err
	}

	return &Import{Info: info, Motion: m, Flags: info.Flags}, nil
}

// ImportSkeleton reads a calibration and returns its skeleton as a motion without frames.
// Joints are named through the configured import map, or the builtin table of the
// configured creature.
func (c *Converter) ImportSkeleton(calPath string) (*Motion, error) {
	calibration, err := cal.Open(calPath)
	if err != nil {
		return nil, fmt.Errorf("motion: unable to read calibration '%s': %w", calPath, invalid(err))
	}

	names, err := c.jointMap(c.importMap, c.creature)
	if err != nil {
		return nil, err
	}

	roots, _ := calibration.Skeleton().Hierarchy(names)
	m := &Motion{
		Roots:     roots,
		FrameTime: frameTime(30),
	}

	if err := c.keep(trimExt(calPath, filepath.Ext(calPath))+".bvh", m); err != nil {
		return nil, err
	}
	return m, nil
}

// keep writes the text form of an imported motion when text retention is enabled.
func (c *Converter) keep(path string, m *Motion) error {
	if !c.keepText {
		return nil
	}

	var text bytes.Buffer
	if err := bvh.Write(&text, m); err != nil {
		return fmt.Errorf("motion: unable to write text motion: %w", err)
	}
	if err := fsutil.WriteFile(path, text.Bytes()); err != nil {
		return fmt.Errorf("motion: %w", err)
	}
	return nil
}

// decode builds the frames of the components. Components with 6 degrees of freedom take the
// translation sample of their joint, or their rest offset when the joint has no translation
// stream. Rotations without a stream are left at zero.
func decode(info *mi.Info, channels *mc.Channels, components []cal.Component) [][]r3.Vec {
	translations := make(map[int]mc.Stream)
	rotations := make(map[int]mc.Stream)
	for _, s := range info.Streams {
		if s.Translation {
			translations[s.Joint] = channels.Slots[s.Slot]
		} else {
			rotations[s.Joint] = channels.Slots[s.Slot]
		}
	}

	frames := make([][]r3.Vec, 0, info.Frames)
	for f := 0; f < info.Frames; f++ {
		frame := make([]r3.Vec, 0, 2*len(components))
		for _, co := range components {
			if co.DOF == 6 {
				if s, ok := translations[co.Joint]; ok {
					frame = append(frame, s.Positions[f])
				} else {
					frame = append(frame, co.Offset)
				}
			}

			if s, ok := rotations[co.Joint]; ok {
				frame = append(frame, rotation.ToEuler(s.Rotations[f]))
			} else {
				frame = append(frame, r3.Vec{})
			}
		}
		frames = append(frames, frame)
	}
	return frames
}

// frameTime returns the duration of a frame at the given rate, zero for an unknown rate.
func frameTime(fps int) float64 {
	if fps <= 0 {
		return 0
	}
	return 1 / float64(fps)
}
