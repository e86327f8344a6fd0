// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package bvh reads and writes the hierarchical text motion format used as the interchange
// form between the binary motion files and the host application.
package bvh

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrSyntax is returned for any malformed statement of a text motion
	ErrSyntax = errors.New("syntax error")

	// ErrMalformedNumber is returned when a numeric field cannot be parsed
	ErrMalformedNumber = errors.New("malformed number")

	// ErrUnexpectedEOF is returned when the input ends before the motion is complete
	ErrUnexpectedEOF = errors.New("unexpected end of input")

	// ErrInvalidMotion is returned when writing a motion whose frames do not match its channels
	ErrInvalidMotion = errors.New("invalid motion")
)

// SyntaxError describes a parse failure at a given 1-based line of the input.
type SyntaxError struct {
	Line int
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("bvh: line %d: %s", e.Line, e.Msg)
}

// Unwrap exposes the failure kind. Malformed numbers are also syntax errors, while a
// premature end of input is reported on its own.
func (e *SyntaxError) Unwrap() []error {
	switch {
	case e.Err == nil:
		return []error{ErrSyntax}
	case errors.Is(e.Err, ErrUnexpectedEOF), errors.Is(e.Err, ErrSyntax):
		return []error{e.Err}
	default:
		return []error{ErrSyntax, e.Err}
	}
}

// ---------------------------------- Channels ----------------------------------

// Kind is the kind of a channel group.
type Kind uint8

// Channel kinds
const (
	Position Kind = iota
	Rotation
)

// String returns the suffix used for the kind in channel names.
func (k Kind) String() string {
	switch k {
	case Position:
		return "position"
	case Rotation:
		return "rotation"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Channel is a group of three animated components of a joint, listed in the Order of their
// axes (for example "ZYX").
type Channel struct {
	Kind  Kind
	Order string
}

// Channels in canonical axis order
var (
	PositionXYZ = Channel{Kind: Position, Order: "XYZ"}
	RotationXYZ = Channel{Kind: Rotation, Order: "XYZ"}
)

// XYZ rearranges a sample given in the channel's axis order into X, Y, Z.
func (c Channel) XYZ(v r3.Vec) r3.Vec {
	in := [3]float64{v.X, v.Y, v.Z}
	return r3.Vec{
		X: in[strings.IndexByte(c.Order, 'X')],
		Y: in[strings.IndexByte(c.Order, 'Y')],
		Z: in[strings.IndexByte(c.Order, 'Z')],
	}
}

// names returns the declared component names, such as "Zrotation".
func (c Channel) names() []string {
	out := make([]string, 0, 3)
	for _, axis := range c.Order {
		out = append(out, string(axis)+c.Kind.String())
	}
	return out
}

// Track binds a channel to its joint. The tracks of a motion give the column layout of
// its frames.
type Track struct {
	Joint *Joint
	Channel
}

// ---------------------------------- Joints ----------------------------------

// Joint is a node of the skeleton. Leaves of the text format carry no name, they are kept
// as End Site offsets of their parent.
type Joint struct {
	Name     string
	Parent   *Joint
	Offset   r3.Vec
	Channels []Channel
	Children []*Joint
	EndSites []r3.Vec
}

// Add appends a child joint and returns it.
func (j *Joint) Add(child *Joint) *Joint {
	child.Parent = j
	j.Children = append(j.Children, child)
	return child
}

// DOF returns the number of animated components of the joint.
func (j *Joint) DOF() int {
	return 3 * len(j.Channels)
}

// walk visits the joint and its descendants in pre-order.
func (j *Joint) walk(fn func(*Joint)) {
	fn(j)
	for _, c := range j.Children {
		c.walk(fn)
	}
}

// ---------------------------------- Motion ----------------------------------

// Motion is a skeleton forest with its sampled frames. Each frame holds one 3-vector per
// track, in the axis order declared by that track.
type Motion struct {
	Roots     []*Joint
	FrameTime float64
	Frames    [][]r3.Vec
}

// Walk visits every joint of the motion in pre-order.
func (m *Motion) Walk(fn func(*Joint)) {
	for _, root := range m.Roots {
		root.walk(fn)
	}
}

// Channels returns the tracks of the motion in pre-order discovery order.
func (m *Motion) Channels() []Track {
	var out []Track
	m.Walk(func(j *Joint) {
		for _, c := range j.Channels {
			out = append(out, Track{Joint: j, Channel: c})
		}
	})
	return out
}

// Find returns the first joint with the given name, or nil.
func (m *Motion) Find(name string) (found *Joint) {
	m.Walk(func(j *Joint) {
		if found == nil && j.Name == name {
			found = j
		}
	})
	return
}

// FPS returns the frame rate, 1 / frame time rounded to 3 decimals then truncated.
func (m *Motion) FPS() int {
	if m.FrameTime <= 0 {
		return 0
	}
	return int(math.Round(1000/m.FrameTime) / 1000)
}
