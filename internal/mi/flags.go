// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package mi

import (
	"errors"
	"fmt"
	"math/bits"
	"slices"
	"strings"

	"github.com/kelindar/intmap"
)

var (
	// ErrUnknownFlag is returned when a frame flag name cannot be resolved
	ErrUnknownFlag = errors.New("unknown frame flag")
)

// Flag is a semantic event marker that can be attached to a frame.
type Flag uint32

// Frame flags, one bit each
const (
	Standing Flag = 1 << iota
	LeftFootfall
	RightFootfall
	LeftFootUp
	RightFootUp
	FireRelease
	CanInterrupt
	StartMotionHere
	EndMotionHere
	BlankTag1
	BlankTag2
	BlankTag3
	Trigger1
	MakeWeaponPhysical
	MakeWeaponNonPhysical
	BodyCollapse
	Trigger5
	WeaponCharge
	RobotSearchSound
	WeaponSwing
)

var flagNames = [...]string{
	"Standing", "LeftFootfall", "RightFootfall", "LeftFootUp", "RightFootUp",
	"FireRelease", "CanInterrupt", "StartMotionHere", "EndMotionHere",
	"BlankTag1", "BlankTag2", "BlankTag3", "Trigger1",
	"MakeWeaponPhysical", "MakeWeaponNonPhysical", "BodyCollapse",
	"Trigger5", "WeaponCharge", "RobotSearchSound", "WeaponSwing",
}

// String returns the name of a single flag, or the hexadecimal value of anything else.
func (f Flag) String() string {
	if bits.OnesCount32(uint32(f)) == 1 {
		if i := bits.TrailingZeros32(uint32(f)); i < len(flagNames) {
			return flagNames[i]
		}
	}
	return fmt.Sprintf("0x%X", uint32(f))
}

// ParseFlag resolves a flag from its name, case-insensitively.
func ParseFlag(name string) (Flag, error) {
	for i, n := range flagNames {
		if strings.EqualFold(n, name) {
			return Flag(1 << i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFlag, name)
}

// Split decomposes a bitmask into its individual flags, lowest bit first.
func Split(mask uint32) []Flag {
	var out []Flag
	for mask != 0 {
		bit := mask & -mask
		out = append(out, Flag(bit))
		mask &^= bit
	}
	return out
}

// Flags is a sparse mapping of frame numbers to flag bitmasks. Only flagged frames are
// stored and setting a frame twice combines the masks.
type Flags struct {
	frames *intmap.Map
}

// NewFlags creates an empty flag mapping.
func NewFlags() *Flags {
	return &Flags{
		frames: intmap.New(64, .95),
	}
}

// Set adds flags to a frame.
func (f *Flags) Set(frame int, mask uint32) {
	if mask == 0 {
		return
	}

	prev, _ := f.frames.Load(uint32(frame))
	f.frames.Store(uint32(frame), prev|mask)
}

// Add attaches named flags to a frame.
func (f *Flags) Add(frame int, flags ...Flag) {
	var mask uint32
	for _, flag := range flags {
		mask |= uint32(flag)
	}
	f.Set(frame, mask)
}

// Get returns the bitmask of a frame, zero when the frame is not flagged.
func (f *Flags) Get(frame int) uint32 {
	mask, _ := f.frames.Load(uint32(frame))
	return mask
}

// Bits returns the individual flags set on a frame.
func (f *Flags) Bits(frame int) []Flag {
	return Split(f.Get(frame))
}

// Len returns the number of flagged frames.
func (f *Flags) Len() int {
	if f == nil {
		return 0
	}
	return f.frames.Count()
}

// Frames returns the flagged frame numbers in ascending order.
func (f *Flags) Frames() []int {
	if f == nil {
		return nil
	}

	out := make([]int, 0, f.frames.Count())
	f.frames.Range(func(frame, _ uint32) bool {
		out = append(out, int(int32(frame)))
		return true
	})

	slices.Sort(out)
	return out
}
