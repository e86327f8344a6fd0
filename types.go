package motion

import (
	"io"

	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/bvh"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/joint"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/mi"
)

type (
	// Motion is a skeleton forest with its sampled frames, as in the text motion format.
	Motion = bvh.Motion

	// Joint is a node of a skeleton.
	Joint = bvh.Joint

	// Channel is a group of three animated components of a joint.
	Channel = bvh.Channel

	// Track binds a channel to its joint.
	Track = bvh.Track

	// SyntaxError describes a parse failure of a text motion at a given line.
	SyntaxError = bvh.SyntaxError

	// Info describes a binary motion: creature, frame count, stream table and flags.
	Info = mi.Info

	// Flag is a semantic event marker attached to a frame.
	Flag = mi.Flag

	// Flags is a sparse mapping of frames to flag bitmasks.
	Flags = mi.Flags

	// Creature is the creature-type code stored in binary motions.
	Creature = joint.Creature
)

// Channels in canonical axis order
var (
	PositionXYZ = bvh.PositionXYZ
	RotationXYZ = bvh.RotationXYZ
)

// Frame flags
const (
	Standing              = mi.Standing
	LeftFootfall          = mi.LeftFootfall
	RightFootfall         = mi.RightFootfall
	LeftFootUp            = mi.LeftFootUp
	RightFootUp           = mi.RightFootUp
	FireRelease           = mi.FireRelease
	CanInterrupt          = mi.CanInterrupt
	StartMotionHere       = mi.StartMotionHere
	EndMotionHere         = mi.EndMotionHere
	BlankTag1             = mi.BlankTag1
	BlankTag2             = mi.BlankTag2
	BlankTag3             = mi.BlankTag3
	Trigger1              = mi.Trigger1
	MakeWeaponPhysical    = mi.MakeWeaponPhysical
	MakeWeaponNonPhysical = mi.MakeWeaponNonPhysical
	BodyCollapse          = mi.BodyCollapse
	Trigger5              = mi.Trigger5
	WeaponCharge          = mi.WeaponCharge
	RobotSearchSound      = mi.RobotSearchSound
	WeaponSwing           = mi.WeaponSwing
)

// Creature types
const (
	Human          = joint.Human
	HumanWithSword = joint.HumanWithSword
	Droid          = joint.Droid
	SpidBot        = joint.SpidBot
	Arachnid       = joint.Arachnid
	PlyrArm        = joint.PlyrArm
	BugBeast       = joint.BugBeast
	Crayman        = joint.Crayman
	Sweel          = joint.Sweel
	Overlord       = joint.Overlord
)

// NewFlags creates an empty flag mapping.
func NewFlags() *Flags {
	return mi.NewFlags()
}

// ParseFlag resolves a frame flag from its name.
func ParseFlag(name string) (Flag, error) {
	return mi.ParseFlag(name)
}

// ParseCreature resolves a creature type from its name or numeric code.
func ParseCreature(s string) (Creature, error) {
	return joint.ParseCreature(s)
}

// ParseText reads a text motion.
func ParseText(r io.Reader) (*Motion, error) {
	return bvh.Parse(r)
}

// WriteText writes a motion in the text motion format.
func WriteText(w io.Writer, m *Motion) error {
	return bvh.Write(w, m)
}
