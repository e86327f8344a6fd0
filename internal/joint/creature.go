// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package joint

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnknownCreature is returned when a creature name or code cannot be resolved
	ErrUnknownCreature = errors.New("unknown creature type")
)

// Creature is the creature-type bitmask stored in motion-info files.
type Creature uint32

// Creature types known to the engine
const (
	Human          Creature = 0x7FFFF
	HumanWithSword Creature = 0xFFFFF
	Droid          Creature = 0x3FFFF
	SpidBot        Creature = 0xFF
	Arachnid       Creature = 0x1FFFFFFF
	PlyrArm        Creature = 0xE
	BugBeast       Creature = 0x3FFFFF
	Crayman        Creature = 0x1FFFFF
	Sweel          Creature = 0x7F
	Overlord       Creature = 0x7
)

var creatureNames = map[Creature]string{
	Human:          "Human",
	HumanWithSword: "HumanWithSword",
	Droid:          "Droid",
	SpidBot:        "SpidBot",
	Arachnid:       "Arachnid",
	PlyrArm:        "PlyrArm",
	BugBeast:       "BugBeast",
	Crayman:        "Crayman",
	Sweel:          "Sweel",
	Overlord:       "Overlord",
}

// String returns the creature name, or its hexadecimal code when unknown.
func (c Creature) String() string {
	if name, ok := creatureNames[c]; ok {
		return name
	}
	return fmt.Sprintf("0x%X", uint32(c))
}

// Known reports whether a builtin joint table exists for the creature.
func (c Creature) Known() bool {
	_, ok := creatureJoints[c]
	return ok
}

// ParseCreature resolves a creature from its name (case-insensitive, spaces ignored) or
// from a numeric code such as "0x7FFFF".
func ParseCreature(s string) (Creature, error) {
	key := strings.ToLower(strings.Join(strings.Fields(s), ""))
	for c, name := range creatureNames {
		if strings.ToLower(name) == key {
			return c, nil
		}
	}

	code, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCreature, s)
	}
	return Creature(code), nil
}

// humanJoints is shared by the human, human-with-sword tables.
var humanJoints = []string{
	"LToe", "RToe", "LAnkle", "RAnkle", "LKnee", "RKnee", "LHip", "RHip", "Butt", "Neck",
	"LShldr", "RShldr", "LElbow", "RElbow", "LWrist", "RWrist", "LFinger", "RFinger",
	"Abdomen", "Head",
}

var spiderJoints = []string{
	"base",
	"LMand", "LMElbow",
	"RMand", "RMElbow",
	"R1Shldr", "R1Elbow", "R1Wrist",
	"R2Shldr", "R2Elbow", "R2Wrist",
	"R3Shldr", "R3Elbow", "R3Wrist",
	"R4Shldr", "R4Elbow", "R4Wrist",
	"L1Shldr", "L1Elbow", "L1Wrist",
	"L2Shldr", "L2Elbow", "L2Wrist",
	"L3Shldr", "L3Elbow", "L3Wrist",
	"L4Shldr", "L4Elbow", "L4Wrist",
	"R1Finger", "R2Finger", "R3Finger", "R4Finger",
	"L1Finger", "L2Finger", "L3Finger", "L4Finger",
	"LTip", "RTip",
}

// creatureJoints lists the canonical joint names of each creature, the position in the
// list being the joint index.
var creatureJoints = map[Creature][]string{
	Human:          humanJoints,
	HumanWithSword: humanJoints,
	Droid: {
		"LToe", "RToe", "LAnkle", "RAnkle", "LKnee", "RKnee", "LHip", "RHip", "Butt",
		"Abdomen", "Neck", "LShldr", "RShldr", "LElbow", "RElbow", "LWrist", "RWrist",
		"Head",
	},
	SpidBot:  append(append([]string{}, spiderJoints...), "Sac"),
	Arachnid: spiderJoints,
	PlyrArm:  {"butt", "RShldr", "RElbow", "RWrist", "RFinger"},
	BugBeast: append(append([]string{}, humanJoints...), "LClaw", "RClaw"),
	Crayman: {
		"LToe", "RToe", "LAnkle", "RAnkle", "LKnee", "RKnee", "LHip", "RHip", "Butt",
		"Neck", "LShldr", "RShldr", "LElbow", "RElbow", "TPincher", "RWrist", "TTip",
		"RFinger", "Abdomen", "Head", "BPincher", "BTip",
	},
	Sweel: {"base", "Back", "Shoulder", "Neck", "Head", "Tail", "Tip"},
	Overlord: {
		"base",
		"TUp", "TMid", "TBot", "TTip",
		"FUp", "FUMid", "FMid", "FBMid", "FBot", "FTip",
		"L2Up", "L2UMid", "L2Mid", "L2BMid", "L2Bot", "L2Tip",
		"L1Up", "L1UMid", "L1Mid", "L1BMid", "L1Bot", "L1Tip",
		"R2Up", "R2UMid", "R2Mid", "R2BMid", "R2Bot", "R2Tip",
		"R1Up", "R1UMid", "R1Mid", "R1BMid", "R1Bot", "R1Tip",
		"Head",
		"Sac",
	},
}
