// Package testing provides the supporting files and motions shared by the tests.
package testing

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/bvh"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/cal"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// Supporting file names
const (
	CalibrationFile = "manbase.cal"
	MapFile         = "BIPED.MAP"
)

// BipedMap lists the joints of the biped, with an alias for the pelvis.
const BipedMap = `; biped joint map
LToe 0
RToe 1
LAnkle 2
RAnkle 3
LKnee 4
RKnee 5
LHip 6
RHip 7
Butt 8
Pelvis 8
Neck 9
Abdomen 18
Head 19
`

// Biped returns a calibration of a pair of legs: the pelvis (Butt) carries both hips, each
// hip starting a limb through the knee down to the ankle.
func Biped() *cal.Calibration {
	down := r3.Vec{Z: -1}
	return &cal.Calibration{
		Torsos: []cal.Torso{{
			Joint:  8,
			Parent: -1,
			Fixed: []cal.Fixed{
				{Joint: 6, Offset: r3.Vec{X: 1}},
				{Joint: 7, Offset: r3.Vec{X: -1}},
			},
		}},
		Limbs: []cal.Limb{
			{Torso: 0, Start: 6, Segments: []cal.Segment{
				{Joint: 4, Direction: down, Length: 2},
				{Joint: 2, Direction: down, Length: 1.5},
			}},
			{Torso: 0, Start: 7, Segments: []cal.Segment{
				{Joint: 5, Direction: down, Length: 2},
				{Joint: 3, Direction: down, Length: 1.5},
			}},
		},
		Scale: 1,
	}
}

// Walk returns a motion over the skeleton of the biped calibration, in the track order of
// its hierarchy: Butt position and rotation, then LHip, LKnee, RHip and RKnee rotations.
func Walk() *bvh.Motion {
	butt := &bvh.Joint{Name: "Butt", Channels: []bvh.Channel{bvh.PositionXYZ, bvh.RotationXYZ}}
	lhip := butt.Add(&bvh.Joint{Name: "LHip", Offset: r3.Vec{X: 1}, Channels: []bvh.Channel{bvh.RotationXYZ}})
	lknee := lhip.Add(&bvh.Joint{Name: "LKnee", Offset: r3.Vec{Z: -2}, Channels: []bvh.Channel{bvh.RotationXYZ}})
	lknee.EndSites = []r3.Vec{{Z: -1.5}}
	rhip := butt.Add(&bvh.Joint{Name: "RHip", Offset: r3.Vec{X: -1}, Channels: []bvh.Channel{bvh.RotationXYZ}})
	rknee := rhip.Add(&bvh.Joint{Name: "RKnee", Offset: r3.Vec{Z: -2}, Channels: []bvh.Channel{bvh.RotationXYZ}})
	rknee.EndSites = []r3.Vec{{Z: -1.5}}

	return &bvh.Motion{
		Roots:     []*bvh.Joint{butt},
		FrameTime: 1.0 / 30,
		Frames: [][]r3.Vec{
			{{X: 0, Y: 0, Z: 3.5}, {}, {X: 10}, {X: -5}, {X: -10}, {X: 5}},
			{{X: 0.25, Y: 0.5, Z: 3.5}, {X: 1, Y: 2, Z: 3}, {X: 20, Y: 5}, {X: -15}, {X: -20, Y: -5}, {X: 15}},
			{{X: 0.5, Y: 1, Z: 3.25}, {Z: 45}, {X: 30, Z: -10}, {X: -30, Y: 12.5}, {X: -30, Z: 10}, {X: 30, Y: -12.5}},
		},
	}
}

// Dir prepares a supporting files directory with the biped calibration and joint map.
func Dir(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, cal.Encode(&buf, Biped()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, CalibrationFile), buf.Bytes(), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, MapFile), []byte(BipedMap), 0644))
	return dir
}
