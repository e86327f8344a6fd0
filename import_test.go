package motion

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mtest "github.com/RSoul82/Blender-NewDark-MotionIO/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestImport_RoundTrip(t *testing.T) {
	TestWith(t, func(t *testing.T, c *Converter) {
		flags := NewFlags()
		flags.Add(1, RightFootfall)
		flags.Add(2, EndMotionHere, WeaponSwing)

		dst := filepath.Join(t.TempDir(), "walk")
		want := mtest.Walk()
		require.NoError(t, c.Export(want, dst, flags))

		out, err := c.Import(dst + ".mi")
		require.NoError(t, err)
		assert.Equal(t, Human, out.Info.Creature)
		assert.Equal(t, "walk", out.Info.Name)
		assert.Equal(t, []int{1, 2}, out.Flags.Frames())
		assert.Equal(t, []Flag{EndMotionHere, WeaponSwing}, out.Flags.Bits(2))

		// Same skeleton, rebuilt from the calibration
		got := out.Motion
		assert.Equal(t, trackNames(want), trackNames(got))
		assert.Equal(t, "LKnee", got.Find("LKnee").Name)
		assert.Equal(t, []r3.Vec{{Z: -1.5}}, got.Find("RKnee").EndSites)
		assert.Equal(t, 30, got.FPS())

		// Samples within tolerance
		require.Len(t, got.Frames, len(want.Frames))
		for f := range want.Frames {
			require.Len(t, got.Frames[f], len(want.Frames[f]))
			for i := range want.Frames[f] {
				assertVec(t, want.Frames[f][i], got.Frames[f][i], "frame %d, track %d", f, i)
			}
		}
	})
}

func TestImport_BuiltinMap(t *testing.T) {
	TestWith(t, func(t *testing.T, c *Converter) {
		dst := filepath.Join(t.TempDir(), "walk")
		require.NoError(t, c.Export(mtest.Walk(), dst, nil))

		out, err := c.Import(dst + ".mi")
		require.NoError(t, err)
		assert.Equal(t, trackNames(mtest.Walk()), trackNames(out.Motion))
	}, WithImportMap(""))
}

func TestImport_UnknownCreature(t *testing.T) {
	TestWith(t, func(t *testing.T, c *Converter) {
		dst := filepath.Join(t.TempDir(), "walk")
		require.NoError(t, c.Export(mtest.Walk(), dst, nil))

		out, err := c.Import(dst + ".mi")
		require.NoError(t, err)
		assert.Equal(t, "joint#8", out.Motion.Roots[0].Name)
	}, WithImportMap(""), WithCreature(0x1))
}

func TestImport_MissingStreams(t *testing.T) {
	text := strings.Replace(chain, "ROOT Root", "ROOT Butt", 1)
	text = strings.Replace(text, "JOINT Mid", "JOINT LHip", 1)
	text = strings.Replace(text, "0 0 0 0 0 0 0 0 0\n0 0 0", "0 0 0 0 0 0 0 0 0\n1 2 3", 1)

	TestWith(t, func(t *testing.T, c *Converter) {
		dst := filepath.Join(t.TempDir(), "hip")
		require.NoError(t, c.ExportText(strings.NewReader(text), dst, nil))

		out, err := c.Import(dst + ".mi")
		require.NoError(t, err)
		require.Len(t, out.Motion.Frames, 2)

		// Joints without streams keep a zero rotation
		frame := out.Motion.Frames[1]
		require.Len(t, frame, 6)
		assert.Equal(t, r3.Vec{X: 1, Y: 2, Z: 3}, frame[0])
		for _, v := range frame[3:] {
			assert.Equal(t, r3.Vec{}, v)
		}
	})
}

func TestImport_KeepText(t *testing.T) {
	TestWith(t, func(t *testing.T, c *Converter) {
		dst := filepath.Join(t.TempDir(), "walk")
		require.NoError(t, c.Export(mtest.Walk(), dst, nil))
		require.NoError(t, os.Remove(dst+".bvh"))

		out, err := c.Import(dst + ".mi")
		require.NoError(t, err)

		text, err := os.ReadFile(dst + ".bvh")
		require.NoError(t, err)

		var want bytes.Buffer
		require.NoError(t, WriteText(&want, out.Motion))
		assert.Equal(t, want.String(), string(text))
	}, WithKeepText(true))
}

func TestImport_Invalid(t *testing.T) {
	TestWith(t, func(t *testing.T, c *Converter) {
		dir := t.TempDir()
		dst := filepath.Join(dir, "walk")
		require.NoError(t, c.Export(mtest.Walk(), dst, nil))
		channels, err := os.ReadFile(dst + "_.mc")
		require.NoError(t, err)

		// Truncated channel file
		require.NoError(t, os.WriteFile(dst+"_.mc", channels[:len(channels)-4], 0644))
		_, err = c.Import(dst + ".mi")
		assert.ErrorIs(t, err, ErrFormatMismatch)

		// Channel file with a different slot count
		channels[0] = 5
		require.NoError(t, os.WriteFile(dst+"_.mc", channels, 0644))
		_, err = c.Import(dst + ".mi")
		assert.ErrorIs(t, err, ErrFormatMismatch)

		// Frame count that is not a number
		header, err := os.ReadFile(dst + ".mi")
		require.NoError(t, err)
		binary.LittleEndian.PutUint32(header[8:], math.Float32bits(float32(math.NaN())))
		require.NoError(t, os.WriteFile(dst+".mi", header, 0644))
		_, err = c.Import(dst + ".mi")
		assert.ErrorIs(t, err, ErrFormatMismatch)

		// Truncated motion info
		require.NoError(t, os.WriteFile(dst+".mi", []byte{1, 2, 3}, 0644))
		_, err = c.Import(dst + ".mi")
		assert.ErrorIs(t, err, ErrFormatMismatch)

		// Missing files
		_, err = c.Import(filepath.Join(dir, "run.mi"))
		assert.Error(t, err)
	})
}

func TestImport_MissingCalibration(t *testing.T) {
	TestWith(t, func(t *testing.T, c *Converter) {
		dst := filepath.Join(t.TempDir(), "walk")
		require.NoError(t, c.Export(mtest.Walk(), dst, nil))

		_, err := c.Import(dst + ".mi")
		assert.ErrorContains(t, err, "burrick.cal")
	}, WithCalibration("burrick.cal"))
}

func TestImportSkeleton(t *testing.T) {
	TestWith(t, func(t *testing.T, c *Converter) {
		m, err := c.ImportSkeleton(filepath.Join(c.Dir(), mtest.CalibrationFile))
		require.NoError(t, err)
		assert.Equal(t, trackNames(mtest.Walk()), trackNames(m))
		assert.Empty(t, m.Frames)

		var text bytes.Buffer
		require.NoError(t, WriteText(&text, m))
		assert.True(t, strings.HasSuffix(text.String(), "MOTION\nFrames: 0\nFrame Time: 0.033333\n"))
	})
}

func TestImportSkeleton_Invalid(t *testing.T) {
	TestWith(t, func(t *testing.T, c *Converter) {
		path := filepath.Join(c.Dir(), "broken.cal")
		require.NoError(t, os.WriteFile(path, []byte{0, 0, 0, 0, 1}, 0644))

		_, err := c.ImportSkeleton(path)
		assert.ErrorIs(t, err, ErrFormatMismatch)
	})
}

// trackNames lists the tracks of a motion as joint name and channel kind.
func trackNames(m *Motion) []string {
	var out []string
	for _, t := range m.Channels() {
		out = append(out, t.Joint.Name+" "+t.Kind.String())
	}
	return out
}

func assertVec(t *testing.T, want, got r3.Vec, msgAndArgs ...any) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-4, msgAndArgs...)
	assert.InDelta(t, want.Y, got.Y, 1e-4, msgAndArgs...)
	assert.InDelta(t, want.Z, got.Z, 1e-4, msgAndArgs...)
}
