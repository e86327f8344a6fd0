package motion

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/mc"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/mi"
	mtest "github.com/RSoul82/Blender-NewDark-MotionIO/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const chain = `HIERARCHY
ROOT Root
{
	OFFSET 0 0 0
	CHANNELS 6 Xposition Yposition Zposition Xrotation Yrotation Zrotation
	JOINT Mid
	{
		OFFSET 0 1 0
		CHANNELS 3 Xrotation Yrotation Zrotation
		End Site
		{
			OFFSET 0 1 0
		}
	}
}
MOTION
Frames: 2
Frame Time: 0.033333
0 0 0 0 0 0 0 0 0
0 0 0 0 0 0 0 0 0
`

func TestExportText_Chain(t *testing.T) {
	TestWith(t, func(t *testing.T, c *Converter) {
		dst := filepath.Join(t.TempDir(), "chain")
		require.NoError(t, c.ExportText(strings.NewReader(chain), dst, nil))

		info, err := mi.Open(dst + ".mi")
		require.NoError(t, err)
		assert.Equal(t, 2, info.Frames)
		assert.Equal(t, 30, info.FPS)
		assert.Equal(t, "chain", info.Name)
		assert.Equal(t, Creature(0), info.Creature)
		assert.Equal(t, []mi.Stream{
			{Translation: true, Joint: 0, Slot: 0},
			{Joint: 0, Slot: 1},
			{Joint: 1, Slot: 2},
		}, info.Streams)
		assert.Equal(t, 0, info.Flags.Len())

		channels, err := mc.Open(dst+"_.mc", info)
		require.NoError(t, err)
		require.Len(t, channels.Slots, 3)
		assert.Equal(t, []r3.Vec{{}, {}}, channels.Slots[0].Positions)
		for _, slot := range channels.Slots[1:] {
			assert.Equal(t, []quat.Number{{Real: 1}, {Real: 1}}, slot.Rotations)
		}
	}, WithJointMap(""), WithCreature(0))
}

func TestExportText_ChannelOrder(t *testing.T) {
	text := strings.Replace(chain,
		"CHANNELS 6 Xposition Yposition Zposition Xrotation Yrotation Zrotation",
		"CHANNELS 6 Zposition Xposition Yposition Zrotation Yrotation Xrotation", 1)
	text = strings.Replace(text, "0 0 0 0 0 0 0 0 0\n0 0 0", "3 1 2 0 0 0 0 0 0\n6 4 5", 1)

	TestWith(t, func(t *testing.T, c *Converter) {
		dst := filepath.Join(t.TempDir(), "chain")
		require.NoError(t, c.ExportText(strings.NewReader(text), dst, nil))

		info, err := mi.Open(dst + ".mi")
		require.NoError(t, err)
		channels, err := mc.Open(dst+"_.mc", info)
		require.NoError(t, err)
		assert.Equal(t, []r3.Vec{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}}, channels.Slots[0].Positions)
	}, WithJointMap(""), WithCreature(0))
}

func TestExportText_Invalid(t *testing.T) {
	tests := []struct {
		name string
		text string
		err  error
	}{
		{
			name: "rotation first",
			text: strings.ReplaceAll(
				strings.Replace(chain, "CHANNELS 6 Xposition Yposition Zposition Xrotation Yrotation Zrotation", "CHANNELS 3 Xrotation Yrotation Zrotation", 1),
				"0 0 0 0 0 0 0 0 0", "0 0 0 0 0 0"),
			err: ErrIncompatibleChannels,
		},
		{
			name: "partial group",
			text: strings.Replace(chain, "CHANNELS 3 Xrotation Yrotation Zrotation", "CHANNELS 4 Xrotation Yrotation Zrotation Wrotation", 1),
			err:  ErrSyntax,
		},
		{
			name: "bad number",
			text: strings.Replace(chain, "Frame Time: 0.033333", "Frame Time: fast", 1),
			err:  ErrMalformedNumber,
		},
		{
			name: "missing frame",
			text: strings.TrimSuffix(chain, "0 0 0 0 0 0 0 0 0\n"),
			err:  ErrUnexpectedEOF,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			TestWith(t, func(t *testing.T, c *Converter) {
				dir := t.TempDir()
				err := c.ExportText(strings.NewReader(tc.text), filepath.Join(dir, "chain"), nil)
				assert.ErrorIs(t, err, tc.err)
				assertEmpty(t, dir)
			})
		})
	}
}

func TestExport_Layout(t *testing.T) {
	TestWith(t, func(t *testing.T, c *Converter) {
		flags := NewFlags()
		flags.Add(2, LeftFootfall, CanInterrupt)
		flags.Add(0, Standing)

		dst := filepath.Join(t.TempDir(), "walk.mi")
		require.NoError(t, c.Export(mtest.Walk(), dst, flags))

		dst = strings.TrimSuffix(dst, ".mi")
		data, err := os.ReadFile(dst + ".mi")
		require.NoError(t, err)
		require.Len(t, data, mi.HeaderSize+6*12+2*8)
		assert.Equal(t, uint32(Human), binary.LittleEndian.Uint32(data[4:]))
		assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(data[mi.FlagCountOffset:]))

		info, err := mi.Open(dst + ".mi")
		require.NoError(t, err)
		assert.Equal(t, []mi.Stream{
			{Translation: true, Joint: 8, Slot: 0},
			{Joint: 4, Slot: 1},
			{Joint: 5, Slot: 2},
			{Joint: 6, Slot: 3},
			{Joint: 7, Slot: 4},
			{Joint: 8, Slot: 5},
		}, info.Streams)
		assert.Equal(t, []int{0, 2}, info.Flags.Frames())
		assert.Equal(t, uint32(Standing), info.Flags.Get(0))
		assert.Equal(t, []Flag{LeftFootfall, CanInterrupt}, info.Flags.Bits(2))

		channels, err := os.ReadFile(dst + "_.mc")
		require.NoError(t, err)
		assert.Equal(t, uint32(6), binary.LittleEndian.Uint32(channels))
		assert.Len(t, channels, 32+3*12+5*3*16)
		assert.NoFileExists(t, dst+".bvh")
	})
}

func TestExport_SixtyFPS(t *testing.T) {
	TestWith(t, func(t *testing.T, c *Converter) {
		m := mtest.Walk()
		m.FrameTime = 1.0 / 60

		dst := filepath.Join(t.TempDir(), "walk")
		require.NoError(t, c.Export(m, dst, nil))

		// The frame time is written with 6 decimals before the rate is derived
		info, err := mi.Open(dst + ".mi")
		require.NoError(t, err)
		assert.Equal(t, 59, info.FPS)
	})
}

func TestExport_KeepText(t *testing.T) {
	TestWith(t, func(t *testing.T, c *Converter) {
		dst := filepath.Join(t.TempDir(), "walk")
		require.NoError(t, c.Export(mtest.Walk(), dst, nil))

		text, err := os.ReadFile(dst + ".bvh")
		require.NoError(t, err)

		var want bytes.Buffer
		require.NoError(t, WriteText(&want, mtest.Walk()))
		assert.Equal(t, want.String(), string(text))
	}, WithKeepText(true))
}

func TestExport_TooManyFrames(t *testing.T) {
	TestWith(t, func(t *testing.T, c *Converter) {
		dir := t.TempDir()
		err := c.Export(mtest.Walk(), filepath.Join(dir, "walk"), nil)
		assert.ErrorIs(t, err, ErrTooManyFrames)
		assertEmpty(t, dir)
	}, WithMaxFrames(2))
}

func TestExport_KeepsPreviousOnFailure(t *testing.T) {
	TestWith(t, func(t *testing.T, c *Converter) {
		dir := t.TempDir()
		dst := filepath.Join(dir, "walk")
		require.NoError(t, c.Export(mtest.Walk(), dst, nil))
		before, err := os.ReadFile(dst + ".mi")
		require.NoError(t, err)

		broken := mtest.Walk()
		broken.Frames[1] = broken.Frames[1][:3]
		assert.Error(t, c.Export(broken, dst, nil))

		after, err := os.ReadFile(dst + ".mi")
		require.NoError(t, err)
		assert.Equal(t, before, after)
		assert.Len(t, entries(t, dir), 2)
	})
}

func TestExport_MissingMap(t *testing.T) {
	TestWith(t, func(t *testing.T, c *Converter) {
		dir := t.TempDir()
		err := c.Export(mtest.Walk(), filepath.Join(dir, "walk"), nil)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assertEmpty(t, dir)
	}, WithJointMap("missing.map"))
}

func TestExport_RotatedTwice(t *testing.T) {
	TestWith(t, func(t *testing.T, c *Converter) {
		m := mtest.Walk()
		m.Roots[0].Children[1].Name = "lhip"

		err := c.Export(m, filepath.Join(t.TempDir(), "walk"), nil)
		assert.ErrorIs(t, err, ErrIncompatibleChannels)
	})
}

func TestExport_NameTruncated(t *testing.T) {
	TestWith(t, func(t *testing.T, c *Converter) {
		dst := filepath.Join(t.TempDir(), "swordfight_idle")
		require.NoError(t, c.Export(mtest.Walk(), dst, nil))

		info, err := mi.Open(dst + ".mi")
		require.NoError(t, err)
		assert.Equal(t, "swordfight_i", info.Name)
	})
}

func assertEmpty(t *testing.T, dir string) {
	t.Helper()
	assert.Empty(t, entries(t, dir))
}

func entries(t *testing.T, dir string) []string {
	t.Helper()
	list, err := os.ReadDir(dir)
	require.NoError(t, err)

	var out []string
	for _, e := range list {
		out = append(out, e.Name())
	}
	return out
}
