package mc

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/mi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

var identity = quat.Number{Real: 1}

func testChannels() *Channels {
	return &Channels{Slots: []Stream{
		{Positions: []r3.Vec{{X: 1, Y: 2, Z: 3}, {X: 1.5, Y: 2.5, Z: 3.5}}},
		{Rotations: []quat.Number{identity, {Real: 0.5, Imag: 0.5, Jmag: 0.5, Kmag: 0.5}}},
		{Rotations: []quat.Number{identity, identity}},
	}}
}

func testInfo() *mi.Info {
	return &mi.Info{
		Frames:  2,
		FPS:     30,
		Streams: mi.Layout(0, []int{1, 2}),
	}
}

func encode(t *testing.T, c *Channels) []byte {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, c))
	return buf.Bytes()
}

func TestDataStart(t *testing.T) {
	tests := []struct {
		slots, start int
	}{
		{1, 16},
		{2, 16},
		{3, 32}, // the table ends on a boundary and still gets padded
		{4, 32},
		{7, 48},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.start, dataStart(tc.slots), "%d slots", tc.slots)
	}
}

func TestEncode_Layout(t *testing.T) {
	data := encode(t, testChannels())
	require.Len(t, data, 32+2*12+2*2*16)

	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(data[0:]))
	assert.Equal(t, uint32(32), binary.LittleEndian.Uint32(data[4:]))
	assert.Equal(t, uint32(32+24), binary.LittleEndian.Uint32(data[8:]))
	assert.Equal(t, uint32(32+24+32), binary.LittleEndian.Uint32(data[12:]))
	assert.Equal(t, make([]byte, 16), data[16:32])

	// Translation then quaternions in w, x, y, z order
	assert.Equal(t, float32(1), f32(data[32:]))
	assert.Equal(t, float32(3.5), f32(data[32+20:]))
	assert.Equal(t, float32(1), f32(data[56:]))
	assert.Equal(t, float32(0), f32(data[60:]))
}

func TestDecode_RoundTrip(t *testing.T) {
	in := testChannels()
	out, err := Decode(bytes.NewReader(encode(t, in)), testInfo())
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, 2, out.Frames())
}

func TestDecode_Mismatch(t *testing.T) {
	info := testInfo()
	info.Streams = info.Streams[:2]

	_, err := Decode(bytes.NewReader(encode(t, testChannels())), info)
	assert.ErrorIs(t, err, ErrFormatMismatch)
}

func TestDecode_Truncated(t *testing.T) {
	data := encode(t, testChannels())
	for _, n := range []int{0, 3, 10, 40, len(data) - 1} {
		_, err := Decode(bytes.NewReader(data[:n]), testInfo())
		assert.ErrorIs(t, err, ErrInvalidFormat, "length %d", n)
	}
}

func TestDecode_FrameCountBeyondData(t *testing.T) {
	info := testInfo()
	info.Frames = math.MaxInt32

	_, err := Decode(bytes.NewReader(encode(t, testChannels())), info)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestDecode_NoFrames(t *testing.T) {
	c := &Channels{Slots: []Stream{{Positions: []r3.Vec{}}}}
	info := &mi.Info{Streams: mi.Layout(0, nil)}

	out, err := Decode(bytes.NewReader(encode(t, c)), info)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Frames())
}

func TestEncode_UnevenStreams(t *testing.T) {
	c := testChannels()
	c.Slots[2].Rotations = c.Slots[2].Rotations[:1]

	err := Encode(&bytes.Buffer{}, c)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walk_.mc")
	require.NoError(t, os.WriteFile(path, encode(t, testChannels()), 0644))

	c, err := Open(path, testInfo())
	require.NoError(t, err)
	assert.Len(t, c.Slots, 3)
}

func f32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
