package bvh

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Write emits the motion in the text format: the hierarchy in pre-order with tab
// indentation, then the motion section with 6-decimal values.
func Write(w io.Writer, m *Motion) error {
	width := len(m.Channels())
	for i, frame := range m.Frames {
		if len(frame) != width {
			return fmt.Errorf("%w: frame %d has %d samples, expected %d", ErrInvalidMotion, i, len(frame), width)
		}
	}

	out := bufio.NewWriter(w)
	out.WriteString("HIERARCHY\n")
	for _, root := range m.Roots {
		writeJoint(out, root, "ROOT", "")
	}

	fmt.Fprintf(out, "MOTION\nFrames: %d\nFrame Time: %.6f\n", len(m.Frames), m.FrameTime)
	for _, frame := range m.Frames {
		for i, v := range frame {
			if i > 0 {
				out.WriteByte(' ')
			}
			out.WriteString(Vector(v))
		}
		out.WriteByte('\n')
	}
	return out.Flush()
}

func writeJoint(out *bufio.Writer, j *Joint, keyword, tab string) {
	inner := tab + "\t"
	fmt.Fprintf(out, "%s%s %s\n%s{\n", tab, keyword, j.Name, tab)
	fmt.Fprintf(out, "%sOFFSET %s\n", inner, Vector(j.Offset))
	if len(j.Channels) > 0 {
		names := make([]string, 0, 3*len(j.Channels))
		for _, c := range j.Channels {
			names = append(names, c.names()...)
		}
		fmt.Fprintf(out, "%sCHANNELS %d %s\n", inner, len(names), strings.Join(names, " "))
	}

	for _, child := range j.Children {
		writeJoint(out, child, "JOINT", inner)
	}

	for _, end := range j.EndSites {
		fmt.Fprintf(out, "%sEnd Site\n%s{\n", inner, inner)
		fmt.Fprintf(out, "%s\tOFFSET %s\n", inner, Vector(end))
		fmt.Fprintf(out, "%s}\n", inner)
	}
	fmt.Fprintf(out, "%s}\n", tab)
}

// Vector formats a triple with 6 decimals, separated by single spaces.
func Vector(v r3.Vec) string {
	buf := make([]byte, 0, 32)
	buf = strconv.AppendFloat(buf, v.X, 'f', 6, 64)
	buf = append(buf, ' ')
	buf = strconv.AppendFloat(buf, v.Y, 'f', 6, 64)
	buf = append(buf, ' ')
	buf = strconv.AppendFloat(buf, v.Z, 'f', 6, 64)
	return string(buf)
}
