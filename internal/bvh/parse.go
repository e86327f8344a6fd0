// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package bvh

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// tokenKind is the decoded leading keyword of a line.
type tokenKind uint8

const (
	tokUnknown tokenKind = iota
	tokHierarchy
	tokRoot
	tokJoint
	tokEndSite
	tokOpen
	tokClose
	tokOffset
	tokChannels
	tokMotion
	tokFrames
	tokFrameTime
)

var tokenNames = [...]string{
	tokUnknown:   "statement",
	tokHierarchy: "HIERARCHY",
	tokRoot:      "ROOT",
	tokJoint:     "JOINT",
	tokEndSite:   "End Site",
	tokOpen:      "{",
	tokClose:     "}",
	tokOffset:    "OFFSET",
	tokChannels:  "CHANNELS",
	tokMotion:    "MOTION",
	tokFrames:    "Frames:",
	tokFrameTime: "Frame Time:",
}

func (k tokenKind) String() string {
	return tokenNames[k]
}

// token is a single non-blank line of the input.
type token struct {
	kind tokenKind
	line int
	text string
	args []string
}

// decode classifies a stripped, non-blank line by its leading keyword. Keywords are
// matched case-insensitively.
func decode(text string, line int) token {
	fields := strings.Fields(text)
	t := token{line: line, text: text, args: fields[1:]}
	switch strings.ToUpper(fields[0]) {
	case "HIERARCHY":
		t.kind = tokHierarchy
	case "ROOT":
		t.kind = tokRoot
	case "JOINT":
		t.kind = tokJoint
	case "END":
		if len(fields) == 2 && strings.EqualFold(fields[1], "SITE") {
			t.kind, t.args = tokEndSite, nil
		}
	case "{":
		t.kind = tokOpen
	case "}":
		t.kind = tokClose
	case "OFFSET":
		t.kind = tokOffset
	case "CHANNELS":
		t.kind = tokChannels
	case "MOTION":
		t.kind = tokMotion
	case "FRAMES:":
		t.kind = tokFrames
	case "FRAME":
		if len(fields) > 1 && strings.EqualFold(fields[1], "TIME:") {
			t.kind, t.args = tokFrameTime, fields[2:]
		}
	}

	// Keywords that stand alone on their line
	switch t.kind {
	case tokHierarchy, tokOpen, tokClose, tokMotion:
		if len(t.args) > 0 {
			t.kind = tokUnknown
		}
	}
	return t
}

// name returns the joint name of a ROOT or JOINT statement, internal whitespace collapsed to
// a single underscore.
func (t token) name() string {
	return strings.Join(t.args, "_")
}

// ---------------------------------- Parser ----------------------------------

// parser is a cursor over the materialised lines of a text motion.
type parser struct {
	lines []string
	pos   int
}

// Parse reads a complete text motion: the joint hierarchy followed by the motion section.
// Content after the last declared frame is ignored.
func Parse(r io.Reader) (*Motion, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	p := &parser{lines: lines}
	return p.parse()
}

// next consumes the next non-blank line.
func (p *parser) next() (token, error) {
	for p.pos < len(p.lines) {
		text := strings.TrimSpace(p.lines[p.pos])
		p.pos++
		if text != "" {
			return decode(text, p.pos), nil
		}
	}

	return token{}, &SyntaxError{Line: len(p.lines), Msg: "unexpected end of input", Err: ErrUnexpectedEOF}
}

// expect consumes the next non-blank line and requires it to be of the given kind.
func (p *parser) expect(kind tokenKind) (token, error) {
	t, err := p.next()
	switch {
	case err != nil:
		return t, err
	case t.kind != kind:
		return t, p.unexpected(t, kind.String())
	default:
		return t, nil
	}
}

func (p *parser) unexpected(t token, want string) error {
	return &SyntaxError{Line: t.line, Msg: fmt.Sprintf("expected %s, found %q", want, t.text)}
}

func (p *parser) parse() (*Motion, error) {
	if _, err := p.expect(tokHierarchy); err != nil {
		return nil, err
	}

	// One or more root blocks, then the motion section
	m := new(Motion)
	for {
		t, err := p.next()
		if err != nil {
			return nil, err
		}

		switch t.kind {
		case tokRoot, tokJoint:
			if len(m.Roots) > 0 && t.kind == tokJoint {
				return nil, p.unexpected(t, "ROOT or MOTION")
			}

			root, err := p.hierarchy(t)
			if err != nil {
				return nil, err
			}
			m.Roots = append(m.Roots, root)
		case tokMotion:
			if len(m.Roots) == 0 {
				return nil, p.unexpected(t, "ROOT")
			}
			if err := p.motion(m); err != nil {
				return nil, err
			}
			return m, nil
		default:
			return nil, p.unexpected(t, "ROOT or MOTION")
		}
	}
}

// hierarchy reads a root block. The level counter starts at 1 inside the root braces and
// the block ends once it drops back to 0.
func (p *parser) hierarchy(decl token) (*Joint, error) {
	if len(decl.args) == 0 {
		return nil, &SyntaxError{Line: decl.line, Msg: "missing joint name"}
	}
	if _, err := p.expect(tokOpen); err != nil {
		return nil, err
	}

	root := &Joint{Name: decl.name()}
	current := root
	for level := 1; level > 0; {
		t, err := p.next()
		if err != nil {
			return nil, err
		}

		switch t.kind {
		case tokOffset:
			if current.Offset, err = p.vector(t); err != nil {
				return nil, err
			}

		case tokChannels:
			if len(current.Children) > 0 || len(current.EndSites) > 0 {
				return nil, &SyntaxError{Line: t.line, Msg: "CHANNELS must precede nested joints"}
			}

			channels, err := p.channels(t)
			if err != nil {
				return nil, err
			}
			current.Channels = append(current.Channels, channels...)

		case tokJoint:
			if len(t.args) == 0 {
				return nil, &SyntaxError{Line: t.line, Msg: "missing joint name"}
			}
			if _, err := p.expect(tokOpen); err != nil {
				return nil, err
			}

			current = current.Add(&Joint{Name: t.name()})
			level++

		case tokEndSite:
			offset, err := p.leaf()
			if err != nil {
				return nil, err
			}
			current.EndSites = append(current.EndSites, offset)

		case tokClose:
			if level--; level > 0 {
				current = current.Parent
			}

		default:
			return nil, p.unexpected(t, "OFFSET, CHANNELS, JOINT, End Site or }")
		}
	}

	return root, nil
}

// leaf reads the block of an End Site, which only holds an offset.
func (p *parser) leaf() (r3.Vec, error) {
	if _, err := p.expect(tokOpen); err != nil {
		return r3.Vec{}, err
	}

	t, err := p.expect(tokOffset)
	if err != nil {
		return r3.Vec{}, err
	}

	offset, err := p.vector(t)
	if err != nil {
		return r3.Vec{}, err
	}

	_, err = p.expect(tokClose)
	return offset, err
}

// channels validates a CHANNELS statement: the count is a multiple of 3 and each group of
// three shares a kind and covers X, Y and Z once.
func (p *parser) channels(t token) ([]Channel, error) {
	if len(t.args) == 0 {
		return nil, &SyntaxError{Line: t.line, Msg: "missing channel count"}
	}

	n, err := strconv.Atoi(t.args[0])
	if err != nil {
		return nil, &SyntaxError{Line: t.line, Msg: fmt.Sprintf("invalid channel count %q", t.args[0]), Err: ErrMalformedNumber}
	}

	names := t.args[1:]
	switch {
	case n < 0 || n%3 != 0:
		return nil, &SyntaxError{Line: t.line, Msg: fmt.Sprintf("channel count %d is not a multiple of 3", n)}
	case len(names) != n:
		return nil, &SyntaxError{Line: t.line, Msg: fmt.Sprintf("declared %d channels, listed %d", n, len(names))}
	}

	out := make([]Channel, 0, n/3)
	for i := 0; i < n; i += 3 {
		c, ok := channelOf(names[i : i+3])
		if !ok {
			return nil, &SyntaxError{Line: t.line, Msg: fmt.Sprintf("invalid channel group %s", strings.Join(names[i:i+3], " "))}
		}
		out = append(out, c)
	}
	return out, nil
}

// channelOf decodes a group of three component names such as "Zrotation Xrotation Yrotation".
func channelOf(names []string) (Channel, bool) {
	var order [3]byte
	var kind string
	for i, name := range names {
		if len(name) < 2 {
			return Channel{}, false
		}

		suffix := strings.ToLower(name[1:])
		if i > 0 && suffix != kind {
			return Channel{}, false
		}

		kind = suffix
		order[i] = strings.ToUpper(name[:1])[0]
	}

	xyz := string(order[:])
	if !strings.ContainsRune(xyz, 'X') || !strings.ContainsRune(xyz, 'Y') || !strings.ContainsRune(xyz, 'Z') {
		return Channel{}, false
	}

	switch kind {
	case "position":
		return Channel{Kind: Position, Order: xyz}, true
	case "rotation":
		return Channel{Kind: Rotation, Order: xyz}, true
	default:
		return Channel{}, false
	}
}

// vector reads the three numbers of an OFFSET statement.
func (p *parser) vector(t token) (r3.Vec, error) {
	if len(t.args) != 3 {
		return r3.Vec{}, &SyntaxError{Line: t.line, Msg: fmt.Sprintf("expected 3 values, found %d", len(t.args))}
	}

	var v [3]float64
	for i, arg := range t.args {
		f, err := number(t.line, arg)
		if err != nil {
			return r3.Vec{}, err
		}
		v[i] = f
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}

// motion reads the frame count, the frame time and the frame lines.
func (p *parser) motion(m *Motion) error {
	t, err := p.expect(tokFrames)
	if err != nil {
		return err
	}
	if len(t.args) != 1 {
		return p.unexpected(t, "Frames: <count>")
	}

	count, err := strconv.Atoi(t.args[0])
	if err != nil || count < 0 {
		return &SyntaxError{Line: t.line, Msg: fmt.Sprintf("invalid frame count %q", t.args[0]), Err: ErrMalformedNumber}
	}

	if t, err = p.expect(tokFrameTime); err != nil {
		return err
	}
	if len(t.args) != 1 {
		return p.unexpected(t, "Frame Time: <seconds>")
	}
	if m.FrameTime, err = number(t.line, t.args[0]); err != nil {
		return err
	}

	width := len(m.Channels())
	m.Frames = make([][]r3.Vec, 0, count)
	for i := 0; i < count; i++ {
		frame, err := p.frame(width)
		if err != nil {
			return err
		}
		m.Frames = append(m.Frames, frame)
	}
	return nil
}

// frame reads a line of 3 values per track.
func (p *parser) frame(width int) ([]r3.Vec, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}

	values := strings.Fields(t.text)
	if len(values) != 3*width {
		return nil, &SyntaxError{Line: t.line, Msg: fmt.Sprintf("expected %d values, found %d", 3*width, len(values))}
	}

	frame := make([]r3.Vec, width)
	for i := range frame {
		var v [3]float64
		for k := range v {
			if v[k], err = number(t.line, values[3*i+k]); err != nil {
				return nil, err
			}
		}
		frame[i] = r3.Vec{X: v[0], Y: v[1], Z: v[2]}
	}
	return frame, nil
}

func number(line int, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	switch {
	case err != nil:
		return 0, &SyntaxError{Line: line, Msg: fmt.Sprintf("invalid number %q", s), Err: fmt.Errorf("%w: %w", ErrMalformedNumber, err)}
	case math.IsNaN(f) || math.IsInf(f, 0) || strings.ContainsAny(s, "xXpP"):
		return 0, &SyntaxError{Line: line, Msg: fmt.Sprintf("invalid number %q", s), Err: ErrMalformedNumber}
	}
	return f, nil
}
