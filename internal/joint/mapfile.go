// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package joint

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	// ErrInvalidMap is returned when a joint map file cannot be parsed
	ErrInvalidMap = errors.New("invalid joint map")
)

// mapFile is the grammar of a joint map file, a sequence of "name index" pairs.
type mapFile struct {
	Entries []*mapEntry `parser:"@@*"`
}

type mapEntry struct {
	Pos   lexer.Position
	Name  string `parser:"@Name"`
	Index int    `parser:"@Int"`
}

var mapLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `(?:;|//)[^\r\n]*`},
	{Name: "Int", Pattern: `[-+]?\d+\b`},
	{Name: "Name", Pattern: `[^\s;]+`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
	{Name: "Newline", Pattern: `[\r\n]+`},
})

var mapParser = participle.MustBuild[mapFile](
	participle.Lexer(mapLexer),
	participle.Elide("Comment", "Whitespace", "Newline"),
)

// Parse reads a joint map file. When a name is listed twice the last index wins, when an
// index is listed twice the first name wins.
func Parse(r io.Reader) (*Map, error) {
	return parse("", r)
}

// Load reads a joint map file from disk.
func Load(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()
	return parse(path, f)
}

func parse(filename string, r io.Reader) (*Map, error) {
	file, err := mapParser.Parse(filename, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMap, err)
	}

	m := New()
	for _, e := range file.Entries {
		if e.Index < 0 {
			return nil, fmt.Errorf("%w: %s: negative index %d for %q", ErrInvalidMap, e.Pos, e.Index, e.Name)
		}
		m.Set(e.Name, e.Index)
	}
	return m, nil
}
