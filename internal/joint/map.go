// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package joint resolves joint names to the integer indices used by the binary motion files
// and back, either from a builtin per-creature table or from a joint map file.
package joint

import (
	"fmt"
	"sort"

	"golang.org/x/text/cases"
)

// Map is a bidirectional joint name/index mapping. A Map is self-extending: looking up an
// unknown name assigns it the next free index. It is not safe for concurrent use, each
// conversion should work on its own copy (see Clone).
type Map struct {
	index map[string]int // folded name -> index
	names map[int]string // index -> name, first name wins
	last  int            // largest assigned index, -1 when empty
}

// New returns an empty mapping.
func New() *Map {
	return &Map{
		index: make(map[string]int),
		names: make(map[int]string),
		last:  -1,
	}
}

// Builtin returns a fresh copy of the builtin table of a creature, the position of a name in
// the table being its index. Unknown creatures yield an empty mapping.
func Builtin(c Creature) *Map {
	m := New()
	for i, name := range creatureJoints[c] {
		m.Set(name, i)
	}
	return m
}

// Set associates a name with an index. The name is re-pointed if already present, while the
// reverse direction keeps the first name registered for an index.
func (m *Map) Set(name string, index int) {
	m.index[fold(name)] = index
	if _, ok := m.names[index]; !ok {
		m.names[index] = name
	}
	if index > m.last {
		m.last = index
	}
}

// Index resolves a joint name, case-insensitively. A name seen for the first time is given
// the index following the largest one assigned so far, and remembered.
func (m *Map) Index(name string) int {
	key := fold(name)
	if i, ok := m.index[key]; ok {
		return i
	}

	next := m.last + 1
	m.Set(name, next)
	return next
}

// Lookup resolves a joint name without extending the mapping.
func (m *Map) Lookup(name string) (int, bool) {
	i, ok := m.index[fold(name)]
	return i, ok
}

// Name resolves a joint index. Unknown indices yield a "joint#<n>" placeholder, which is not
// added to the mapping.
func (m *Map) Name(index int) string {
	if name, ok := m.names[index]; ok {
		return name
	}
	return fmt.Sprintf("joint#%d", index)
}

// Len returns the number of names in the mapping.
func (m *Map) Len() int {
	return len(m.index)
}

// Indices returns the distinct indices of the mapping in ascending order.
func (m *Map) Indices() []int {
	out := make([]int, 0, len(m.names))
	for i := range m.names {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Clone returns an independent copy of the mapping.
func (m *Map) Clone() *Map {
	out := &Map{
		index: make(map[string]int, len(m.index)),
		names: make(map[int]string, len(m.names)),
		last:  m.last,
	}
	for k, v := range m.index {
		out.index[k] = v
	}
	for k, v := range m.names {
		out.names[k] = v
	}
	return out
}

func fold(name string) string {
	return cases.Fold().String(name)
}
