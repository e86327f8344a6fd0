package cal

import (
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/bvh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Namer resolves a joint index into a joint name.
type Namer interface {
	Name(index int) string
}

// Node is a joint of the calibrated skeleton.
type Node struct {
	ID     int
	Parent int // -1 for a root torso
	Offset r3.Vec
	Fixed  []int // rigidly attached joints, torsos only
	Limbs  []int // articulated children
}

// Skeleton is the joint graph of a calibration.
type Skeleton struct {
	Torsos []int
	Nodes  map[int]*Node
	Scale  float32
}

// Component is an animated joint of the skeleton with its rest offset. Components with 6
// degrees of freedom carry a translation and a rotation, the others a rotation only.
type Component struct {
	DOF    int
	Joint  int
	Offset r3.Vec
}

// Skeleton links the torsos and limbs into a joint graph. The segments of a limb form a
// chain, each one being the child of the previous joint.
func (c *Calibration) Skeleton() *Skeleton {
	s := &Skeleton{
		Nodes: make(map[int]*Node),
		Scale: c.Scale,
	}

	for _, torso := range c.Torsos {
		node, ok := s.Nodes[torso.Joint]
		if !ok {
			node = &Node{ID: torso.Joint, Parent: -1}
			s.Nodes[torso.Joint] = node
		}

		for _, f := range torso.Fixed {
			node.Fixed = append(node.Fixed, f.Joint)
			child := s.node(f.Joint)
			child.Offset = f.Offset
			child.Parent = torso.Joint
		}
		s.Torsos = append(s.Torsos, torso.Joint)
	}

	for _, limb := range c.Limbs {
		current := s.node(limb.Start)
		for _, seg := range limb.Segments {
			current.Limbs = append(current.Limbs, seg.Joint)
			next := s.node(seg.Joint)
			next.Offset = seg.Offset()
			next.Parent = current.ID
			current = next
		}
	}
	return s
}

// node returns the node of a joint, creating a detached one when missing.
func (s *Skeleton) node(id int) *Node {
	if n, ok := s.Nodes[id]; ok {
		return n
	}

	n := &Node{ID: id, Parent: -2}
	s.Nodes[id] = n
	return n
}

// Hierarchy converts the skeleton into a text motion hierarchy, returning the roots along
// with the animated components in track order.
//
// Root torsos are visited in record order. A fixed joint becomes a 6 degrees of freedom
// joint when it has fixed children, a 3 degrees of freedom one otherwise, and is left out
// when it has neither fixed nor limb children. Limb segments become 3 degrees of freedom
// joints, or End Sites at the tip of a chain.
func (s *Skeleton) Hierarchy(names Namer) ([]*bvh.Joint, []Component) {
	h := &hierarchy{
		skeleton: s,
		names:    names,
		visited:  make(map[int]bool),
	}

	var roots []*bvh.Joint
	seen := make(map[int]bool)
	for _, id := range s.Torsos {
		if seen[id] {
			continue
		}

		seen[id] = true
		if s.Nodes[id].Parent != -1 {
			continue
		}

		if root := h.fixed(id); root != nil {
			roots = append(roots, root)
		}
	}
	return roots, h.components
}

type hierarchy struct {
	skeleton   *Skeleton
	names      Namer
	visited    map[int]bool
	components []Component
}

func (h *hierarchy) fixed(id int) *bvh.Joint {
	node := h.skeleton.Nodes[id]
	if len(node.Fixed)+len(node.Limbs) == 0 || h.visited[id] {
		return nil
	}

	h.visited[id] = true
	j := &bvh.Joint{Name: h.names.Name(id), Offset: node.Offset}
	if len(node.Fixed) > 0 {
		h.components = append(h.components, Component{DOF: 6, Joint: id, Offset: node.Offset})
		j.Channels = []bvh.Channel{bvh.PositionXYZ, bvh.RotationXYZ}
		for _, child := range node.Fixed {
			if c := h.fixed(child); c != nil {
				j.Add(c)
			}
		}
	} else {
		h.components = append(h.components, Component{DOF: 3, Joint: id, Offset: node.Offset})
		j.Channels = []bvh.Channel{bvh.RotationXYZ}
	}

	h.limbs(j, node)
	return j
}

func (h *hierarchy) limbs(parent *bvh.Joint, node *Node) {
	for _, id := range node.Limbs {
		seg := h.skeleton.Nodes[id]
		if len(seg.Limbs) == 0 {
			parent.EndSites = append(parent.EndSites, seg.Offset)
			continue
		}
		if h.visited[id] {
			continue
		}

		h.visited[id] = true
		h.components = append(h.components, Component{DOF: 3, Joint: id, Offset: seg.Offset})
		j := parent.Add(&bvh.Joint{
			Name:     h.names.Name(id),
			Offset:   seg.Offset,
			Channels: []bvh.Channel{bvh.RotationXYZ},
		})
		h.limbs(j, seg)
	}
}
