// Package oemm implements an out-of-core octree over a triangle soup.
//
// A build runs three passes over the soup: CountTriangles subdivides the
// bounding cube until every leaf holds at most a threshold of triangles,
// Dispatch appends each triangle to the data file of its leaf, and
// IndexOEMM computes per-leaf vertex counts and writes the structure
// file. Leaves, or groups of leaves, are then loaded into in-core meshes,
// processed and written back one at a time.
package oemm

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// StructureFile is the name of the octree description inside an OEMM
// directory.
const StructureFile = "structure.yaml"

// MaxDepthLimit keeps three interleaved cell coordinates in a uint64.
const MaxDepthLimit = 21

var (
	// ErrStructureMismatch means the soup seen by a pass does not match
	// the octree computed by the count pass.
	ErrStructureMismatch = errors.New("oemm: structure mismatch")
	// ErrNoLeaf is returned for an out-of-range leaf id.
	ErrNoLeaf = errors.New("oemm: no such leaf")
)

// Options controls an octree build.
type Options struct {
	// Dir receives the leaf files and the structure file.
	Dir string
	// MaxDepth bounds the subdivision; the root has depth 0.
	MaxDepth int
	// LeafThreshold is the largest triangle count a leaf may hold
	// unless it sits at MaxDepth.
	LeafThreshold int
	// BufferSize is the write buffer of each leaf file, in bytes.
	BufferSize int
}

// DefaultOptions returns build options writing into dir.
func DefaultOptions(dir string) Options {
	return Options{Dir: dir, MaxDepth: 10, LeafThreshold: 50000, BufferSize: 64 << 10}
}

func (opts Options) validate() error {
	switch {
	case opts.Dir == "":
		return fmt.Errorf("oemm: no output directory")
	case opts.MaxDepth < 0 || opts.MaxDepth > MaxDepthLimit:
		return fmt.Errorf("oemm: max depth %d outside [0, %d]", opts.MaxDepth, MaxDepthLimit)
	case opts.LeafThreshold < 1:
		return fmt.Errorf("oemm: leaf threshold must be positive, got %d", opts.LeafThreshold)
	}
	return nil
}

// Node is an octant. Nodes live in OEMM.Nodes and refer to each other by
// index; -1 stands for no node.
type Node struct {
	Parent   int
	Children [8]int
	Depth    int
	// Min is the cell of the node's lowest corner on the finest grid;
	// the node spans 2^(MaxDepth-Depth) finest cells along each axis.
	Min [3]uint32
	// LeafID is the index of the node in OEMM.Leaves, or -1.
	LeafID        int
	TriangleCount int
	// VertexCount is exact for leaves. Internal nodes sum their
	// children, so vertices on leaf borders are counted more than once.
	VertexCount int
	File        string
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return n.LeafID >= 0 }

// OEMM is an octree whose leaves are stored on disk.
type OEMM struct {
	Dir string
	// Bounds is the cube covered by the root.
	Bounds   sdf.Box3
	MaxDepth int
	Nodes    []Node
	// Leaves maps leaf ids to node indices.
	Leaves []int
}

// Root returns the root node.
func (o *OEMM) Root() *Node { return &o.Nodes[0] }

// Leaf returns the node of leaf id.
func (o *OEMM) Leaf(id int) (*Node, error) {
	if id < 0 || id >= len(o.Leaves) {
		return nil, fmt.Errorf("%w: %d", ErrNoLeaf, id)
	}
	return &o.Nodes[o.Leaves[id]], nil
}

// LeafCount returns the number of leaves.
func (o *OEMM) LeafCount() int { return len(o.Leaves) }

// TriangleCount sums the triangle counts of all leaves.
func (o *OEMM) TriangleCount() int {
	total := 0
	for _, n := range o.Leaves {
		total += o.Nodes[n].TriangleCount
	}
	return total
}

// Depth returns the depth of the deepest node.
func (o *OEMM) Depth() int {
	d := 0
	for i := range o.Nodes {
		d = max(d, o.Nodes[i].Depth)
	}
	return d
}

func (o *OEMM) leafPath(n *Node) string {
	return filepath.Join(o.Dir, n.File)
}

func leafFileName(id int) string {
	return fmt.Sprintf("leaf-%06d.bin", id)
}

// NodeBounds returns the box covered by node n.
func (o *OEMM) NodeBounds(n int) sdf.Box3 {
	node := &o.Nodes[n]
	cell := o.cellSize()
	span := cell * float64(uint32(1)<<(o.MaxDepth-node.Depth))
	lo := v3.Vec{
		X: o.Bounds.Min.X + cell*float64(node.Min[0]),
		Y: o.Bounds.Min.Y + cell*float64(node.Min[1]),
		Z: o.Bounds.Min.Z + cell*float64(node.Min[2]),
	}
	return sdf.Box3{Min: lo, Max: lo.Add(v3.Vec{X: span, Y: span, Z: span})}
}

func (o *OEMM) side() float64 {
	return o.Bounds.Max.X - o.Bounds.Min.X
}

func (o *OEMM) cellSize() float64 {
	return o.side() / float64(uint64(1)<<o.MaxDepth)
}

// cell returns the finest grid cell containing p, clamped to the grid.
func (o *OEMM) cell(p v3.Vec) [3]uint32 {
	n := float64(uint64(1) << o.MaxDepth)
	side := o.side()
	f := func(x, lo float64) uint32 {
		c := (x - lo) / side * n
		switch {
		case c < 0:
			return 0
		case c >= n:
			return uint32(n) - 1
		}
		return uint32(c)
	}
	return [3]uint32{f(p.X, o.Bounds.Min.X), f(p.Y, o.Bounds.Min.Y), f(p.Z, o.Bounds.Min.Z)}
}

// octant returns the child slot of node n holding cell c.
func (o *OEMM) octant(n int, c [3]uint32) int {
	node := &o.Nodes[n]
	half := uint32(1) << (o.MaxDepth - node.Depth - 1)
	k := 0
	for axis := 0; axis < 3; axis++ {
		if c[axis]-node.Min[axis] >= half {
			k |= 4 >> axis
		}
	}
	return k
}

// leafOf descends from the root to the leaf holding cell c.
func (o *OEMM) leafOf(c [3]uint32) (int, error) {
	n := 0
	for !o.Nodes[n].IsLeaf() {
		next := o.Nodes[n].Children[o.octant(n, c)]
		if next < 0 {
			return -1, fmt.Errorf("%w: cell %v falls in an empty octant", ErrStructureMismatch, c)
		}
		n = next
	}
	return o.Nodes[n].LeafID, nil
}

func newNode(parent, depth int, lo [3]uint32) Node {
	return Node{
		Parent:   parent,
		Children: [8]int{-1, -1, -1, -1, -1, -1, -1, -1},
		Depth:    depth,
		Min:      lo,
		LeafID:   -1,
	}
}
