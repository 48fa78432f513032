package oemm

// Visit tells a VisitFunc where the walk stands.
type Visit int

const (
	// PreOrder is an internal node seen before its children.
	PreOrder Visit = iota
	// PostOrder is an internal node seen after its children.
	PostOrder
	// Leaf is a leaf node.
	Leaf
)

func (v Visit) String() string {
	switch v {
	case PreOrder:
		return "preorder"
	case PostOrder:
		return "postorder"
	case Leaf:
		return "leaf"
	}
	return "unknown"
}

// Action is returned by a VisitFunc to steer the walk.
type Action int

const (
	// Continue proceeds normally.
	Continue Action = iota
	// SkipChildren, returned at PreOrder, skips the node's subtree
	// including its PostOrder visit.
	SkipChildren
	// Abort stops the walk.
	Abort
)

// VisitFunc is called for node index n.
type VisitFunc func(o *OEMM, n int, v Visit) Action

// Walk runs a depth-first traversal from the root, visiting children in
// octant order. It returns false when fn aborted the walk.
func (o *OEMM) Walk(fn VisitFunc) bool {
	if len(o.Nodes) == 0 {
		return true
	}
	return o.walk(0, fn)
}

// WalkFrom runs Walk on the subtree of node n.
func (o *OEMM) WalkFrom(n int, fn VisitFunc) bool {
	return o.walk(n, fn)
}

func (o *OEMM) walk(n int, fn VisitFunc) bool {
	node := &o.Nodes[n]
	if node.IsLeaf() {
		return fn(o, n, Leaf) != Abort
	}
	switch fn(o, n, PreOrder) {
	case Abort:
		return false
	case SkipChildren:
		return true
	}
	for _, c := range node.Children {
		if c >= 0 && !o.walk(c, fn) {
			return false
		}
	}
	return fn(o, n, PostOrder) != Abort
}

// Aggregate recomputes the triangle and vertex counts of internal nodes
// from their leaves and returns the root triangle count.
func (o *OEMM) Aggregate() int {
	if len(o.Nodes) == 0 {
		return 0
	}
	o.Walk(func(o *OEMM, n int, v Visit) Action {
		if v != PostOrder {
			return Continue
		}
		node := &o.Nodes[n]
		node.TriangleCount, node.VertexCount = 0, 0
		for _, c := range node.Children {
			if c >= 0 {
				node.TriangleCount += o.Nodes[c].TriangleCount
				node.VertexCount += o.Nodes[c].VertexCount
			}
		}
		return Continue
	})
	return o.Nodes[0].TriangleCount
}

// SubtreeLeaves returns the leaf ids below node n.
func (o *OEMM) SubtreeLeaves(n int) []int {
	var out []int
	o.WalkFrom(n, func(o *OEMM, n int, v Visit) Action {
		if v == Leaf {
			out = append(out, o.Nodes[n].LeafID)
		}
		return Continue
	})
	return out
}

// LeafGroups partitions the non-empty leaves into groups to process
// together. A whole subtree forms one group when its aggregated triangle
// count is at most maxTriangles; a leaf above the limit forms a group on
// its own. Counts must be aggregated.
func (o *OEMM) LeafGroups(maxTriangles int) [][]int {
	var groups [][]int
	o.Walk(func(o *OEMM, n int, v Visit) Action {
		node := &o.Nodes[n]
		switch {
		case node.TriangleCount == 0:
			return SkipChildren
		case v == Leaf:
			groups = append(groups, []int{node.LeafID})
		case v == PreOrder && node.TriangleCount <= maxTriangles:
			var g []int
			for _, id := range o.SubtreeLeaves(n) {
				if o.Nodes[o.Leaves[id]].TriangleCount > 0 {
					g = append(g, id)
				}
			}
			groups = append(groups, g)
			return SkipChildren
		}
		return Continue
	})
	return groups
}
