package mesh

// Attr is a triangle or edge attribute bitmask.
type Attr uint8

const (
	// AttrOuter marks triangles outside the meshed domain: the fan around
	// the Outer vertex and triangles classified as exterior or hole.
	AttrOuter Attr = 1 << iota
	// AttrBoundary marks constrained edges that must never be flipped.
	AttrBoundary
	// AttrNonManifold marks edges shared by more than two triangles.
	AttrNonManifold
	// attrMarked is scratch space for traversals.
	attrMarked
)

var next3 = [3]int{1, 2, 0}
var prev3 = [3]int{2, 0, 1}

// Triangle holds three vertices in counter-clockwise order together with
// the adjacency of its three edges.
type Triangle struct {
	V [3]*Vertex
	// Group is an application tag, such as the OEMM leaf a triangle was
	// loaded from.
	Group int

	adj      [3]*Triangle
	adjIdx   [3]int8
	edgeAttr [3]Attr
	attr     Attr
	index    int
}

// HasAttr reports whether the triangle carries attribute a. Triangles
// incident to the Outer vertex are always AttrOuter.
func (t *Triangle) HasAttr(a Attr) bool {
	if a&AttrOuter != 0 && t.IsOuter() {
		return true
	}
	return t.attr&a != 0
}

// SetAttr sets triangle attributes.
func (t *Triangle) SetAttr(a Attr) { t.attr |= a }

// ClearAttr clears triangle attributes.
func (t *Triangle) ClearAttr(a Attr) { t.attr &^= a }

// IsOuter reports whether the triangle is incident to the Outer vertex.
func (t *Triangle) IsOuter() bool {
	return t.V[0].outer || t.V[1].outer || t.V[2].outer
}

// Alive reports whether the triangle is still part of a mesh.
func (t *Triangle) Alive() bool { return t.index >= 0 }

// Edge returns half-edge l of t.
func (t *Triangle) Edge(l int) HalfEdge { return HalfEdge{T: t, L: l} }

// IndexOf returns the local index of v in t, or -1.
func (t *Triangle) IndexOf(v *Vertex) int {
	for i, w := range t.V {
		if w == v {
			return i
		}
	}
	return -1
}

// EdgeFrom returns the half-edge of t whose origin is v.
func (t *Triangle) EdgeFrom(v *Vertex) (HalfEdge, bool) {
	i := t.IndexOf(v)
	if i < 0 {
		return HalfEdge{}, false
	}
	return HalfEdge{T: t, L: prev3[i]}, true
}

// Neighbor returns the triangle across edge l, or nil.
func (t *Triangle) Neighbor(l int) *Triangle { return t.adj[l] }

// state captures everything a split may change on a triangle.
type triState struct {
	V        [3]*Vertex
	adj      [3]*Triangle
	adjIdx   [3]int8
	edgeAttr [3]Attr
	attr     Attr
}

func (t *Triangle) save() triState {
	return triState{V: t.V, adj: t.adj, adjIdx: t.adjIdx, edgeAttr: t.edgeAttr, attr: t.attr}
}

func (t *Triangle) restore(s triState) {
	t.V, t.adj, t.adjIdx, t.edgeAttr, t.attr = s.V, s.adj, s.adjIdx, s.edgeAttr, s.attr
}
