package mesh

// HalfEdge is a virtual directed edge: side L of triangle T. The zero
// value is the nil half-edge.
type HalfEdge struct {
	T *Triangle
	L int
}

// IsNil reports whether e refers to no edge.
func (e HalfEdge) IsNil() bool { return e.T == nil }

// Origin returns the start vertex.
func (e HalfEdge) Origin() *Vertex { return e.T.V[next3[e.L]] }

// Destination returns the end vertex.
func (e HalfEdge) Destination() *Vertex { return e.T.V[prev3[e.L]] }

// Apex returns the vertex opposite the edge.
func (e HalfEdge) Apex() *Vertex { return e.T.V[e.L] }

// Next returns the next edge counter-clockwise in the same triangle.
func (e HalfEdge) Next() HalfEdge { return HalfEdge{T: e.T, L: next3[e.L]} }

// Prev returns the previous edge in the same triangle.
func (e HalfEdge) Prev() HalfEdge { return HalfEdge{T: e.T, L: prev3[e.L]} }

// Sym returns the same edge seen from the adjacent triangle, or the nil
// half-edge on an open edge.
func (e HalfEdge) Sym() HalfEdge {
	n := e.T.adj[e.L]
	if n == nil {
		return HalfEdge{}
	}
	return HalfEdge{T: n, L: int(e.T.adjIdx[e.L])}
}

// NextOrigin returns the next edge counter-clockwise around the origin,
// or the nil half-edge when an open edge is reached.
func (e HalfEdge) NextOrigin() HalfEdge {
	return e.Prev().Sym()
}

// PrevOrigin returns the next edge clockwise around the origin.
func (e HalfEdge) PrevOrigin() HalfEdge {
	s := e.Sym()
	if s.IsNil() {
		return s
	}
	return s.Next()
}

// HasAttr reports whether the edge carries attribute a.
func (e HalfEdge) HasAttr(a Attr) bool { return e.T.edgeAttr[e.L]&a != 0 }

// SetAttr sets attribute a on both sides of the edge.
func (e HalfEdge) SetAttr(a Attr) {
	e.T.edgeAttr[e.L] |= a
	if s := e.Sym(); !s.IsNil() {
		s.T.edgeAttr[s.L] |= a
	}
}

// ClearAttr clears attribute a on both sides of the edge.
func (e HalfEdge) ClearAttr(a Attr) {
	e.T.edgeAttr[e.L] &^= a
	if s := e.Sym(); !s.IsNil() {
		s.T.edgeAttr[s.L] &^= a
	}
}

// IsOuter reports whether either vertex is the Outer vertex.
func (e HalfEdge) IsOuter() bool {
	return e.Origin().outer || e.Destination().outer
}
