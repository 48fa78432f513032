package delaunay

import (
	"github.com/chazu/tessera/pkg/mesh"
)

// Location classifies the result of Locate.
type Location int

const (
	// Inside means the point is strictly inside the returned triangle.
	Inside Location = iota
	// OnEdge means the point lies on the returned edge.
	OnEdge
	// OnVertex means the point coincides with the origin of the
	// returned edge.
	OnVertex
	// Outside means the point lies beyond the convex hull; the returned
	// edge is a hull edge seen from an outer triangle.
	Outside
)

func (l Location) String() string {
	switch l {
	case Inside:
		return "inside"
	case OnEdge:
		return "on-edge"
	case OnVertex:
		return "on-vertex"
	case Outside:
		return "outside"
	}
	return "unknown"
}

// Locate finds where v falls in the triangulation by walking from a
// triangle near v, crossing every edge that separates the current
// triangle from v.
func (e *Engine) Locate(v *mesh.Vertex) (mesh.HalfEdge, Location, error) {
	m := e.mesh
	t := e.startTriangle(v)
	if t == nil {
		return mesh.HalfEdge{}, Inside, internalf("locate in a mesh without inner triangles")
	}
	x, y := v.Quantized()
	limit := 4*m.TriangleCount() + 16
	rot := 0
	for i := 0; i < limit; i++ {
		moved := false
		zeros := 0
		var onEdge mesh.HalfEdge
		for k := 0; k < 3; k++ {
			h := t.Edge((k + rot) % 3)
			o := mesh.OrientPoint(h.Origin(), h.Destination(), x, y)
			if o < 0 {
				s := h.Sym()
				if s.IsNil() {
					return mesh.HalfEdge{}, Inside, internalf("open edge %v-%v in a 2D mesh", h.Origin(), h.Destination())
				}
				if s.T.IsOuter() {
					return s, Outside, nil
				}
				t, moved = s.T, true
				break
			}
			if o == 0 {
				zeros++
				onEdge = h
			}
		}
		// Rotating the first tested edge avoids cycling on degenerate walks.
		rot = (rot + 1) % 3
		if moved {
			continue
		}
		return classify(t, onEdge, zeros, x, y)
	}
	e.log.Debug("walk did not converge, scanning all triangles")
	return e.locateBruteForce(v)
}

func classify(t *mesh.Triangle, onEdge mesh.HalfEdge, zeros int, x, y int64) (mesh.HalfEdge, Location, error) {
	for _, w := range t.V {
		if wx, wy := w.Quantized(); wx == x && wy == y {
			h, _ := t.EdgeFrom(w)
			return h, OnVertex, nil
		}
	}
	if zeros > 0 {
		return onEdge, OnEdge, nil
	}
	return t.Edge(0), Inside, nil
}

// startTriangle returns an inner triangle incident to the vertex the
// quadtree reports near v.
func (e *Engine) startTriangle(v *mesh.Vertex) *mesh.Triangle {
	m := e.mesh
	if qt := m.QuadTree(); qt != nil {
		if near := qt.NearVertex(v.UV[0], v.UV[1]); near != nil {
			for _, h := range mesh.EdgesAround(near) {
				if !h.T.IsOuter() {
					return h.T
				}
			}
		}
	}
	for _, t := range m.Triangles() {
		if !t.IsOuter() {
			return t
		}
	}
	return nil
}

func (e *Engine) locateBruteForce(v *mesh.Vertex) (mesh.HalfEdge, Location, error) {
	x, y := v.Quantized()
	for _, t := range e.mesh.Triangles() {
		if t.IsOuter() {
			continue
		}
		zeros := 0
		var onEdge mesh.HalfEdge
		inside := true
		for l := 0; l < 3; l++ {
			h := t.Edge(l)
			o := mesh.OrientPoint(h.Origin(), h.Destination(), x, y)
			if o < 0 {
				inside = false
				break
			}
			if o == 0 {
				zeros++
				onEdge = h
			}
		}
		if inside {
			return classify(t, onEdge, zeros, x, y)
		}
	}
	for _, t := range e.mesh.Triangles() {
		if !t.IsOuter() {
			continue
		}
		h := t.Edge(t.IndexOf(e.mesh.Outer))
		if mesh.OrientPoint(h.Origin(), h.Destination(), x, y) > 0 {
			return h, Outside, nil
		}
	}
	return mesh.HalfEdge{}, Inside, internalf("cannot locate %v", v)
}
