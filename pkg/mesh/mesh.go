package mesh

import (
	"github.com/chazu/tessera/pkg/metric"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh owns vertices, triangles and, for parametric meshes, the quadtree
// that indexes the vertices. It is not safe for concurrent use.
type Mesh struct {
	// Outer is the conventional vertex at infinity of 2D meshes.
	Outer *Vertex
	// Metric is used for vertices without a cached metric.
	Metric metric.Metric

	tris  []*Triangle
	verts []*Vertex
	qt    *QuadTree
}

// New2D returns an empty parametric mesh whose vertices must lie inside
// the given bounds.
func New2D(umin, vmin, umax, vmax float64) *Mesh {
	return &Mesh{
		Outer:  &Vertex{outer: true, index: -1},
		Metric: metric.Euclidean,
		qt:     NewQuadTree(umin, vmin, umax, vmax),
	}
}

// New3D returns an empty 3D mesh.
func New3D() *Mesh {
	return &Mesh{Metric: metric.Euclidean}
}

// QuadTree returns the vertex locator of a 2D mesh, or nil.
func (m *Mesh) QuadTree() *QuadTree { return m.qt }

// Triangles returns the live triangles. The slice is owned by the mesh
// and is invalidated by any topological change.
func (m *Mesh) Triangles() []*Triangle { return m.tris }

// Vertices returns the live vertices, excluding Outer.
func (m *Mesh) Vertices() []*Vertex { return m.verts }

// TriangleCount returns the number of live triangles.
func (m *Mesh) TriangleCount() int { return len(m.tris) }

// VertexCount returns the number of live vertices, excluding Outer.
func (m *Mesh) VertexCount() int { return len(m.verts) }

// InnerTriangleCount counts triangles that are not AttrOuter.
func (m *Mesh) InnerTriangleCount() int {
	n := 0
	for _, t := range m.tris {
		if !t.HasAttr(AttrOuter) {
			n++
		}
	}
	return n
}

// NewVertex creates a parametric vertex. It is not yet part of the mesh;
// see AddVertex.
func (m *Mesh) NewVertex(u, v float64) *Vertex {
	vx := &Vertex{UV: [2]float64{u, v}, index: -1}
	if m.qt != nil {
		vx.ix, vx.iy = m.qt.Quantize(u, v)
	}
	return vx
}

// NewVertex3 creates a 3D vertex. It is not yet part of the mesh.
func (m *Mesh) NewVertex3(p v3.Vec) *Vertex {
	return &Vertex{Pos: p, index: -1}
}

// AddVertex registers v in the mesh and its quadtree.
func (m *Mesh) AddVertex(v *Vertex) {
	if v.index >= 0 {
		return
	}
	v.index = len(m.verts)
	m.verts = append(m.verts, v)
	if m.qt != nil {
		m.qt.Add(v)
	}
}

// RemoveVertex unregisters v from the mesh and its quadtree.
func (m *Mesh) RemoveVertex(v *Vertex) {
	if v.index < 0 {
		return
	}
	last := m.verts[len(m.verts)-1]
	m.verts[v.index] = last
	last.index = v.index
	m.verts = m.verts[:len(m.verts)-1]
	v.index = -1
	v.Link = nil
	if m.qt != nil {
		m.qt.Remove(v)
	}
}

// Move changes the parametric coordinates of a registered vertex and
// keeps the quadtree in sync.
func (m *Mesh) Move(v *Vertex, u, w float64) {
	if m.qt != nil && v.index >= 0 {
		m.qt.Remove(v)
	}
	v.UV = [2]float64{u, w}
	if m.qt != nil {
		v.ix, v.iy = m.qt.Quantize(u, w)
		if v.index >= 0 {
			m.qt.Add(v)
		}
	}
}

// MetricAt returns the metric attached to v, or the mesh default.
func (m *Mesh) MetricAt(v *Vertex) metric.Metric {
	if v.Metric != nil {
		return v.Metric
	}
	if m.Metric != nil {
		return m.Metric
	}
	return metric.Euclidean
}

// NewTriangle creates and registers a triangle and links its vertices.
func (m *Mesh) NewTriangle(a, b, c *Vertex) *Triangle {
	t := &Triangle{V: [3]*Vertex{a, b, c}, index: len(m.tris)}
	m.tris = append(m.tris, t)
	for _, v := range t.V {
		if v.Link == nil {
			v.Link = t
		}
	}
	return t
}

// removeTriangle unregisters t without touching its neighbors.
func (m *Mesh) removeTriangle(t *Triangle) {
	if t.index < 0 {
		return
	}
	last := m.tris[len(m.tris)-1]
	m.tris[t.index] = last
	last.index = t.index
	m.tris = m.tris[:len(m.tris)-1]
	t.index = -1
}

// Glue makes edge l1 of t1 and edge l2 of t2 symmetric. A nil t2 opens
// edge l1.
func Glue(t1 *Triangle, l1 int, t2 *Triangle, l2 int) {
	t1.adj[l1] = t2
	t1.adjIdx[l1] = int8(l2)
	if t2 != nil {
		t2.adj[l2] = t1
		t2.adjIdx[l2] = int8(l1)
	}
}

// VertexEdge returns a half-edge whose origin is v.
func VertexEdge(v *Vertex) (HalfEdge, bool) {
	if v.Link == nil {
		return HalfEdge{}, false
	}
	return v.Link.EdgeFrom(v)
}

// EdgesAround returns the half-edges leaving v in counter-clockwise
// order. On an open fan the result starts at the clockwise-most edge.
func EdgesAround(v *Vertex) []HalfEdge {
	start, ok := VertexEdge(v)
	if !ok {
		return nil
	}
	// Rewind to the first edge of an open fan.
	e := start
	for {
		p := e.PrevOrigin()
		if p.IsNil() {
			break
		}
		e = p
		if e == start {
			break
		}
	}
	first := e
	var out []HalfEdge
	for {
		out = append(out, e)
		e = e.NextOrigin()
		if e.IsNil() || e == first {
			break
		}
	}
	return out
}

// Neighbors returns the vertices adjacent to v.
func Neighbors(v *Vertex) []*Vertex {
	edges := EdgesAround(v)
	out := make([]*Vertex, 0, len(edges)+1)
	for _, e := range edges {
		out = append(out, e.Destination())
	}
	// An open fan also reaches the apex of its last triangle.
	if n := len(edges); n > 0 {
		last := edges[n-1]
		if last.NextOrigin().IsNil() {
			out = append(out, last.Apex())
		}
	}
	return out
}

// IsBoundaryVertex reports whether v lies on an open or non-manifold edge.
func IsBoundaryVertex(v *Vertex) bool {
	edges := EdgesAround(v)
	if len(edges) == 0 {
		return true
	}
	for _, e := range edges {
		if e.Sym().IsNil() || e.HasAttr(AttrNonManifold) {
			return true
		}
		if p := e.Prev(); p.Sym().IsNil() || p.HasAttr(AttrNonManifold) {
			return true
		}
	}
	return false
}

// FindEdge returns the half-edge from a to b, if any.
func FindEdge(a, b *Vertex) (HalfEdge, bool) {
	for _, e := range EdgesAround(a) {
		if e.Destination() == b {
			return e, true
		}
	}
	return HalfEdge{}, false
}
