package delaunay

import (
	"math"
	"sort"

	"github.com/chazu/tessera/pkg/kernel"
	"github.com/chazu/tessera/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"
)

// ClassifyDomain marks every triangle outside the region enclosed by
// boundary edges as AttrOuter. Starting from the outer fan, crossing a
// boundary edge toggles between exterior and interior, so holes nested
// in the domain come out exterior. It returns the inner and outer counts.
func (e *Engine) ClassifyDomain() (inner, outer int) {
	tris := e.mesh.Triangles()
	parity := make(map[*mesh.Triangle]int, len(tris))
	var queue []*mesh.Triangle
	for _, t := range tris {
		if t.IsOuter() {
			parity[t] = 0
			queue = append(queue, t)
		}
	}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		for l := 0; l < 3; l++ {
			n := t.Neighbor(l)
			if n == nil {
				continue
			}
			if _, seen := parity[n]; seen {
				continue
			}
			p := parity[t]
			if t.Edge(l).HasAttr(mesh.AttrBoundary) {
				p ^= 1
			}
			parity[n] = p
			queue = append(queue, n)
		}
	}
	for _, t := range tris {
		if parity[t] == 0 {
			t.SetAttr(mesh.AttrOuter)
			outer++
		} else {
			t.ClearAttr(mesh.AttrOuter)
			inner++
		}
	}
	return inner, outer
}

type candidate struct {
	a, b   *mesh.Vertex
	length float64
}

// edgeLength is the length of a-b averaged over the metrics of both
// endpoints.
func (e *Engine) edgeLength(a, b *mesh.Vertex) float64 {
	ma, mb := e.mesh.MetricAt(a), e.mesh.MetricAt(b)
	la := ma.Distance(a.UV[0], a.UV[1], b.UV[0], b.UV[1])
	lb := mb.Distance(a.UV[0], a.UV[1], b.UV[0], b.UV[1])
	return 0.5 * (la + lb)
}

// Refine splits interior edges longer than √2·length, measured in the
// local metric, at their midpoints. Each pass handles the longest edges
// first and skips midpoints closer than length/2 to an existing vertex.
// It stops after maxPasses or when a pass inserts nothing, and returns
// the number of inserted vertices. Call it after ClassifyDomain.
func (e *Engine) Refine(length float64, maxPasses int) (int, error) {
	m := e.mesh
	limit := math.Sqrt2 * length
	total := 0
	for pass := 0; pass < maxPasses; pass++ {
		var cands []candidate
		seen := make(map[[2]*mesh.Vertex]bool)
		for _, t := range m.Triangles() {
			if t.HasAttr(mesh.AttrOuter) {
				continue
			}
			for l := 0; l < 3; l++ {
				h := t.Edge(l)
				s := h.Sym()
				if s.IsNil() || s.T.HasAttr(mesh.AttrOuter) || h.HasAttr(mesh.AttrBoundary) {
					continue
				}
				a, b := h.Origin(), h.Destination()
				if seen[[2]*mesh.Vertex{b, a}] {
					continue
				}
				seen[[2]*mesh.Vertex{a, b}] = true
				if n := e.edgeLength(a, b); n > limit {
					cands = append(cands, candidate{a: a, b: b, length: n})
				}
			}
		}
		sort.SliceStable(cands, func(i, j int) bool { return cands[i].length > cands[j].length })

		inserted := 0
		for _, c := range cands {
			if _, ok := mesh.FindEdge(c.a, c.b); !ok {
				continue
			}
			u := 0.5 * (c.a.UV[0] + c.b.UV[0])
			w := 0.5 * (c.a.UV[1] + c.b.UV[1])
			v := e.NewVertex(u, w)
			mv := m.MetricAt(v)
			if near := m.QuadTree().NearestVertex(mv, u, w); near != nil &&
				mv.Distance(u, w, near.UV[0], near.UV[1]) < 0.5*length {
				continue
			}
			h, loc, err := e.Locate(v)
			if err != nil {
				return total, err
			}
			if loc == Outside || h.T.HasAttr(mesh.AttrOuter) {
				continue
			}
			ok, err := e.insertAt(v, h, loc, true)
			if err != nil {
				return total, err
			}
			if ok {
				inserted++
			}
		}
		e.log.Debug("refinement pass", zap.Int("pass", pass), zap.Int("candidates", len(cands)), zap.Int("inserted", inserted))
		total += inserted
		if inserted == 0 {
			break
		}
	}
	return total, nil
}

// Export returns the inner triangles as a flat mesh. Positions come from
// the surface when there is one, else from (u, v, 0).
func (e *Engine) Export(name string) *kernel.Mesh {
	out := &kernel.Mesh{PartName: name}
	index := make(map[*mesh.Vertex]uint32)
	add := func(v *mesh.Vertex) uint32 {
		if i, ok := index[v]; ok {
			return i
		}
		i := uint32(len(index))
		index[v] = i
		p := v.Pos
		n := v3.Vec{Z: 1}
		if s := e.opts.Surface; s != nil {
			p = s.Value(v.UV[0], v.UV[1])
			if c := s.D1U(v.UV[0], v.UV[1]).Cross(s.D1V(v.UV[0], v.UV[1])); c.Length() > 0 {
				n = c.Normalize()
			}
		}
		out.Vertices = append(out.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
		out.Normals = append(out.Normals, float32(n.X), float32(n.Y), float32(n.Z))
		out.UVs = append(out.UVs, float32(v.UV[0]), float32(v.UV[1]))
		return i
	}
	for _, t := range e.mesh.Triangles() {
		if t.HasAttr(mesh.AttrOuter) {
			continue
		}
		out.Indices = append(out.Indices, add(t.V[0]), add(t.V[1]), add(t.V[2]))
	}
	return out
}
