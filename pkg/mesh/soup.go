package mesh

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// WeldSoup merges vertices with identical coordinates and returns an
// indexed triangle list.
func WeldSoup(soup [][3]v3.Vec) ([]v3.Vec, [][3]int) {
	index := make(map[v3.Vec]int, len(soup))
	verts := make([]v3.Vec, 0, len(soup)/2+3)
	tris := make([][3]int, len(soup))
	for i, t := range soup {
		for j, p := range t {
			k, ok := index[p]
			if !ok {
				k = len(verts)
				index[p] = k
				verts = append(verts, p)
			}
			tris[i][j] = k
		}
	}
	return verts, tris
}

type edgeKey struct{ a, b int }

func undirected(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// FromTriangles builds a 3D half-edge mesh from an indexed triangle list.
// groups, when not nil, gives the Group of each triangle. Edges shared by
// more than two triangles, or by two inconsistently oriented ones, are
// flagged AttrNonManifold and left open. Triangles with a repeated index
// are dropped.
func FromTriangles(verts []v3.Vec, tris [][3]int, groups []int) (*Mesh, error) {
	if groups != nil && len(groups) != len(tris) {
		return nil, fmt.Errorf("mesh: %d groups for %d triangles", len(groups), len(tris))
	}
	m := New3D()
	vs := make([]*Vertex, len(verts))
	for i, p := range verts {
		vs[i] = m.NewVertex3(p)
		m.AddVertex(vs[i])
	}

	edges := make(map[edgeKey][]HalfEdge, len(tris)*3/2)
	for i, idx := range tris {
		for _, k := range idx {
			if k < 0 || k >= len(verts) {
				return nil, fmt.Errorf("mesh: triangle %d references vertex %d of %d", i, k, len(verts))
			}
		}
		if idx[0] == idx[1] || idx[1] == idx[2] || idx[2] == idx[0] {
			continue
		}
		t := m.NewTriangle(vs[idx[0]], vs[idx[1]], vs[idx[2]])
		if groups != nil {
			t.Group = groups[i]
		}
		for l := 0; l < 3; l++ {
			key := undirected(idx[next3[l]], idx[prev3[l]])
			edges[key] = append(edges[key], HalfEdge{T: t, L: l})
		}
	}

	for _, hs := range edges {
		switch {
		case len(hs) == 2 && hs[0].Origin() == hs[1].Destination():
			Glue(hs[0].T, hs[0].L, hs[1].T, hs[1].L)
		case len(hs) >= 2:
			for _, h := range hs {
				h.T.edgeAttr[h.L] |= AttrNonManifold
			}
		}
	}

	// Drop vertices no triangle references.
	for _, v := range vs {
		if v.Link == nil {
			m.RemoveVertex(v)
		}
	}
	return m, nil
}

// Soup returns the triangles of a 3D mesh as position triples together
// with their groups.
func (m *Mesh) Soup() ([][3]v3.Vec, []int) {
	out := make([][3]v3.Vec, 0, len(m.tris))
	groups := make([]int, 0, len(m.tris))
	for _, t := range m.tris {
		if t.HasAttr(AttrOuter) {
			continue
		}
		out = append(out, [3]v3.Vec{t.V[0].Pos, t.V[1].Pos, t.V[2].Pos})
		groups = append(groups, t.Group)
	}
	return out, groups
}
