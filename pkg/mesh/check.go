package mesh

// CheckInvariants verifies adjacency symmetry, vertex links, the
// orientation of inner triangles of 2D meshes and the quadtree
// population. It returns the first violation found.
func (m *Mesh) CheckInvariants() error {
	for i, t := range m.tris {
		if t.index != i {
			return internalf("triangle %d stored at %d", t.index, i)
		}
		for l := 0; l < 3; l++ {
			e := t.Edge(l)
			if e.Next().Next().Next() != e {
				return internalf("next cycle broken at %v", e)
			}
			s := e.Sym()
			if s.IsNil() {
				continue
			}
			if !s.T.Alive() {
				return internalf("edge %v-%v glued to a removed triangle", e.Origin(), e.Destination())
			}
			if s.Sym() != e {
				return internalf("sym(sym(e)) != e at %v-%v", e.Origin(), e.Destination())
			}
			if s.Origin() != e.Destination() || s.Destination() != e.Origin() {
				return internalf("edge %v-%v glued to %v-%v", e.Origin(), e.Destination(), s.Origin(), s.Destination())
			}
			if s.T.edgeAttr[s.L] != t.edgeAttr[l] {
				return internalf("asymmetric attributes on %v-%v", e.Origin(), e.Destination())
			}
		}
		if m.qt != nil && !t.IsOuter() && Orient(t.V[0], t.V[1], t.V[2]) <= 0 {
			return internalf("triangle %v %v %v is not counter-clockwise", t.V[0], t.V[1], t.V[2])
		}
	}
	for _, v := range m.verts {
		if v.Link == nil {
			continue
		}
		if !v.Link.Alive() || v.Link.IndexOf(v) < 0 {
			return internalf("vertex %v linked to a triangle that does not contain it", v)
		}
	}
	if m.Outer != nil && m.Outer.Link != nil {
		if !m.Outer.Link.Alive() || m.Outer.Link.IndexOf(m.Outer) < 0 {
			return internalf("outer vertex link is stale")
		}
	}
	if m.qt != nil && m.qt.Count() != len(m.verts) {
		return internalf("quadtree holds %d vertices, mesh %d", m.qt.Count(), len(m.verts))
	}
	return nil
}
