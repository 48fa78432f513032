package mesh

// extLink is the far side of an edge, captured before a rewrite.
type extLink struct {
	t    *Triangle
	l    int8
	attr Attr
}

func external(t *Triangle, l int) extLink {
	return extLink{t: t.adj[l], l: t.adjIdx[l], attr: t.edgeAttr[l]}
}

// reattach glues edge l of t to a captured external side.
func reattach(t *Triangle, l int, x extLink) {
	t.adj[l] = x.t
	t.adjIdx[l] = x.l
	t.edgeAttr[l] = x.attr
	if x.t != nil {
		x.t.adj[x.l] = t
		x.t.adjIdx[x.l] = int8(l)
	}
}

// glueInner glues two fresh internal edges and clears their attributes.
func glueInner(t1 *Triangle, l1 int, t2 *Triangle, l2 int) {
	Glue(t1, l1, t2, l2)
	t1.edgeAttr[l1] = 0
	t2.edgeAttr[l2] = 0
}

// Snapshot records the triangles and links touched by a split so that
// the split can be undone while no other change happened in between.
type Snapshot struct {
	tris    []*Triangle
	states  []triState
	verts   []*Vertex
	links   []*Triangle
	created []*Triangle
	added   *Vertex
}

func (m *Mesh) snapshot(ts ...*Triangle) *Snapshot {
	s := &Snapshot{}
	seen := make(map[*Triangle]bool, 8)
	keep := func(t *Triangle) {
		if t == nil || seen[t] {
			return
		}
		seen[t] = true
		s.tris = append(s.tris, t)
		s.states = append(s.states, t.save())
		for _, v := range t.V {
			s.verts = append(s.verts, v)
			s.links = append(s.links, v.Link)
		}
	}
	for _, t := range ts {
		keep(t)
	}
	for _, t := range ts {
		if t == nil {
			continue
		}
		for _, n := range t.adj {
			keep(n)
		}
	}
	return s
}

// Vertex returns the vertex inserted by the recorded split.
func (s *Snapshot) Vertex() *Vertex { return s.added }

// Created returns the triangles created by the recorded split.
func (s *Snapshot) Created() []*Triangle { return s.created }

// Rollback undoes the split recorded by s.
func (m *Mesh) Rollback(s *Snapshot) {
	for _, t := range s.created {
		m.removeTriangle(t)
	}
	for i, t := range s.tris {
		t.restore(s.states[i])
	}
	for i := len(s.verts) - 1; i >= 0; i-- {
		s.verts[i].Link = s.links[i]
	}
	if s.added != nil {
		m.RemoveVertex(s.added)
	}
}

// Split inserts p inside t, replacing t by three triangles sharing p.
// t keeps the edge opposite its first vertex; the two new triangles
// inherit the other two edges and their attributes.
func (m *Mesh) Split(t *Triangle, p *Vertex) *Snapshot {
	s := m.snapshot(t)
	x0, x1, x2 := t.V[0], t.V[1], t.V[2]
	ext1, ext2 := external(t, 1), external(t, 2)

	m.AddVertex(p)
	t1 := m.NewTriangle(x0, p, x2)
	t2 := m.NewTriangle(x0, x1, p)
	for _, n := range []*Triangle{t1, t2} {
		n.Group = t.Group
		n.attr = t.attr &^ attrMarked
	}
	t.V[0] = p

	reattach(t1, 1, ext1)
	reattach(t2, 2, ext2)
	glueInner(t, 1, t1, 0)
	glueInner(t, 2, t2, 0)
	glueInner(t1, 2, t2, 1)

	p.Link = t
	x0.Link = t1
	x1.Link = t
	x2.Link = t

	s.created = []*Triangle{t1, t2}
	s.added = p
	return s
}

// SplitEdge inserts p on edge e, replacing the one or two triangles
// sharing e by two or four triangles. The halves of e keep its
// attributes.
func (m *Mesh) SplitEdge(e HalfEdge, p *Vertex) *Snapshot {
	t, l := e.T, e.L
	sym := e.Sym()
	s := m.snapshot(t, sym.T)

	a, b, c := e.Origin(), e.Destination(), e.Apex()
	attr := t.edgeAttr[l]
	tExtB, tExtC := external(t, next3[l]), external(t, prev3[l])

	m.AddVertex(p)
	// t becomes (c, a, p) and tp is (c, p, b).
	tp := m.NewTriangle(c, p, b)
	tp.Group = t.Group
	tp.attr = t.attr &^ attrMarked
	t.V = [3]*Vertex{c, a, p}
	t.adj = [3]*Triangle{}
	t.edgeAttr = [3]Attr{}
	reattach(t, 2, tExtC)
	reattach(tp, 1, tExtB)
	glueInner(t, 1, tp, 2)
	s.created = []*Triangle{tp}

	if sym.IsNil() {
		Glue(t, 0, nil, 0)
		Glue(tp, 0, nil, 0)
		t.edgeAttr[0] = attr
		tp.edgeAttr[0] = attr
	} else {
		u, k := sym.T, sym.L
		d := sym.Apex()
		uExtA, uExtB := external(u, next3[k]), external(u, prev3[k])
		// u becomes (d, b, p) and up is (d, p, a).
		up := m.NewTriangle(d, p, a)
		up.Group = u.Group
		up.attr = u.attr &^ attrMarked
		u.V = [3]*Vertex{d, b, p}
		u.adj = [3]*Triangle{}
		u.edgeAttr = [3]Attr{}
		reattach(u, 2, uExtB)
		reattach(up, 1, uExtA)
		glueInner(u, 1, up, 2)
		Glue(t, 0, up, 0)
		Glue(tp, 0, u, 0)
		for _, x := range []*Triangle{t, tp, u, up} {
			x.edgeAttr[0] = attr
		}
		d.Link = u
		s.created = append(s.created, up)
	}

	a.Link = t
	c.Link = t
	p.Link = t
	b.Link = tp
	s.added = p
	return s
}

// Flip replaces the diagonal of the quadrilateral formed by the two
// triangles sharing e. With e running a→b in t=(.., apex c) and d the
// apex across, t becomes (c, a, d) and its neighbor (d, b, c); the new
// diagonal is edge 1 of both.
func (m *Mesh) Flip(e HalfEdge) error {
	sym := e.Sym()
	if sym.IsNil() {
		return internalf("flip of open edge %v-%v", e.Origin(), e.Destination())
	}
	if e.HasAttr(AttrBoundary | AttrNonManifold) {
		return internalf("flip of constrained edge %v-%v", e.Origin(), e.Destination())
	}
	t, l := e.T, e.L
	u, k := sym.T, sym.L
	a, b, c, d := e.Origin(), e.Destination(), e.Apex(), sym.Apex()

	tNext, tPrev := external(t, next3[l]), external(t, prev3[l])
	uNext, uPrev := external(u, next3[k]), external(u, prev3[k])

	t.V = [3]*Vertex{c, a, d}
	u.V = [3]*Vertex{d, b, c}
	reattach(t, 0, uNext)
	reattach(t, 2, tPrev)
	reattach(u, 0, tNext)
	reattach(u, 2, uPrev)
	glueInner(t, 1, u, 1)

	a.Link = t
	c.Link = t
	b.Link = u
	d.Link = u
	return nil
}

// glueEdges makes two half-edges symmetric, either side possibly nil.
func glueEdges(x, y HalfEdge, attr Attr) {
	switch {
	case x.IsNil() && y.IsNil():
	case x.IsNil():
		Glue(y.T, y.L, nil, 0)
		y.T.edgeAttr[y.L] = attr
	case y.IsNil():
		Glue(x.T, x.L, nil, 0)
		x.T.edgeAttr[x.L] = attr
	default:
		Glue(x.T, x.L, y.T, y.L)
		x.T.edgeAttr[x.L] = attr
		y.T.edgeAttr[y.L] = attr
	}
}

// CanCollapse reports whether merging the origin of e into its
// destination keeps the mesh a valid 2-manifold: e must be an interior
// unconstrained edge and the endpoints must share exactly the two apex
// vertices of the triangles adjacent to e.
func CanCollapse(e HalfEdge) bool {
	if e.IsNil() {
		return false
	}
	sym := e.Sym()
	if sym.IsNil() || e.HasAttr(AttrBoundary|AttrNonManifold) {
		return false
	}
	v, w := e.Origin(), e.Destination()
	x, y := e.Apex(), sym.Apex()
	if x == y {
		return false
	}
	wn := make(map[*Vertex]bool)
	for _, n := range Neighbors(w) {
		wn[n] = true
	}
	common := 0
	for _, n := range Neighbors(v) {
		if wn[n] {
			if n != x && n != y {
				return false
			}
			common++
		}
	}
	if common != 2 {
		return false
	}
	n1, n2 := e.Next().Sym(), e.Prev().Sym()
	n3, n4 := sym.Next().Sym(), sym.Prev().Sym()
	if !n1.IsNil() && !n2.IsNil() && n1.T == n2.T {
		return false
	}
	if !n3.IsNil() && !n4.IsNil() && n3.T == n4.T {
		return false
	}
	return true
}

// Collapse merges the origin of e into its destination, removing the
// two triangles adjacent to e. It returns the surviving vertex.
func (m *Mesh) Collapse(e HalfEdge) (*Vertex, error) {
	if !CanCollapse(e) {
		return nil, internalf("illegal collapse of %v-%v", e.Origin(), e.Destination())
	}
	sym := e.Sym()
	v, w := e.Origin(), e.Destination()
	x, y := e.Apex(), sym.Apex()
	t, u := e.T, sym.T

	fan := EdgesAround(v)
	fanW, fanX, fanY := EdgesAround(w), EdgesAround(x), EdgesAround(y)
	n1, n2 := e.Next().Sym(), e.Prev().Sym()
	n3, n4 := sym.Next().Sym(), sym.Prev().Sym()
	a12 := e.Next().T.edgeAttr[e.Next().L] | e.Prev().T.edgeAttr[e.Prev().L]
	a34 := sym.Next().T.edgeAttr[sym.Next().L] | sym.Prev().T.edgeAttr[sym.Prev().L]

	for _, f := range fan {
		if f.T == t || f.T == u {
			continue
		}
		f.T.V[f.T.IndexOf(v)] = w
	}
	glueEdges(n1, n2, a12)
	glueEdges(n3, n4, a34)

	m.removeTriangle(t)
	m.removeTriangle(u)
	t.adj, u.adj = [3]*Triangle{}, [3]*Triangle{}

	// A surviving vertex keeps a live link when any triangle still holds
	// it, including one outside the fan of e on a pinched vertex.
	relink := func(z *Vertex, cands ...[]HalfEdge) {
		if z.Link != nil && z.Link.Alive() && z.Link.IndexOf(z) >= 0 {
			return
		}
		for _, cs := range cands {
			for _, c := range cs {
				if !c.IsNil() && c.T.Alive() && c.T.IndexOf(z) >= 0 {
					z.Link = c.T
					return
				}
			}
		}
		z.Link = nil
	}
	relink(w, []HalfEdge{n1, n2, n3, n4}, fanW, fan)
	relink(x, []HalfEdge{n1, n2}, fanX)
	relink(y, []HalfEdge{n3, n4}, fanY)
	m.RemoveVertex(v)
	return w, nil
}
