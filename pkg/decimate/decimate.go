// Package decimate simplifies triangle meshes by quadric error edge
// collapse, either in core or leaf group by leaf group over an OEMM.
package decimate

import (
	"container/heap"
	"math"

	"github.com/chazu/tessera/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// minNormalCos is the smallest cosine allowed between a triangle normal
// before and after a collapse.
const minNormalCos = 0.2

type candidate struct {
	cost   float64
	from   *mesh.Vertex
	to     *mesh.Vertex
	stamps [2]int
}

type queue []candidate

func (q queue) Len() int            { return len(q) }
func (q queue) Less(i, j int) bool  { return q[i].cost < q[j].cost }
func (q queue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x interface{}) { *q = append(*q, x.(candidate)) }
func (q *queue) Pop() interface{} {
	old := *q
	c := old[len(old)-1]
	*q = old[:len(old)-1]
	return c
}

// state carries the per-vertex data of one decimation run.
type state struct {
	m      *mesh.Mesh
	q      map[*mesh.Vertex]*quadric
	stamp  map[*mesh.Vertex]int
	locked map[*mesh.Vertex]bool
	pq     queue
}

func newState(m *mesh.Mesh) *state {
	s := &state{
		m:      m,
		q:      make(map[*mesh.Vertex]*quadric, m.VertexCount()),
		stamp:  make(map[*mesh.Vertex]int, m.VertexCount()),
		locked: make(map[*mesh.Vertex]bool),
	}
	incident := make(map[*mesh.Vertex]int, m.VertexCount())
	for _, v := range m.Vertices() {
		s.q[v] = &quadric{}
	}
	for _, t := range m.Triangles() {
		if t.HasAttr(mesh.AttrOuter) {
			continue
		}
		n, area := normal(t.V[0].Pos, t.V[1].Pos, t.V[2].Pos)
		for _, v := range t.V {
			incident[v]++
			if area > 0 {
				s.q[v].add(planeQuadric(n, t.V[0].Pos, area))
			}
		}
	}
	for _, v := range m.Vertices() {
		// A fan shorter than the incident triangle count means several
		// fans meet at v.
		if mesh.IsBoundaryVertex(v) || len(mesh.EdgesAround(v)) != incident[v] {
			s.locked[v] = true
		}
	}
	return s
}

func normal(a, b, c v3.Vec) (v3.Vec, float64) {
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Length()
	if l == 0 {
		return v3.Vec{}, 0
	}
	return n.MulScalar(1 / l), l / 2
}

// push queues the collapse of from into to when from may move.
func (s *state) push(from, to *mesh.Vertex) {
	if s.locked[from] {
		return
	}
	var q quadric
	q.add(*s.q[from])
	q.add(*s.q[to])
	heap.Push(&s.pq, candidate{
		cost:   q.eval(to.Pos),
		from:   from,
		to:     to,
		stamps: [2]int{s.stamp[from], s.stamp[to]},
	})
}

func (s *state) current(c candidate) bool {
	return c.from.Alive() && c.to.Alive() &&
		s.stamp[c.from] == c.stamps[0] && s.stamp[c.to] == c.stamps[1]
}

// flips reports whether moving v onto w turns over a triangle of the
// fan of v that survives the collapse.
func flips(v, w *mesh.Vertex) bool {
	for _, e := range mesh.EdgesAround(v) {
		t := e.T
		if t.IndexOf(w) >= 0 {
			continue
		}
		var moved [3]v3.Vec
		for i, x := range t.V {
			moved[i] = x.Pos
			if x == v {
				moved[i] = w.Pos
			}
		}
		before, _ := normal(t.V[0].Pos, t.V[1].Pos, t.V[2].Pos)
		after, area := normal(moved[0], moved[1], moved[2])
		if area == 0 || before.Dot(after) < minNormalCos {
			return true
		}
	}
	return false
}

// Result reports what a decimation did.
type Result struct {
	Before, After int
	Collapses     int
	MaxError      float64
}

// Mesh collapses edges of m in order of increasing quadric error until
// at most target triangles remain or no legal collapse is left. A vertex
// always collapses onto a neighbor, so no new positions are created.
// Vertices on open or non-manifold edges never move.
func Mesh(m *mesh.Mesh, target int) (Result, error) {
	res := Result{Before: m.TriangleCount()}
	s := newState(m)
	for _, v := range m.Vertices() {
		for _, n := range mesh.Neighbors(v) {
			s.push(v, n)
		}
	}
	for m.TriangleCount() > target && s.pq.Len() > 0 {
		c := heap.Pop(&s.pq).(candidate)
		if !s.current(c) {
			continue
		}
		e, ok := mesh.FindEdge(c.from, c.to)
		if !ok || !mesh.CanCollapse(e) || flips(c.from, c.to) {
			continue
		}
		qv := *s.q[c.from]
		w, err := m.Collapse(e)
		if err != nil {
			return res, err
		}
		delete(s.q, c.from)
		delete(s.stamp, c.from)
		s.q[w].add(qv)
		s.stamp[w]++
		res.Collapses++
		res.MaxError = math.Max(res.MaxError, c.cost)
		for _, n := range mesh.Neighbors(w) {
			s.push(w, n)
			s.push(n, w)
		}
	}
	res.After = m.TriangleCount()
	return res, nil
}
