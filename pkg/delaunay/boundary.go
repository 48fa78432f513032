package delaunay

import (
	"fmt"

	"github.com/chazu/tessera/pkg/mesh"
	"go.uber.org/zap"
)

type edgePair struct{ a, b *mesh.Vertex }

// ForceBoundaryEdge makes start-end an edge of the triangulation and
// marks it AttrBoundary. It returns the half-edge from start to end and
// the number of edges the segment crossed. Crossed edges are flipped
// until none remains; the processing order alternates between passes.
// Exceeding maxIter flips attempts, a vertex lying on the segment, or a
// crossed boundary edge fail with ErrInitialTriangulation.
func (e *Engine) ForceBoundaryEdge(start, end *mesh.Vertex, maxIter int) (mesh.HalfEdge, int, error) {
	m := e.mesh
	if start == end || start.IsOuter() || end.IsOuter() {
		return mesh.HalfEdge{}, 0, fmt.Errorf("%w: invalid boundary segment %v-%v", ErrInitialTriangulation, start, end)
	}
	if h, ok := mesh.FindEdge(start, end); ok {
		h.SetAttr(mesh.AttrBoundary)
		return h, 0, nil
	}
	crossing, err := e.crossingEdges(start, end)
	if err != nil {
		return mesh.HalfEdge{}, 0, err
	}

	queue := crossing
	forward := true
	iter := 0
	for len(queue) > 0 {
		var next []edgePair
		for k := range queue {
			i := k
			if !forward {
				i = len(queue) - 1 - k
			}
			ep := queue[i]
			iter++
			if iter > maxIter {
				e.log.Debug("boundary recovery budget exhausted",
					zap.Stringer("start", start), zap.Stringer("end", end), zap.Int("pending", len(queue)))
				return mesh.HalfEdge{}, len(crossing), fmt.Errorf("%w: segment %v-%v not recovered after %d iterations",
					ErrInitialTriangulation, start, end, maxIter)
			}
			h, ok := mesh.FindEdge(ep.a, ep.b)
			if !ok {
				return mesh.HalfEdge{}, len(crossing), internalf("crossing edge %v-%v vanished", ep.a, ep.b)
			}
			s := h.Sym()
			if s.IsNil() {
				return mesh.HalfEdge{}, len(crossing), internalf("crossing edge %v-%v is open", ep.a, ep.b)
			}
			c, d := h.Apex(), s.Apex()
			if c.IsOuter() || d.IsOuter() || mesh.Orient(c, ep.a, d) <= 0 || mesh.Orient(d, ep.b, c) <= 0 {
				next = append(next, ep)
				continue
			}
			if err := m.Flip(h); err != nil {
				return mesh.HalfEdge{}, len(crossing), err
			}
			e.stats.BoundaryFlips++
			if mesh.SegmentsCross(start, end, c, d) {
				next = append(next, edgePair{c, d})
			}
		}
		queue = next
		forward = !forward
	}

	h, ok := mesh.FindEdge(start, end)
	if !ok {
		return mesh.HalfEdge{}, len(crossing), internalf("segment %v-%v missing after recovery", start, end)
	}
	h.SetAttr(mesh.AttrBoundary)
	return h, len(crossing), nil
}

// crossingEdges walks from start toward end and returns the edges the
// segment crosses, each oriented from its right endpoint to its left one.
func (e *Engine) crossingEdges(start, end *mesh.Vertex) ([]edgePair, error) {
	var cur mesh.HalfEdge
	for _, h := range mesh.EdgesAround(start) {
		b, c := h.Destination(), h.Apex()
		if b.IsOuter() || c.IsOuter() {
			continue
		}
		ob := mesh.Orient(start, end, b)
		if ob == 0 && onRay(start, end, b) {
			return nil, fmt.Errorf("%w: vertex %v lies on segment %v-%v", ErrInitialTriangulation, b, start, end)
		}
		if ob < 0 && mesh.Orient(start, end, c) > 0 {
			cur = h.Next()
			break
		}
	}
	if cur.IsNil() {
		return nil, fmt.Errorf("%w: segment %v-%v leaves the triangulated domain", ErrInitialTriangulation, start, end)
	}

	var out []edgePair
	limit := e.mesh.TriangleCount() + 1
	for i := 0; i <= limit; i++ {
		if cur.HasAttr(mesh.AttrBoundary) {
			return nil, fmt.Errorf("%w: segment %v-%v crosses boundary edge %v-%v",
				ErrInitialTriangulation, start, end, cur.Origin(), cur.Destination())
		}
		out = append(out, edgePair{cur.Origin(), cur.Destination()})
		s := cur.Sym()
		if s.IsNil() {
			return nil, internalf("open edge %v-%v in a 2D mesh", cur.Origin(), cur.Destination())
		}
		w := s.Apex()
		if w == end {
			return out, nil
		}
		if w.IsOuter() {
			return nil, fmt.Errorf("%w: segment %v-%v leaves the triangulated domain", ErrInitialTriangulation, start, end)
		}
		switch o := mesh.Orient(start, end, w); {
		case o == 0:
			return nil, fmt.Errorf("%w: vertex %v lies on segment %v-%v", ErrInitialTriangulation, w, start, end)
		case o > 0:
			cur = s.Next()
		default:
			cur = s.Prev()
		}
	}
	return nil, internalf("walk along %v-%v does not reach its end", start, end)
}

// onRay reports whether the aligned vertex w lies ahead of start in the
// direction of end.
func onRay(start, end, w *mesh.Vertex) bool {
	sx, sy := start.Quantized()
	ex, ey := end.Quantized()
	wx, wy := w.Quantized()
	return float64(ex-sx)*float64(wx-sx)+float64(ey-sy)*float64(wy-sy) > 0
}
