package delaunay

import (
	"math"

	"github.com/chazu/tessera/pkg/mesh"
	"github.com/chazu/tessera/pkg/metric"
)

// flatTolerance rejects circumcenter systems whose determinant is tiny
// relative to the triangle size.
const flatTolerance = 1e-10

// circumcenter returns the center of the circle through p1, p2, p3 in
// metric m, relative to p1, and its squared metric radius.
func circumcenter(p1, p2, p3 *mesh.Vertex, m metric.Metric) (float64, float64, float64, bool) {
	x2, y2 := p2.UV[0]-p1.UV[0], p2.UV[1]-p1.UV[1]
	x3, y3 := p3.UV[0]-p1.UV[0], p3.UV[1]-p1.UV[1]
	// Dot(p2-p1, c) = |p2-p1|²/2 and Dot(p3-p1, c) = |p3-p1|²/2.
	a11, a12 := m.Dot(x2, y2, 1, 0), m.Dot(x2, y2, 0, 1)
	a21, a22 := m.Dot(x3, y3, 1, 0), m.Dot(x3, y3, 0, 1)
	r1 := 0.5 * m.Dot(x2, y2, x2, y2)
	r2 := 0.5 * m.Dot(x3, y3, x3, y3)
	det := a11*a22 - a12*a21
	scale := math.Hypot(a11, a12) * math.Hypot(a21, a22)
	if !(scale > 0) || math.Abs(det) <= flatTolerance*scale {
		return 0, 0, 0, false
	}
	cx := (r1*a22 - a12*r2) / det
	cy := (a11*r2 - r1*a21) / det
	radius2 := m.Dot(cx, cy, cx, cy)
	if math.IsNaN(radius2) || math.IsInf(radius2, 0) || radius2 <= 0 {
		return 0, 0, 0, false
	}
	return cx, cy, radius2, true
}

// anisotropicInCircle compares the distance from q to the circumcenter
// of (p1, p2, p3) with the circumradius, in m1 and in m2. q is inside
// when the normalized distances average below one. ok is false when a
// circumcenter cannot be computed.
func anisotropicInCircle(p1, p2, p3, q *mesh.Vertex, m1, m2 metric.Metric) (inside, ok bool) {
	sum := 0.0
	for _, m := range []metric.Metric{m1, m2} {
		cx, cy, r2, ok := circumcenter(p1, p2, p3, m)
		if !ok {
			return false, false
		}
		dx := q.UV[0] - p1.UV[0] - cx
		dy := q.UV[1] - p1.UV[1] - cy
		sum += math.Sqrt(m.Dot(dx, dy, dx, dy) / r2)
	}
	return sum < 2, true
}
