// Package locator finds the triangles of a fixed background mesh closest
// to a point or to a segment. Two indexes are provided: a bounding
// volume hierarchy and a kd-tree over triangle centroids. Liaison uses
// either one to keep an edited mesh attached to its background.
package locator

import (
	"math"

	"github.com/chazu/tessera/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Locator answers proximity queries against a set of triangles.
type Locator interface {
	// Closest returns the index of the triangle nearest to p and the
	// distance to it, or -1 when there are no triangles.
	Closest(p v3.Vec) (index int, dist float64)
	// NearSegment returns the indices of the triangles within tol of
	// segment ab, in increasing order.
	NearSegment(a, b v3.Vec, tol float64) []int
}

func vec(p v3.Vec) r3.Vec { return r3.Vec{X: p.X, Y: p.Y, Z: p.Z} }

func unvec(p r3.Vec) v3.Vec { return v3.Vec{X: p.X, Y: p.Y, Z: p.Z} }

type triangle struct {
	v      [3]r3.Vec
	center r3.Vec
	// radius bounds the distance from center to any point of the
	// triangle.
	radius float64
	index  int
}

func prepare(tris []kernel.Triangle) []triangle {
	out := make([]triangle, len(tris))
	for i, t := range tris {
		a, b, c := vec(t[0]), vec(t[1]), vec(t[2])
		center := r3.Scale(1.0/3, r3.Add(a, r3.Add(b, c)))
		r := math.Max(r3.Norm(r3.Sub(a, center)), math.Max(r3.Norm(r3.Sub(b, center)), r3.Norm(r3.Sub(c, center))))
		out[i] = triangle{v: [3]r3.Vec{a, b, c}, center: center, radius: r, index: i}
	}
	return out
}

func (t *triangle) dist2(p r3.Vec) float64 {
	c, _ := ClosestPointOnTriangle(p, t.v[0], t.v[1], t.v[2])
	return r3.Norm2(r3.Sub(p, c))
}

func (t *triangle) segmentDist2(a, b r3.Vec) float64 {
	return segmentTriangleDist2(a, b, t.v[0], t.v[1], t.v[2])
}

// ClosestPoint returns the point of t closest to p.
func ClosestPoint(t kernel.Triangle, p v3.Vec) v3.Vec {
	c, _ := ClosestPointOnTriangle(vec(p), vec(t[0]), vec(t[1]), vec(t[2]))
	return unvec(c)
}
