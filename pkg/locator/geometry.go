package locator

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Region names the part of a triangle holding the closest point.
type Region int

const (
	RegionFace Region = iota
	RegionVertexA
	RegionVertexB
	RegionVertexC
	RegionEdgeAB
	RegionEdgeBC
	RegionEdgeCA
)

func (r Region) String() string {
	switch r {
	case RegionFace:
		return "face"
	case RegionVertexA:
		return "vertex-a"
	case RegionVertexB:
		return "vertex-b"
	case RegionVertexC:
		return "vertex-c"
	case RegionEdgeAB:
		return "edge-ab"
	case RegionEdgeBC:
		return "edge-bc"
	case RegionEdgeCA:
		return "edge-ca"
	}
	return "unknown"
}

// ClosestPointOnTriangle returns the point of triangle abc closest to p
// and the Voronoi region it lies in. The region is found from the signs
// of barycentric-like dot products, so the result is exact up to
// rounding with no iteration.
func ClosestPointOnTriangle(p, a, b, c r3.Vec) (r3.Vec, Region) {
	ab, ac, ap := r3.Sub(b, a), r3.Sub(c, a), r3.Sub(p, a)
	d1, d2 := r3.Dot(ab, ap), r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a, RegionVertexA
	}

	bp := r3.Sub(p, b)
	d3, d4 := r3.Dot(ab, bp), r3.Dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b, RegionVertexB
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return r3.Add(a, r3.Scale(v, ab)), RegionEdgeAB
	}

	cp := r3.Sub(p, c)
	d5, d6 := r3.Dot(ab, cp), r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c, RegionVertexC
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return r3.Add(a, r3.Scale(w, ac)), RegionEdgeCA
	}

	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return r3.Add(b, r3.Scale(w, r3.Sub(c, b))), RegionEdgeBC
	}

	denom := 1 / (va + vb + vc)
	v, w := vb*denom, vc*denom
	return r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac))), RegionFace
}

// segmentSegmentDist2 returns the squared distance between segments
// p1q1 and p2q2.
func segmentSegmentDist2(p1, q1, p2, q2 r3.Vec) float64 {
	d1, d2, r := r3.Sub(q1, p1), r3.Sub(q2, p2), r3.Sub(p1, p2)
	a, e, f := r3.Norm2(d1), r3.Norm2(d2), r3.Dot(d2, r)
	var s, t float64
	switch {
	case a == 0 && e == 0:
		return r3.Norm2(r)
	case a == 0:
		t = clamp01(f / e)
	default:
		c := r3.Dot(d1, r)
		if e == 0 {
			s = clamp01(-c / a)
		} else {
			b := r3.Dot(d1, d2)
			if denom := a*e - b*b; denom != 0 {
				s = clamp01((b*f - c*e) / denom)
			}
			t = (b*s + f) / e
			if t < 0 {
				t, s = 0, clamp01(-c/a)
			} else if t > 1 {
				t, s = 1, clamp01((b-c)/a)
			}
		}
	}
	c1 := r3.Add(p1, r3.Scale(s, d1))
	c2 := r3.Add(p2, r3.Scale(t, d2))
	return r3.Norm2(r3.Sub(c1, c2))
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// segmentHitsTriangle reports whether segment pq crosses triangle abc.
func segmentHitsTriangle(p, q, a, b, c r3.Vec) bool {
	dir := r3.Sub(q, p)
	e1, e2 := r3.Sub(b, a), r3.Sub(c, a)
	h := r3.Cross(dir, e2)
	det := r3.Dot(e1, h)
	if det == 0 {
		return false
	}
	inv := 1 / det
	s := r3.Sub(p, a)
	u := inv * r3.Dot(s, h)
	if u < 0 || u > 1 {
		return false
	}
	qv := r3.Cross(s, e1)
	v := inv * r3.Dot(dir, qv)
	if v < 0 || u+v > 1 {
		return false
	}
	t := inv * r3.Dot(e2, qv)
	return t >= 0 && t <= 1
}

// segmentTriangleDist2 returns the squared distance between segment pq
// and triangle abc.
func segmentTriangleDist2(p, q, a, b, c r3.Vec) float64 {
	if segmentHitsTriangle(p, q, a, b, c) {
		return 0
	}
	cp, _ := ClosestPointOnTriangle(p, a, b, c)
	cq, _ := ClosestPointOnTriangle(q, a, b, c)
	d := math.Min(r3.Norm2(r3.Sub(p, cp)), r3.Norm2(r3.Sub(q, cq)))
	d = math.Min(d, segmentSegmentDist2(p, q, a, b))
	d = math.Min(d, segmentSegmentDist2(p, q, b, c))
	d = math.Min(d, segmentSegmentDist2(p, q, c, a))
	return d
}
