// Package kernel defines the geometry collaborators the mesher talks to:
// parametric surfaces evaluated by the 2D mesher, solid modelers that emit
// triangle soups for the out-of-core octree, and the flat mesh used for
// export. Implementations live in sub-packages so the mesher never
// depends on a particular CAD backend.
package kernel

import v3 "github.com/deadsy/sdfx/vec/v3"

// Surface is a parametric patch. The mesher only ever calls these
// methods; it never inspects CAD topology.
type Surface interface {
	// Value returns the 3D position at (u,v).
	Value(u, v float64) v3.Vec
	// D1U and D1V return the first derivatives at (u,v).
	D1U(u, v float64) v3.Vec
	D1V(u, v float64) v3.Vec
	// MinCurvature and MaxCurvature return the principal curvatures.
	// NaN means the curvature is undefined at this location.
	MinCurvature(u, v float64) float64
	MaxCurvature(u, v float64) float64
	// CurvatureDirections returns the 3D principal directions matching
	// MinCurvature and MaxCurvature.
	CurvatureDirections(u, v float64) (dmin, dmax v3.Vec)
}

// Solid is an opaque handle to a geometry kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max v3.Vec)
}

// Kernel builds solids and turns them into triangle soups.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Sphere(radius float64) Solid
	Cylinder(height, radius float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid

	// Soup output
	ToSoup(s Solid) ([]Triangle, error)
}

// Triangle is one record of a triangle soup.
type Triangle [3]v3.Vec

// Normal returns the unit normal, or the zero vector for a degenerate
// triangle.
func (t Triangle) Normal() v3.Vec {
	n := t[1].Sub(t[0]).Cross(t[2].Sub(t[0]))
	l := n.Length()
	if l == 0 {
		return v3.Vec{}
	}
	return n.MulScalar(1 / l)
}

// Area returns the triangle area.
func (t Triangle) Area() float64 {
	return 0.5 * t[1].Sub(t[0]).Cross(t[2].Sub(t[0])).Length()
}

// Centroid returns the barycenter of the three vertices.
func (t Triangle) Centroid() v3.Vec {
	return t[0].Add(t[1]).Add(t[2]).MulScalar(1.0 / 3.0)
}
