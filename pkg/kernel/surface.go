package kernel

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Plane is the affine patch Origin + u*U + v*V.
type Plane struct {
	Origin, U, V v3.Vec
}

// XYPlane returns the plane z=0 parameterized by (x,y).
func XYPlane() Plane {
	return Plane{U: v3.Vec{X: 1}, V: v3.Vec{Y: 1}}
}

func (p Plane) Value(u, v float64) v3.Vec {
	return p.Origin.Add(p.U.MulScalar(u)).Add(p.V.MulScalar(v))
}

func (p Plane) D1U(u, v float64) v3.Vec { return p.U }
func (p Plane) D1V(u, v float64) v3.Vec { return p.V }

func (p Plane) MinCurvature(u, v float64) float64 { return 0 }
func (p Plane) MaxCurvature(u, v float64) float64 { return 0 }

func (p Plane) CurvatureDirections(u, v float64) (dmin, dmax v3.Vec) {
	return p.V, p.U
}

// Cylinder is the patch (R cos u, R sin u, v) around the Z axis.
type Cylinder struct {
	Radius float64
}

func (c Cylinder) Value(u, v float64) v3.Vec {
	return v3.Vec{X: c.Radius * math.Cos(u), Y: c.Radius * math.Sin(u), Z: v}
}

func (c Cylinder) D1U(u, v float64) v3.Vec {
	return v3.Vec{X: -c.Radius * math.Sin(u), Y: c.Radius * math.Cos(u)}
}

func (c Cylinder) D1V(u, v float64) v3.Vec { return v3.Vec{Z: 1} }

// MinCurvature is zero along the rulings.
func (c Cylinder) MinCurvature(u, v float64) float64 { return 0 }

// MaxCurvature is 1/R around the axis.
func (c Cylinder) MaxCurvature(u, v float64) float64 {
	if c.Radius == 0 {
		return math.NaN()
	}
	return 1 / c.Radius
}

func (c Cylinder) CurvatureDirections(u, v float64) (dmin, dmax v3.Vec) {
	return v3.Vec{Z: 1}, v3.Vec{X: -math.Sin(u), Y: math.Cos(u)}
}

// Sphere is the latitude/longitude patch with u the longitude and v the
// latitude in (-π/2, π/2). Every direction is principal.
type Sphere struct {
	Radius float64
}

func (s Sphere) Value(u, v float64) v3.Vec {
	cv := math.Cos(v)
	return v3.Vec{X: s.Radius * cv * math.Cos(u), Y: s.Radius * cv * math.Sin(u), Z: s.Radius * math.Sin(v)}
}

func (s Sphere) D1U(u, v float64) v3.Vec {
	cv := math.Cos(v)
	return v3.Vec{X: -s.Radius * cv * math.Sin(u), Y: s.Radius * cv * math.Cos(u)}
}

func (s Sphere) D1V(u, v float64) v3.Vec {
	sv := math.Sin(v)
	return v3.Vec{X: -s.Radius * sv * math.Cos(u), Y: -s.Radius * sv * math.Sin(u), Z: s.Radius * math.Cos(v)}
}

func (s Sphere) MinCurvature(u, v float64) float64 { return 1 / s.Radius }
func (s Sphere) MaxCurvature(u, v float64) float64 { return 1 / s.Radius }

func (s Sphere) CurvatureDirections(u, v float64) (dmin, dmax v3.Vec) {
	return s.D1V(u, v), s.D1U(u, v)
}
