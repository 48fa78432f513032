// Package metric defines the 2x2 quadratic forms that drive the notion of
// length used by the mesher in parameter space.
package metric

import "math"

// isotropyTolerance bounds the eigenvalue ratio deviation accepted by
// IsPseudoIsotropic.
const isotropyTolerance = 1e-2

// Metric is a symmetric positive definite quadratic form on the (u,v) plane.
type Metric interface {
	// Dot returns the scalar product of (x0,y0) and (x1,y1).
	Dot(x0, y0, x1, y1 float64) float64
	// OrthogonalVector returns a vector orthogonal to (x,y) for this metric.
	OrthogonalVector(x, y float64) (float64, float64)
	// Det returns the determinant of the form.
	Det() float64
	// IsPseudoIsotropic reports whether the form is a scaled identity up
	// to a small tolerance.
	IsPseudoIsotropic() bool
	// Distance returns the length of the segment (u0,v0)-(u1,v1).
	Distance(u0, v0, u1, v1 float64) float64
	// MinEigenvalue returns the smallest eigenvalue of the form.
	MinEigenvalue() float64
}

// Matrix2 is the symmetric form [[E F] [F G]].
type Matrix2 struct {
	E, F, G float64
}

// Euclidean is the identity metric.
var Euclidean Metric = Matrix2{E: 1, F: 0, G: 1}

// Isotropic returns the metric of a uniform target length h.
func Isotropic(h float64) Matrix2 {
	s := 1 / (h * h)
	return Matrix2{E: s, G: s}
}

// Dot returns the scalar product of (x0,y0) and (x1,y1).
func (m Matrix2) Dot(x0, y0, x1, y1 float64) float64 {
	return m.E*x0*x1 + m.F*(x0*y1+x1*y0) + m.G*y0*y1
}

// OrthogonalVector returns w with Dot(w, (x,y)) == 0 and the same
// orientation as the Euclidean left normal.
func (m Matrix2) OrthogonalVector(x, y float64) (float64, float64) {
	return -(m.F*x + m.G*y), m.E*x + m.F*y
}

// Det returns E*G - F*F.
func (m Matrix2) Det() float64 {
	return m.E*m.G - m.F*m.F
}

// Distance returns the metric length of the segment.
func (m Matrix2) Distance(u0, v0, u1, v1 float64) float64 {
	du, dv := u1-u0, v1-v0
	return math.Sqrt(math.Max(0, m.Dot(du, dv, du, dv)))
}

// Eigenvalues returns the eigenvalues of the form, smallest first.
func (m Matrix2) Eigenvalues() (float64, float64) {
	half := 0.5 * (m.E + m.G)
	d := math.Sqrt(0.25*(m.E-m.G)*(m.E-m.G) + m.F*m.F)
	return half - d, half + d
}

// MinEigenvalue returns the smallest eigenvalue.
func (m Matrix2) MinEigenvalue() float64 {
	l, _ := m.Eigenvalues()
	return l
}

// IsPseudoIsotropic reports whether both eigenvalues are within tolerance.
func (m Matrix2) IsPseudoIsotropic() bool {
	lo, hi := m.Eigenvalues()
	if hi <= 0 {
		return false
	}
	return (hi-lo)/hi < isotropyTolerance
}

// Scale returns the form multiplied by s.
func (m Matrix2) Scale(s float64) Matrix2 {
	return Matrix2{E: m.E * s, F: m.F * s, G: m.G * s}
}

// Coefficients returns the form of any Metric implementation by probing it.
func Coefficients(m Metric) Matrix2 {
	if mm, ok := m.(Matrix2); ok {
		return mm
	}
	return Matrix2{E: m.Dot(1, 0, 1, 0), F: m.Dot(1, 0, 0, 1), G: m.Dot(0, 1, 0, 1)}
}
