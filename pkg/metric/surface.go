package metric

import (
	"math"

	"github.com/chazu/tessera/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// FromSurface derives the parametric metric at (u,v) of surface s.
//
// The tangent-plane metric combines an isotropic size constraint 1/length²
// with a chordal deflection constraint 8·deflection/|κ| along each
// principal direction. Both are diagonal in the principal frame, so their
// intersection keeps the larger eigenvalue per axis. The result is pulled
// back to parameter space through the first derivatives of s.
//
// When the curvature is undefined or zero, or deflection is not positive,
// only the isotropic term is used.
func FromSurface(s kernel.Surface, u, v, length, deflection float64) Matrix2 {
	iso := 1 / (length * length)
	du := s.D1U(u, v)
	dv := s.D1V(u, v)

	l1, l2 := iso, iso
	t1, t2 := v3.Vec{}, v3.Vec{}
	useCurvature := deflection > 0
	if useCurvature {
		kmin := s.MinCurvature(u, v)
		kmax := s.MaxCurvature(u, v)
		if math.IsNaN(kmin) || math.IsNaN(kmax) || (kmin == 0 && kmax == 0) {
			useCurvature = false
		} else {
			t1, t2 = s.CurvatureDirections(u, v)
			if t1.Length() == 0 || t2.Length() == 0 {
				useCurvature = false
			} else {
				t1 = t1.Normalize()
				t2 = t2.Normalize()
				l1 = math.Max(iso, curvatureTerm(kmin, deflection))
				l2 = math.Max(iso, curvatureTerm(kmax, deflection))
			}
		}
	}

	if !useCurvature {
		// First fundamental form scaled by the isotropic term.
		return Matrix2{
			E: iso * du.Dot(du),
			F: iso * du.Dot(dv),
			G: iso * dv.Dot(dv),
		}
	}

	a1, b1 := t1.Dot(du), t1.Dot(dv)
	a2, b2 := t2.Dot(du), t2.Dot(dv)
	return Matrix2{
		E: l1*a1*a1 + l2*a2*a2,
		F: l1*a1*b1 + l2*a2*b2,
		G: l1*b1*b1 + l2*b2*b2,
	}
}

// curvatureTerm returns the eigenvalue that bounds the chordal deviation
// by deflection for curvature k (h² = 8·deflection/|k|).
func curvatureTerm(k, deflection float64) float64 {
	k = math.Abs(k)
	if k == 0 {
		return 0
	}
	return k / (8 * deflection)
}
