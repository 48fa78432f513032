package metric

import (
	"math"
	"testing"

	"github.com/chazu/tessera/pkg/kernel"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestEuclidean(t *testing.T) {
	if Euclidean.Det() != 1 {
		t.Fatalf("det = %g, want 1", Euclidean.Det())
	}
	if !Euclidean.IsPseudoIsotropic() {
		t.Fatal("identity should be isotropic")
	}
	if d := Euclidean.Distance(0, 0, 3, 4); !near(d, 5) {
		t.Fatalf("distance = %g, want 5", d)
	}
	if d := Euclidean.Dot(1, 2, 3, 4); !near(d, 11) {
		t.Fatalf("dot = %g, want 11", d)
	}
}

func TestOrthogonalVector(t *testing.T) {
	tests := []Matrix2{
		{E: 1, G: 1},
		{E: 4, F: 1, G: 2},
		{E: 100, F: -3, G: 0.5},
	}
	for _, m := range tests {
		x, y := 0.3, -1.7
		ox, oy := m.OrthogonalVector(x, y)
		if d := m.Dot(x, y, ox, oy); math.Abs(d) > 1e-9 {
			t.Errorf("%+v: dot with orthogonal = %g", m, d)
		}
		// Same side as the Euclidean left normal.
		if x*oy-y*ox <= 0 {
			t.Errorf("%+v: orthogonal vector points right", m)
		}
	}
}

func TestEigenvaluesAndIsotropy(t *testing.T) {
	tests := []struct {
		name   string
		m      Matrix2
		lo, hi float64
		iso    bool
	}{
		{"identity", Matrix2{E: 1, G: 1}, 1, 1, true},
		{"scaled", Isotropic(0.5), 4, 4, true},
		{"nearly", Matrix2{E: 1, G: 1.005}, 1, 1.005, true},
		{"stretched", Matrix2{E: 9, G: 1}, 1, 9, false},
		{"rotated", Matrix2{E: 2, F: 1, G: 2}, 1, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := tt.m.Eigenvalues()
			if !near(lo, tt.lo) || !near(hi, tt.hi) {
				t.Fatalf("eigenvalues = %g, %g; want %g, %g", lo, hi, tt.lo, tt.hi)
			}
			if !near(tt.m.MinEigenvalue(), tt.lo) {
				t.Fatalf("min eigenvalue = %g", tt.m.MinEigenvalue())
			}
			if tt.m.IsPseudoIsotropic() != tt.iso {
				t.Fatalf("IsPseudoIsotropic = %v, want %v", !tt.iso, tt.iso)
			}
		})
	}
}

func TestCoefficients(t *testing.T) {
	m := Matrix2{E: 3, F: 0.5, G: 2}
	if got := Coefficients(m); got != m {
		t.Fatalf("coefficients = %+v", got)
	}
	if got := Coefficients(Euclidean); got != (Matrix2{E: 1, G: 1}) {
		t.Fatalf("euclidean coefficients = %+v", got)
	}
	if got := m.Scale(2); got != (Matrix2{E: 6, F: 1, G: 4}) {
		t.Fatalf("scaled = %+v", got)
	}
}

func TestFromSurfacePlane(t *testing.T) {
	m := FromSurface(kernel.XYPlane(), 0, 0, 0.5, 0.01)
	want := Isotropic(0.5)
	if !near(m.E, want.E) || !near(m.F, 0) || !near(m.G, want.G) {
		t.Fatalf("flat metric = %+v, want %+v", m, want)
	}
}

func TestFromSurfaceCylinder(t *testing.T) {
	c := kernel.Cylinder{Radius: 2}
	m := FromSurface(c, 0, 0, 1, 0.01)
	// Around the axis the deflection term 1/(8·0.01·2) dominates; along
	// the rulings only the size term applies.
	if !near(m.E, 25) || !near(m.F, 0) || !near(m.G, 1) {
		t.Fatalf("cylinder metric = %+v", m)
	}
	if m.IsPseudoIsotropic() {
		t.Fatal("cylinder metric should be anisotropic")
	}

	flat := FromSurface(c, 0, 0, 1, 0)
	if !near(flat.E, 4) || !near(flat.G, 1) {
		t.Fatalf("without deflection = %+v, want first fundamental form", flat)
	}
}

func TestFromSurfaceUndefinedCurvature(t *testing.T) {
	m := FromSurface(kernel.Cylinder{}, 0, 0, 1, 0.1)
	if math.IsNaN(m.E) || math.IsNaN(m.G) {
		t.Fatalf("NaN curvature leaked into metric: %+v", m)
	}
}
