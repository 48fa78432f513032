package kernel

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

// --- Compile-time interface check with a stub kernel ---

// stubSolid is a minimal Solid implementation for testing.
type stubSolid struct {
	minBB, maxBB v3.Vec
}

func (s *stubSolid) BoundingBox() (min, max v3.Vec) {
	return s.minBB, s.maxBB
}

// stubKernel is a minimal Kernel implementation that proves the interface
// is satisfiable. Soups are a single triangle spanning the bounding box.
type stubKernel struct{}

func (k *stubKernel) Box(x, y, z float64) Solid {
	return &stubSolid{maxBB: v3.Vec{X: x, Y: y, Z: z}}
}

func (k *stubKernel) Sphere(r float64) Solid {
	return &stubSolid{minBB: v3.Vec{X: -r, Y: -r, Z: -r}, maxBB: v3.Vec{X: r, Y: r, Z: r}}
}

func (k *stubKernel) Cylinder(height, radius float64) Solid {
	return &stubSolid{
		minBB: v3.Vec{X: -radius, Y: -radius},
		maxBB: v3.Vec{X: radius, Y: radius, Z: height},
	}
}

func (k *stubKernel) Union(a, _ Solid) Solid                   { return a }
func (k *stubKernel) Difference(a, _ Solid) Solid              { return a }
func (k *stubKernel) Translate(s Solid, _, _, _ float64) Solid { return s }

func (k *stubKernel) ToSoup(s Solid) ([]Triangle, error) {
	min, max := s.BoundingBox()
	return []Triangle{{min, v3.Vec{X: max.X, Y: min.Y, Z: min.Z}, max}}, nil
}

var _ Solid = (*stubSolid)(nil)
var _ Kernel = (*stubKernel)(nil)

func TestStubKernelBoxBoundingBox(t *testing.T) {
	var k Kernel = &stubKernel{}
	s := k.Box(10, 20, 30)
	min, max := s.BoundingBox()
	if min != (v3.Vec{}) {
		t.Errorf("Box min = %v, want origin", min)
	}
	if max != (v3.Vec{X: 10, Y: 20, Z: 30}) {
		t.Errorf("Box max = %v, want (10,20,30)", max)
	}
}

func TestMeshFromSoupRoundTrip(t *testing.T) {
	var k Kernel = &stubKernel{}
	soup, err := k.ToSoup(k.Box(1, 2, 3))
	if err != nil {
		t.Fatalf("ToSoup() error = %v", err)
	}
	m := MeshFromSoup(soup)
	if m.TriangleCount() != 1 || m.VertexCount() != 3 {
		t.Fatalf("got %d triangles / %d vertices, want 1 / 3", m.TriangleCount(), m.VertexCount())
	}
	back := m.Triangles()
	if back[0] != soup[0] {
		t.Errorf("Triangles() = %v, want %v", back[0], soup[0])
	}
}

// --- Triangle helpers ---

func TestTriangleNormalAndArea(t *testing.T) {
	tri := Triangle{{}, {X: 2}, {Y: 2}}
	if n := tri.Normal(); n != (v3.Vec{Z: 1}) {
		t.Errorf("Normal() = %v, want (0,0,1)", n)
	}
	if a := tri.Area(); a != 2 {
		t.Errorf("Area() = %v, want 2", a)
	}
	c := tri.Centroid()
	if math.Abs(c.X-2.0/3.0) > 1e-12 || math.Abs(c.Y-2.0/3.0) > 1e-12 || c.Z != 0 {
		t.Errorf("Centroid() = %v", c)
	}

	flat := Triangle{{}, {X: 1}, {X: 2}}
	if n := flat.Normal(); n != (v3.Vec{}) {
		t.Errorf("degenerate Normal() = %v, want zero", n)
	}
}

func TestSoupBounds(t *testing.T) {
	soup := []Triangle{
		{{X: -1}, {Y: 2}, {Z: 3}},
		{{X: 4}, {Y: -5}, {Z: -6}},
	}
	min, max := SoupBounds(soup)
	if min != (v3.Vec{X: -1, Y: -5, Z: -6}) {
		t.Errorf("min = %v", min)
	}
	if max != (v3.Vec{X: 4, Y: 2, Z: 3}) {
		t.Errorf("max = %v", max)
	}
}

// --- Analytic surfaces ---

func TestCylinderDerivativesAreTangent(t *testing.T) {
	c := Cylinder{Radius: 2}
	for _, u := range []float64{0, 0.7, 2.1, 4} {
		p := c.Value(u, 1)
		du := c.D1U(u, 1)
		// The radial direction is orthogonal to the u derivative.
		radial := v3.Vec{X: p.X, Y: p.Y}
		if d := radial.Dot(du); math.Abs(d) > 1e-12 {
			t.Errorf("u=%v: radial·d1U = %v, want 0", u, d)
		}
		if l := du.Length(); math.Abs(l-2) > 1e-12 {
			t.Errorf("u=%v: |d1U| = %v, want 2", u, l)
		}
	}
	if k := c.MaxCurvature(0, 0); k != 0.5 {
		t.Errorf("MaxCurvature = %v, want 0.5", k)
	}
	if k := (Cylinder{}).MaxCurvature(0, 0); !math.IsNaN(k) {
		t.Errorf("zero-radius MaxCurvature = %v, want NaN", k)
	}
}

func TestSphereValueOnSphere(t *testing.T) {
	s := Sphere{Radius: 3}
	for _, uv := range [][2]float64{{0, 0}, {1, 0.5}, {2.5, -1.2}} {
		if r := s.Value(uv[0], uv[1]).Length(); math.Abs(r-3) > 1e-12 {
			t.Errorf("|Value(%v)| = %v, want 3", uv, r)
		}
	}
}

// recordingKernel wraps stubKernel and counts the operations a shape uses.
type recordingKernel struct {
	stubKernel
	calls map[string]int
}

func (k *recordingKernel) Box(x, y, z float64) Solid {
	k.calls["box"]++
	return k.stubKernel.Box(x, y, z)
}

func (k *recordingKernel) Sphere(r float64) Solid {
	k.calls["sphere"]++
	return k.stubKernel.Sphere(r)
}

func (k *recordingKernel) Cylinder(h, r float64) Solid {
	k.calls["cylinder"]++
	return k.stubKernel.Cylinder(h, r)
}

func (k *recordingKernel) Union(a, b Solid) Solid {
	k.calls["union"]++
	return a
}

func (k *recordingKernel) Difference(a, b Solid) Solid {
	k.calls["difference"]++
	return a
}

func (k *recordingKernel) Translate(s Solid, x, y, z float64) Solid {
	k.calls["translate"]++
	return s
}

func TestShape(t *testing.T) {
	tests := []struct {
		name string
		want map[string]int
	}{
		{"sphere", map[string]int{"sphere": 1}},
		{"box", map[string]int{"box": 1, "translate": 1}},
		{"drilled", map[string]int{"box": 1, "translate": 1, "cylinder": 1, "difference": 1}},
		{"capsule", map[string]int{"cylinder": 1, "sphere": 2, "translate": 2, "union": 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := &recordingKernel{calls: map[string]int{}}
			s, err := Shape(k, tt.name, 4)
			if err != nil {
				t.Fatalf("Shape: %v", err)
			}
			if s == nil {
				t.Fatal("nil solid")
			}
			for op, n := range tt.want {
				if k.calls[op] != n {
					t.Errorf("%s called %d times, want %d", op, k.calls[op], n)
				}
			}
		})
	}
	if len(ShapeNames()) != len(tests) {
		t.Errorf("ShapeNames = %v", ShapeNames())
	}
}

func TestShapeErrors(t *testing.T) {
	k := &stubKernel{}
	if _, err := Shape(k, "torus", 1); err == nil {
		t.Error("expected an error for an unknown shape")
	}
	if _, err := Shape(k, "box", 0); err == nil {
		t.Error("expected an error for a zero size")
	}
}
