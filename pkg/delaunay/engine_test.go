package delaunay

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/chazu/tessera/pkg/kernel"
	"github.com/chazu/tessera/pkg/mesh"
	"github.com/chazu/tessera/pkg/metric"
)

func newEngine(t *testing.T, opts Options, pts ...[2]float64) (*Engine, []*mesh.Vertex) {
	t.Helper()
	e := New(mesh.New2D(-1, -1, 11, 11), opts)
	vs := make([]*mesh.Vertex, len(pts))
	for i, p := range pts {
		vs[i] = e.NewVertex(p[0], p[1])
	}
	if len(vs) >= 3 {
		if err := e.Bootstrap(vs[0], vs[1], vs[2]); err != nil {
			t.Fatalf("bootstrap: %v", err)
		}
	}
	for _, v := range vs[3:] {
		if _, err := e.Insert(v, true); err != nil {
			t.Fatalf("insert %v: %v", v, err)
		}
	}
	return e, vs
}

func checkMesh(t *testing.T, e *Engine) {
	t.Helper()
	if err := e.Mesh().CheckInvariants(); err != nil {
		t.Fatal(err)
	}
}

func TestBootstrapAndInsertInterior(t *testing.T) {
	e, _ := newEngine(t, Options{}, [2]float64{0, 0}, [2]float64{4, 0}, [2]float64{2, 3})
	m := e.Mesh()
	if m.TriangleCount() != 4 || m.InnerTriangleCount() != 1 {
		t.Fatalf("bootstrap: %d triangles, %d inner; want 4, 1", m.TriangleCount(), m.InnerTriangleCount())
	}
	checkMesh(t, e)

	kept, err := e.Insert(e.NewVertex(2, 1), true)
	if err != nil {
		t.Fatal(err)
	}
	if !kept {
		t.Fatal("forced insertion was rejected")
	}
	if got := m.InnerTriangleCount(); got != 3 {
		t.Fatalf("inner triangles = %d, want 3", got)
	}
	if e.Stats().Rejected != 0 {
		t.Fatalf("rejected = %d, want 0", e.Stats().Rejected)
	}
	checkMesh(t, e)
}

func TestInsertWithoutImprovementIsRolledBack(t *testing.T) {
	e, _ := newEngine(t, Options{}, [2]float64{0, 0}, [2]float64{4, 0}, [2]float64{2, 3})
	m := e.Mesh()
	kept, err := e.Insert(e.NewVertex(2, 1), false)
	if err != nil {
		t.Fatal(err)
	}
	if kept {
		t.Fatal("insertion without flips should be rolled back")
	}
	if m.InnerTriangleCount() != 1 || m.VertexCount() != 3 || m.QuadTree().Count() != 3 {
		t.Fatalf("after rollback: %d inner, %d vertices, quadtree %d",
			m.InnerTriangleCount(), m.VertexCount(), m.QuadTree().Count())
	}
	if e.Stats().Rejected != 1 {
		t.Fatalf("rejected = %d, want 1", e.Stats().Rejected)
	}
	checkMesh(t, e)
}

func TestBootstrapOrientation(t *testing.T) {
	e, vs := newEngine(t, Options{}, [2]float64{0, 0}, [2]float64{2, 3}, [2]float64{4, 0})
	checkMesh(t, e)
	if _, ok := mesh.FindEdge(vs[0], vs[2]); !ok {
		t.Fatal("clockwise input should be reoriented")
	}

	a := New(mesh.New2D(0, 0, 10, 10), Options{})
	err := a.Bootstrap(a.NewVertex(0, 0), a.NewVertex(1, 1), a.NewVertex(2, 2))
	if !errors.Is(err, ErrInitialTriangulation) || !errors.Is(err, mesh.ErrDegenerate) {
		t.Fatalf("aligned bootstrap: got %v", err)
	}
}

func TestLocate(t *testing.T) {
	e, _ := newEngine(t, Options{}, [2]float64{0, 0}, [2]float64{4, 0}, [2]float64{2, 3})
	tests := []struct {
		u, v float64
		want Location
	}{
		{2, 1, Inside},
		{2, 0, OnEdge},
		{4, 0, OnVertex},
		{2, -0.5, Outside},
		{8, 8, Outside},
	}
	for _, tt := range tests {
		_, loc, err := e.Locate(e.NewVertex(tt.u, tt.v))
		if err != nil {
			t.Fatal(err)
		}
		if loc != tt.want {
			t.Errorf("Locate(%g,%g) = %v, want %v", tt.u, tt.v, loc, tt.want)
		}
	}
}

func TestInsertOnEdgeAndOutside(t *testing.T) {
	e, _ := newEngine(t, Options{}, [2]float64{0, 0}, [2]float64{4, 0}, [2]float64{2, 3})
	m := e.Mesh()
	if _, err := e.Insert(e.NewVertex(2, 0), true); err != nil {
		t.Fatal(err)
	}
	if m.InnerTriangleCount() != 2 {
		t.Fatalf("after hull edge split: %d inner, want 2", m.InnerTriangleCount())
	}
	checkMesh(t, e)

	if _, err := e.Insert(e.NewVertex(2, -2), true); err != nil {
		t.Fatal(err)
	}
	checkMesh(t, e)
	if m.InnerTriangleCount() != 4 {
		t.Fatalf("after outside insertion: %d inner, want 4", m.InnerTriangleCount())
	}

	kept, err := e.Insert(e.NewVertex(2, 3), true)
	if err != nil || kept {
		t.Fatalf("duplicate: kept=%v err=%v", kept, err)
	}
}

// delaunayViolations counts inner edges whose opposite vertex lies inside
// the circumcircle of the adjacent triangle.
func delaunayViolations(m *mesh.Mesh) int {
	bad := 0
	for _, tr := range m.Triangles() {
		if tr.IsOuter() {
			continue
		}
		for l := 0; l < 3; l++ {
			h := tr.Edge(l)
			s := h.Sym()
			if s.IsNil() || s.T.IsOuter() || h.HasAttr(mesh.AttrBoundary) {
				continue
			}
			if mesh.InCircle(h.Apex(), h.Origin(), h.Destination(), s.Apex()) > 0 {
				bad++
			}
		}
	}
	return bad
}

func TestRandomInsertionKeepsInvariants(t *testing.T) {
	e, _ := newEngine(t, Options{}, [2]float64{0, 0}, [2]float64{10, 0}, [2]float64{0, 10})
	m := e.Mesh()
	rng := rand.New(rand.NewSource(42))
	const n = 300
	for i := 0; i < n; i++ {
		v := e.NewVertex(10*rng.Float64(), 10*rng.Float64())
		if _, err := e.Insert(v, true); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		if i%50 == 0 {
			checkMesh(t, e)
		}
	}
	checkMesh(t, e)
	if m.QuadTree().Count() != m.VertexCount() {
		t.Fatalf("quadtree %d, mesh %d", m.QuadTree().Count(), m.VertexCount())
	}
	if got := e.Stats().Inserted + e.Stats().Rejected; got != n {
		t.Fatalf("inserted+rejected = %d, want %d", got, n)
	}
	if bad := delaunayViolations(m); bad != 0 {
		t.Fatalf("%d edges violate the empty circle property", bad)
	}
	for _, tr := range m.Triangles() {
		if !tr.IsOuter() && mesh.Orient(tr.V[0], tr.V[1], tr.V[2]) <= 0 {
			t.Fatal("inner triangle is not counter-clockwise")
		}
		for l := 0; l < 3; l++ {
			h := tr.Edge(l)
			if s := h.Sym(); s.IsNil() || s.Sym() != h {
				t.Fatal("sym(sym(e)) != e")
			}
		}
	}
}

func TestAnisotropicInsertionKeepsInvariants(t *testing.T) {
	opts := Options{Surface: kernel.Cylinder{Radius: 0.2}, Length: 0.5, Deflection: 0.001}
	e, _ := newEngine(t, opts, [2]float64{0, 0}, [2]float64{6, 0}, [2]float64{0, 6})
	if e.Mesh().MetricAt(e.NewVertex(1, 1)).IsPseudoIsotropic() {
		t.Fatal("cylinder metric should be anisotropic")
	}
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		if _, err := e.Insert(e.NewVertex(6*rng.Float64(), 6*rng.Float64()), true); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	checkMesh(t, e)
}

func TestAnisotropicInCircle(t *testing.T) {
	vx := func(u, v float64) *mesh.Vertex { return &mesh.Vertex{UV: [2]float64{u, v}} }
	m := metric.Matrix2{E: 4, G: 1}
	p1, p2, p3 := vx(0, 0), vx(1, 0), vx(0, 1)
	tests := []struct {
		name   string
		q      *mesh.Vertex
		inside bool
	}{
		{"inside", vx(0.4, 0.4), true},
		{"outside", vx(1.1, 1.1), false},
		{"stretched out", vx(1.2, 0.2), false},
	}
	for _, tt := range tests {
		inside, ok := anisotropicInCircle(p1, p2, p3, tt.q, m, m)
		if !ok {
			t.Fatalf("%s: circumcenter failed", tt.name)
		}
		if inside != tt.inside {
			t.Errorf("%s: inside = %v, want %v", tt.name, inside, tt.inside)
		}
	}
	if _, ok := anisotropicInCircle(p1, p2, vx(2, 0), vx(1, 1), m, m); ok {
		t.Fatal("aligned triangle should fail")
	}
}

func TestForceBoundaryEdgeExisting(t *testing.T) {
	e, vs := newEngine(t, Options{}, [2]float64{0, 0}, [2]float64{4, 0}, [2]float64{2, 3})
	h, n, err := e.ForceBoundaryEdge(vs[0], vs[1], 10)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("intersections = %d, want 0", n)
	}
	if h.Origin() != vs[0] || h.Destination() != vs[1] {
		t.Fatalf("edge %v-%v, want %v-%v", h.Origin(), h.Destination(), vs[0], vs[1])
	}
	if !h.HasAttr(mesh.AttrBoundary) {
		t.Fatal("forced edge should be a boundary")
	}
}

func crossedSquare(t *testing.T) (*Engine, []*mesh.Vertex) {
	return newEngine(t, Options{},
		[2]float64{0, 0}, [2]float64{10, 0}, [2]float64{10, 10}, [2]float64{0, 10},
		[2]float64{5, 4}, [2]float64{5, 6}, [2]float64{3, 2.5}, [2]float64{7, 7.5})
}

func TestForceBoundaryEdgeRecovers(t *testing.T) {
	e, vs := crossedSquare(t)
	if _, ok := mesh.FindEdge(vs[0], vs[2]); ok {
		t.Fatal("fixture already contains the diagonal")
	}
	h, n, err := e.ForceBoundaryEdge(vs[0], vs[2], 100)
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Fatal("expected crossed edges")
	}
	if h.Origin() != vs[0] || h.Destination() != vs[2] || !h.HasAttr(mesh.AttrBoundary) {
		t.Fatalf("recovered edge %v-%v", h.Origin(), h.Destination())
	}
	if e.Stats().BoundaryFlips == 0 {
		t.Fatal("recovery should flip edges")
	}
	checkMesh(t, e)

	// A recovered boundary is never flipped by later insertions.
	if _, err := e.Insert(e.NewVertex(6, 5.5), true); err != nil {
		t.Fatal(err)
	}
	if _, ok := mesh.FindEdge(vs[0], vs[2]); !ok {
		t.Fatal("boundary edge lost after insertion")
	}
	checkMesh(t, e)
}

func TestForceBoundaryEdgeFailures(t *testing.T) {
	t.Run("budget", func(t *testing.T) {
		e, vs := crossedSquare(t)
		_, _, err := e.ForceBoundaryEdge(vs[0], vs[2], 0)
		if !errors.Is(err, ErrInitialTriangulation) {
			t.Fatalf("got %v, want ErrInitialTriangulation", err)
		}
	})
	t.Run("vertex on segment", func(t *testing.T) {
		e, vs := newEngine(t, Options{},
			[2]float64{0, 0}, [2]float64{10, 0}, [2]float64{10, 10}, [2]float64{0, 10}, [2]float64{5, 5})
		_, _, err := e.ForceBoundaryEdge(vs[0], vs[2], 100)
		if !errors.Is(err, ErrInitialTriangulation) {
			t.Fatalf("got %v, want ErrInitialTriangulation", err)
		}
	})
	t.Run("crossing boundary", func(t *testing.T) {
		e, vs := crossedSquare(t)
		if _, _, err := e.ForceBoundaryEdge(vs[4], vs[5], 100); err != nil {
			t.Fatal(err)
		}
		_, _, err := e.ForceBoundaryEdge(vs[0], vs[2], 100)
		if !errors.Is(err, ErrInitialTriangulation) {
			t.Fatalf("got %v, want ErrInitialTriangulation", err)
		}
	})
	t.Run("same vertex", func(t *testing.T) {
		e, vs := crossedSquare(t)
		if _, _, err := e.ForceBoundaryEdge(vs[0], vs[0], 100); !errors.Is(err, ErrInitialTriangulation) {
			t.Fatalf("got %v", err)
		}
	})
}

// starPolygon returns k vertices of a random star-shaped polygon around
// (5,5), counter-clockwise, followed by scattered points in [0,10]².
func starPolygon(r *rand.Rand, k, scatter int) [][2]float64 {
	angles := make([]float64, k)
	for i := range angles {
		angles[i] = 2 * math.Pi * (float64(i) + 0.8*r.Float64()) / float64(k)
	}
	pts := make([][2]float64, 0, k+scatter)
	for _, a := range angles {
		rad := 1.5 + 3*r.Float64()
		pts = append(pts, [2]float64{5 + rad*math.Cos(a), 5 + rad*math.Sin(a)})
	}
	for i := 0; i < scatter; i++ {
		pts = append(pts, [2]float64{10 * r.Float64(), 10 * r.Float64()})
	}
	return pts
}

func TestForceBoundaryEdgeStarPolygon(t *testing.T) {
	for _, seed := range []int64{1, 2, 3, 4, 5, 6, 7, 8} {
		r := rand.New(rand.NewSource(seed))
		k := 12 + r.Intn(20)
		e, vs := newEngine(t, Options{}, starPolygon(r, k, 3*k)...)
		budget := 8 * len(vs)
		for i := 0; i < k; i++ {
			a, b := vs[i], vs[(i+1)%k]
			h, n, err := e.ForceBoundaryEdge(a, b, budget)
			if err != nil {
				t.Fatalf("seed %d: edge %d: %v", seed, i, err)
			}
			if h.Origin() != a || h.Destination() != b || !h.HasAttr(mesh.AttrBoundary) {
				t.Fatalf("seed %d: edge %d recovered as %v-%v", seed, i, h.Origin(), h.Destination())
			}
			if n > budget {
				t.Fatalf("seed %d: edge %d crossed %d edges, budget %d", seed, i, n, budget)
			}
		}
		if flips := e.Stats().BoundaryFlips; flips > budget*k {
			t.Fatalf("seed %d: %d flips for %d segments", seed, flips, k)
		}
		for i := 0; i < k; i++ {
			if _, ok := mesh.FindEdge(vs[i], vs[(i+1)%k]); !ok {
				t.Fatalf("seed %d: boundary edge %d lost", seed, i)
			}
		}
		checkMesh(t, e)
	}
}

func squareWithHole(t *testing.T) (*Engine, []*mesh.Vertex) {
	t.Helper()
	e, vs := newEngine(t, Options{},
		[2]float64{0, 0}, [2]float64{10, 0}, [2]float64{10, 10}, [2]float64{0, 10},
		[2]float64{4, 4}, [2]float64{6, 4}, [2]float64{6, 6}, [2]float64{4, 6})
	for _, loop := range [][]int{{0, 1, 2, 3}, {4, 7, 6, 5}} {
		for i := range loop {
			a, b := vs[loop[i]], vs[loop[(i+1)%len(loop)]]
			if _, _, err := e.ForceBoundaryEdge(a, b, 1000); err != nil {
				t.Fatalf("boundary %v-%v: %v", a, b, err)
			}
		}
	}
	return e, vs
}

func centroid(tr *mesh.Triangle) (float64, float64) {
	u := (tr.V[0].UV[0] + tr.V[1].UV[0] + tr.V[2].UV[0]) / 3
	v := (tr.V[0].UV[1] + tr.V[1].UV[1] + tr.V[2].UV[1]) / 3
	return u, v
}

func TestClassifyDomainWithHole(t *testing.T) {
	e, _ := squareWithHole(t)
	inner, outer := e.ClassifyDomain()
	if inner == 0 || outer < 6 {
		t.Fatalf("inner=%d outer=%d", inner, outer)
	}
	holes := 0
	for _, tr := range e.Mesh().Triangles() {
		if tr.IsOuter() {
			continue
		}
		u, v := centroid(tr)
		inHole := u > 4 && u < 6 && v > 4 && v < 6
		if inHole {
			holes++
		}
		if inHole != tr.HasAttr(mesh.AttrOuter) {
			t.Fatalf("triangle at (%g,%g): outer=%v", u, v, tr.HasAttr(mesh.AttrOuter))
		}
	}
	if holes != 2 {
		t.Fatalf("hole triangles = %d, want 2", holes)
	}
}

func TestRefineAndExport(t *testing.T) {
	e, _ := squareWithHole(t)
	e.ClassifyDomain()
	before := e.Mesh().InnerTriangleCount()

	n, err := e.Refine(2, 10)
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Fatal("refinement inserted nothing")
	}
	m := e.Mesh()
	if m.InnerTriangleCount() <= before {
		t.Fatalf("inner triangles %d, before %d", m.InnerTriangleCount(), before)
	}
	checkMesh(t, e)
	for _, tr := range m.Triangles() {
		if tr.HasAttr(mesh.AttrOuter) {
			continue
		}
		if u, v := centroid(tr); u > 4 && u < 6 && v > 4 && v < 6 {
			t.Fatal("refinement meshed the hole")
		}
	}

	out := e.Export("square")
	if out.TriangleCount() != m.InnerTriangleCount() {
		t.Fatalf("exported %d triangles, want %d", out.TriangleCount(), m.InnerTriangleCount())
	}
	if out.PartName != "square" || len(out.UVs) != 2*out.VertexCount() || len(out.Normals) != len(out.Vertices) {
		t.Fatalf("inconsistent export: %d vertices, %d uvs, %d normals", out.VertexCount(), len(out.UVs), len(out.Normals))
	}
	for _, i := range out.Indices {
		if int(i) >= out.VertexCount() {
			t.Fatalf("index %d out of range", i)
		}
	}
}
