package decimate

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/tessera/pkg/kernel"
	"github.com/chazu/tessera/pkg/mesh"
	"github.com/chazu/tessera/pkg/oemm"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func gridSoup(n int, z func(x, y float64) float64) [][3]v3.Vec {
	p := func(i, j int) v3.Vec {
		x, y := float64(i)/float64(n), float64(j)/float64(n)
		return v3.Vec{X: x, Y: y, Z: z(x, y)}
	}
	var out [][3]v3.Vec
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out = append(out,
				[3]v3.Vec{p(i, j), p(i+1, j), p(i+1, j+1)},
				[3]v3.Vec{p(i, j), p(i+1, j+1), p(i, j+1)})
		}
	}
	return out
}

func flat(x, y float64) float64  { return 0 }
func bumpy(x, y float64) float64 { return 0.2 * math.Sin(4*x) * math.Cos(3*y) }

// sphereSoup subdivides an octahedron and projects it on the unit sphere.
func sphereSoup(levels int) [][3]v3.Vec {
	px, nx := v3.Vec{X: 1}, v3.Vec{X: -1}
	py, ny := v3.Vec{Y: 1}, v3.Vec{Y: -1}
	pz, nz := v3.Vec{Z: 1}, v3.Vec{Z: -1}
	tris := [][3]v3.Vec{
		{px, py, pz}, {py, nx, pz}, {nx, ny, pz}, {ny, px, pz},
		{py, px, nz}, {nx, py, nz}, {ny, nx, nz}, {px, ny, nz},
	}
	for l := 0; l < levels; l++ {
		var next [][3]v3.Vec
		mid := func(a, b v3.Vec) v3.Vec { return a.Add(b).Normalize() }
		for _, t := range tris {
			ab, bc, ca := mid(t[0], t[1]), mid(t[1], t[2]), mid(t[2], t[0])
			next = append(next,
				[3]v3.Vec{t[0], ab, ca}, [3]v3.Vec{ab, t[1], bc},
				[3]v3.Vec{ca, bc, t[2]}, [3]v3.Vec{ab, bc, ca})
		}
		tris = next
	}
	return tris
}

func build(t *testing.T, soup [][3]v3.Vec) *mesh.Mesh {
	t.Helper()
	verts, idx := mesh.WeldSoup(soup)
	m, err := mesh.FromTriangles(verts, idx, nil)
	if err != nil {
		t.Fatalf("FromTriangles: %v", err)
	}
	return m
}

func TestMeshDecimatesPlane(t *testing.T) {
	m := build(t, gridSoup(10, flat))
	var border []v3.Vec
	original := make(map[v3.Vec]bool)
	for _, v := range m.Vertices() {
		original[v.Pos] = true
		if mesh.IsBoundaryVertex(v) {
			border = append(border, v.Pos)
		}
	}

	res, err := Mesh(m, 100)
	if err != nil {
		t.Fatalf("Mesh: %v", err)
	}
	if res.Before != 200 || res.After != m.TriangleCount() {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.After > 110 || res.Collapses == 0 {
		t.Errorf("expected about 100 triangles, got %d after %d collapses", res.After, res.Collapses)
	}
	if res.MaxError > 1e-12 {
		t.Errorf("planar collapses should be free, max error %g", res.MaxError)
	}
	if err := m.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}

	remaining := make(map[v3.Vec]bool)
	for _, v := range m.Vertices() {
		if !original[v.Pos] {
			t.Fatalf("vertex %v was not in the input", v.Pos)
		}
		remaining[v.Pos] = true
	}
	for _, p := range border {
		if !remaining[p] {
			t.Errorf("border vertex %v was removed", p)
		}
	}
	for _, tr := range m.Triangles() {
		n, area := normal(tr.V[0].Pos, tr.V[1].Pos, tr.V[2].Pos)
		if area == 0 || n.Z < 0.99 {
			t.Fatalf("triangle turned over or degenerate: normal %v area %g", n, area)
		}
	}
	var area float64
	for _, tr := range m.Triangles() {
		_, a := normal(tr.V[0].Pos, tr.V[1].Pos, tr.V[2].Pos)
		area += a
	}
	if math.Abs(area-1) > 1e-9 {
		t.Errorf("area changed to %g", area)
	}
}

func TestMeshDecimatesClosedSurface(t *testing.T) {
	m := build(t, sphereSoup(3))
	before := m.TriangleCount()
	res, err := Mesh(m, before/4)
	if err != nil {
		t.Fatalf("Mesh: %v", err)
	}
	if res.After >= before/2 {
		t.Errorf("expected a large reduction, %d -> %d", before, res.After)
	}
	if err := m.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
	// Euler characteristic of a sphere: V - E + F = 2 with E = 3F/2.
	if v, f := m.VertexCount(), m.TriangleCount(); 2*v-f != 4 {
		t.Errorf("V=%d F=%d is not a sphere", v, f)
	}
	for _, v := range m.Vertices() {
		if mesh.IsBoundaryVertex(v) {
			t.Fatalf("decimation opened the surface at %v", v.Pos)
		}
	}
}

func TestMeshCostOrder(t *testing.T) {
	m := build(t, gridSoup(8, bumpy))
	res, err := Mesh(m, 0)
	if err != nil {
		t.Fatalf("Mesh: %v", err)
	}
	if res.Collapses == 0 || res.MaxError <= 0 {
		t.Errorf("expected costly collapses on a curved surface, got %+v", res)
	}
	if err := m.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestQuadricEval(t *testing.T) {
	q := planeQuadric(v3.Vec{Z: 1}, v3.Vec{Z: 2}, 1)
	q.add(planeQuadric(v3.Vec{X: 1}, v3.Vec{}, 2))
	if got := q.eval(v3.Vec{X: 1, Z: 5}); math.Abs(got-11) > 1e-12 {
		t.Errorf("eval = %g, want 11", got)
	}
}

func buildOEMM(t *testing.T) *oemm.OEMM {
	t.Helper()
	var soup oemm.SliceSource
	for _, tr := range gridSoup(24, bumpy) {
		soup = append(soup, kernel.Triangle(tr))
	}
	opts := oemm.Options{Dir: t.TempDir(), MaxDepth: 3, LeafThreshold: 300, BufferSize: 4096}
	o, err := oemm.Build(soup, opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if o.LeafCount() < 4 {
		t.Fatalf("expected at least 4 leaves, got %d", o.LeafCount())
	}
	return o
}

func leafBytes(t *testing.T, o *oemm.OEMM) [][]byte {
	t.Helper()
	out := make([][]byte, o.LeafCount())
	for id := range out {
		n, _ := o.Leaf(id)
		data, err := os.ReadFile(filepath.Join(o.Dir, n.File))
		if err != nil {
			t.Fatalf("read leaf %d: %v", id, err)
		}
		out[id] = data
	}
	return out
}

func TestRunSelectedLeaves(t *testing.T) {
	o := buildOEMM(t)
	before := leafBytes(t, o)
	total := o.TriangleCount()

	sel := []int{0, 2}
	rep, err := Run(context.Background(), o, Options{Ratio: 0.5, GroupTriangles: 10000, Workers: 2, Leaves: sel})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Before != total || rep.After >= total {
		t.Errorf("expected fewer triangles, %d -> %d", rep.Before, rep.After)
	}
	after := leafBytes(t, o)
	for id := range before {
		changed := !bytes.Equal(before[id], after[id])
		if selected := id == 0 || id == 2; changed != selected {
			t.Errorf("leaf %d: changed=%v, selected=%v", id, changed, selected)
		}
	}

	r, err := oemm.ReadStructure(o.Dir)
	if err != nil {
		t.Fatalf("ReadStructure: %v", err)
	}
	if r.TriangleCount() != rep.After || r.Root().TriangleCount != rep.After {
		t.Errorf("saved counts %d/%d, report %d", r.TriangleCount(), r.Root().TriangleCount, rep.After)
	}
	for id := range after {
		tris, err := oemm.ReadLeaf(r, id)
		if err != nil {
			t.Fatalf("ReadLeaf: %v", err)
		}
		n, _ := r.Leaf(id)
		if len(tris) != n.TriangleCount {
			t.Errorf("leaf %d: file holds %d triangles, structure says %d", id, len(tris), n.TriangleCount)
		}
	}
}

func TestRunAllGroupsInParallel(t *testing.T) {
	o := buildOEMM(t)
	total := o.TriangleCount()
	rep, err := Run(context.Background(), o, Options{Ratio: 0.3, GroupTriangles: 400, Workers: 4})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Groups) < 2 {
		t.Errorf("expected several groups, got %d", len(rep.Groups))
	}
	if rep.After >= total*3/4 {
		t.Errorf("expected a reduction, %d -> %d", total, rep.After)
	}
	seen := make(map[int]bool)
	for _, g := range rep.Groups {
		for _, id := range g.Leaves {
			if seen[id] {
				t.Fatalf("leaf %d in two groups", id)
			}
			seen[id] = true
		}
	}
}

func TestRunSkipsSmallGroups(t *testing.T) {
	o := buildOEMM(t)
	before := leafBytes(t, o)
	rep, err := Run(context.Background(), o, Options{Ratio: 0.5, GroupTriangles: 400, MinTriangles: 1 << 20, Workers: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Groups) != 0 || rep.Skipped == 0 || rep.After != rep.Before {
		t.Errorf("expected every group skipped, got %+v", rep)
	}
	after := leafBytes(t, o)
	for id := range before {
		if !bytes.Equal(before[id], after[id]) {
			t.Errorf("leaf %d changed", id)
		}
	}
}

func TestRunCanceled(t *testing.T) {
	o := buildOEMM(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, o, Options{Ratio: 0.5, GroupTriangles: 400, Workers: 1}); err == nil {
		t.Error("expected an error from a canceled context")
	}
}

func TestRunFailureKeepsStructureConsistent(t *testing.T) {
	o := buildOEMM(t)
	groups := o.LeafGroups(400)
	if len(groups) < 2 {
		t.Fatalf("expected at least 2 groups, got %d", len(groups))
	}
	last := groups[len(groups)-1]
	missing, _ := o.Leaf(last[0])
	if err := os.Remove(filepath.Join(o.Dir, missing.File)); err != nil {
		t.Fatal(err)
	}

	rep, err := Run(context.Background(), o, Options{Ratio: 0.5, GroupTriangles: 400, Workers: 1})
	if err == nil {
		t.Fatal("expected an error for a missing leaf file")
	}
	if rep == nil || len(rep.Groups) == 0 {
		t.Fatalf("expected earlier groups to complete, got %+v", rep)
	}

	r, err := oemm.ReadStructure(o.Dir)
	if err != nil {
		t.Fatalf("ReadStructure: %v", err)
	}
	for id := 0; id < r.LeafCount(); id++ {
		if id == last[0] {
			continue
		}
		tris, err := oemm.ReadLeaf(r, id)
		if err != nil {
			t.Fatalf("ReadLeaf %d: %v", id, err)
		}
		n, _ := r.Leaf(id)
		if len(tris) != n.TriangleCount {
			t.Errorf("leaf %d: file holds %d triangles, structure says %d", id, len(tris), n.TriangleCount)
		}
	}
}

func TestRunValidatesOptions(t *testing.T) {
	o := buildOEMM(t)
	for _, opts := range []Options{
		{Ratio: 0, GroupTriangles: 10},
		{Ratio: 1.5, GroupTriangles: 10},
		{Ratio: 0.5},
	} {
		if _, err := Run(context.Background(), o, opts); err == nil {
			t.Errorf("expected an error for %+v", opts)
		}
	}
}
