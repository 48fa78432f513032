package tessellate_test

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/tessera/pkg/delaunay"
	"github.com/chazu/tessera/pkg/job"
	"github.com/chazu/tessera/pkg/kernel"
	"github.com/chazu/tessera/pkg/tessellate"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// uvArea sums the parameter-space area of the mesh triangles.
func uvArea(m *kernel.Mesh) float64 {
	var a float64
	for i := 0; i < len(m.Indices); i += 3 {
		p, q, r := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		pu, pv := float64(m.UVs[2*p]), float64(m.UVs[2*p+1])
		qu, qv := float64(m.UVs[2*q]), float64(m.UVs[2*q+1])
		ru, rv := float64(m.UVs[2*r]), float64(m.UVs[2*r+1])
		a += 0.5 * ((qu-pu)*(rv-pv) - (qv-pv)*(ru-pu))
	}
	return a
}

func squareJob(length float64) *job.Job {
	j := job.New("square")
	j.Params.Length = length
	j.AddFace(job.Face{Name: "top", Surface: job.SurfacePlane, Outer: job.Rect(0, 0, 4, 4)})
	return j
}

func TestTessellateSquare(t *testing.T) {
	res, err := tessellate.Tessellate(squareJob(1))
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if len(res.Failed) != 0 {
		t.Fatalf("unexpected failures: %v", res.Failed)
	}
	if len(res.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(res.Meshes))
	}
	m := res.Meshes[0]
	if m.PartName != "top" {
		t.Errorf("expected part name top, got %q", m.PartName)
	}
	if a := uvArea(m); math.Abs(a-16) > 1e-4 {
		t.Errorf("expected area 16, got %g", a)
	}
	// Refinement must have added interior vertices beyond the corners.
	if m.VertexCount() <= 4 {
		t.Errorf("expected refined mesh, got %d vertices", m.VertexCount())
	}
	for i := 0; i < m.VertexCount(); i++ {
		if p := m.Vertex(i); p.X < -1e-6 || p.X > 4+1e-6 || p.Y < -1e-6 || p.Y > 4+1e-6 {
			t.Fatalf("vertex %d outside the face: %v", i, p)
		}
	}
}

func TestTessellateWithoutRefinement(t *testing.T) {
	res, err := tessellate.Tessellate(squareJob(0))
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	m := res.Meshes[0]
	if m.TriangleCount() != 2 || m.VertexCount() != 4 {
		t.Errorf("expected 2 triangles on 4 vertices, got %d on %d", m.TriangleCount(), m.VertexCount())
	}
}

func TestTessellateHole(t *testing.T) {
	j := job.New("plate")
	j.Params.Length = 0.75
	j.AddFace(job.Face{
		Name:    "plate",
		Surface: job.SurfacePlane,
		Outer:   job.Rect(0, 0, 4, 4),
		Holes:   []job.Loop{job.Rect(1, 1, 2, 2)},
	})
	res, err := tessellate.Tessellate(j)
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if len(res.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d (failures %v)", len(res.Meshes), res.Failed)
	}
	if a := uvArea(res.Meshes[0]); math.Abs(a-15) > 1e-4 {
		t.Errorf("expected area 15, got %g", a)
	}
}

func TestTessellateSeedPoints(t *testing.T) {
	j := squareJob(0)
	j.Faces[0].Points = []job.UV{{U: 1, V: 1}, {U: 3, V: 2}, {U: 2, V: 3}}
	res, err := tessellate.Tessellate(j)
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if got := res.Meshes[0].VertexCount(); got != 7 {
		t.Errorf("expected 7 vertices, got %d", got)
	}
}

func TestTessellateRecordsFailure(t *testing.T) {
	j := squareJob(1)
	j.AddFace(job.Face{
		Name:    "flat",
		Surface: job.SurfacePlane,
		Outer:   job.Loop{{U: 0, V: 0}, {U: 1, V: 0}, {U: 2, V: 0}},
	})
	res, err := tessellate.Tessellate(j)
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if len(res.Meshes) != 1 {
		t.Errorf("expected the valid face to be meshed, got %d meshes", len(res.Meshes))
	}
	if len(res.Failed) != 1 || res.Failed[0].Face != "flat" {
		t.Fatalf("expected face flat to fail, got %v", res.Failed)
	}
	if !errors.Is(res.Failed[0].Err, delaunay.ErrInitialTriangulation) {
		t.Errorf("expected ErrInitialTriangulation, got %v", res.Failed[0].Err)
	}
}

func TestTessellateCylinder(t *testing.T) {
	j := job.New("tube")
	j.Params.Length = 0.5
	j.Params.Deflection = 0.05
	j.AddFace(job.Face{
		Name:    "side",
		Surface: job.SurfaceCylinder,
		Radius:  1,
		Outer:   job.Rect(0, 0, math.Pi, 2),
	})
	res, err := tessellate.Tessellate(j)
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if len(res.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d (failures %v)", len(res.Meshes), res.Failed)
	}
	m := res.Meshes[0]
	for i := 0; i < m.VertexCount(); i++ {
		p := m.Vertex(i)
		if r := math.Hypot(p.X, p.Y); math.Abs(r-1) > 1e-5 {
			t.Fatalf("vertex %d off the cylinder: radius %g", i, r)
		}
	}
	for i := 0; i < len(m.Normals); i += 3 {
		n := v3.Vec{X: float64(m.Normals[i]), Y: float64(m.Normals[i+1]), Z: float64(m.Normals[i+2])}
		if math.Abs(n.Length()-1) > 1e-5 || math.Abs(n.Z) > 1e-6 {
			t.Fatalf("bad normal %v", n)
		}
	}
	if a := uvArea(m); math.Abs(a-2*math.Pi) > 1e-4 {
		t.Errorf("expected parameter area 2π, got %g", a)
	}
	if len(res.Stats) != 1 || res.Stats[0].Inserted == 0 {
		t.Errorf("expected insertion stats, got %+v", res.Stats)
	}
}

func TestTessellateNilJob(t *testing.T) {
	res, err := tessellate.Tessellate(nil)
	if err != nil || len(res.Meshes) != 0 {
		t.Fatalf("expected empty result, got %+v, %v", res, err)
	}
}
