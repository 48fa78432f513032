// Package tessellate meshes the faces of a job. Each face is meshed in
// its own parameter space by the Delaunay engine: the loops are inserted,
// their segments recovered as boundary edges, the exterior and holes
// discarded, and the interior refined to the target edge length.
package tessellate

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/tessera/internal/logger"
	"github.com/chazu/tessera/pkg/delaunay"
	"github.com/chazu/tessera/pkg/job"
	"github.com/chazu/tessera/pkg/kernel"
	"github.com/chazu/tessera/pkg/mesh"
	"go.uber.org/zap"
)

// Failure records a face that could not be meshed.
type Failure struct {
	Face string
	Err  error
}

// FaceStats records engine counters for one meshed face.
type FaceStats struct {
	Face string
	delaunay.Stats
}

// Result bundles the meshes of a job and the faces that were skipped.
type Result struct {
	Meshes []*kernel.Mesh
	Failed []Failure
	Stats  []FaceStats
}

// Tessellate meshes every face of j and returns one mesh per face. Faces
// whose triangulation cannot be initialized are recorded in Failed and
// skipped. An internal invariant violation aborts the job.
func Tessellate(j *job.Job) (*Result, error) {
	res := &Result{}
	if j == nil {
		return res, nil
	}
	log := logger.Named("tessellate")
	for i := range j.Faces {
		f := &j.Faces[i]
		m, stats, err := MeshFace(f, j.Params)
		switch {
		case err == nil:
			res.Meshes = append(res.Meshes, m)
			res.Stats = append(res.Stats, FaceStats{Face: f.Name, Stats: stats})
			log.Debug("face meshed",
				zap.String("face", f.Name),
				zap.Int("triangles", m.TriangleCount()),
				zap.Int("flips", stats.Flips))
		case errors.Is(err, delaunay.ErrInitialTriangulation):
			log.Warn("face skipped", zap.String("face", f.Name), zap.Error(err))
			res.Failed = append(res.Failed, Failure{Face: f.Name, Err: err})
		default:
			return nil, fmt.Errorf("tessellate: face %s: %w", f.Name, err)
		}
	}
	return res, nil
}

// MeshFace builds the constrained Delaunay mesh of one face.
func MeshFace(f *job.Face, p job.Params) (*kernel.Mesh, delaunay.Stats, error) {
	surf, err := f.SurfaceImpl()
	if err != nil {
		return nil, delaunay.Stats{}, fmt.Errorf("%w: %v", delaunay.ErrInitialTriangulation, err)
	}
	if len(f.Outer) < 3 {
		return nil, delaunay.Stats{}, fmt.Errorf("%w: outer loop has %d points", delaunay.ErrInitialTriangulation, len(f.Outer))
	}

	umin, vmin, umax, vmax := f.Bounds()
	margin := 0.05 * math.Max(umax-umin, vmax-vmin)
	m := mesh.New2D(umin-margin, vmin-margin, umax+margin, vmax+margin)
	e := delaunay.New(m, delaunay.Options{Surface: surf, Length: p.Length, Deflection: p.Deflection})

	loops := make([][]*mesh.Vertex, 0, 1+len(f.Holes))
	outer := vertices(e, f.Outer)
	if err := bootstrap(e, outer); err != nil {
		return nil, e.Stats(), err
	}
	loops = append(loops, outer)
	for _, h := range f.Holes {
		loops = append(loops, vertices(e, h))
	}
	for _, l := range loops {
		for i, v := range l {
			if v.Alive() {
				continue
			}
			w, err := insertBoundary(e, v)
			if err != nil {
				return nil, e.Stats(), err
			}
			l[i] = w
		}
	}
	for _, uv := range f.Points {
		if _, err := e.Insert(e.NewVertex(uv.U, uv.V), true); err != nil {
			return nil, e.Stats(), err
		}
	}

	for _, l := range loops {
		for i, a := range l {
			b := l[(i+1)%len(l)]
			if a == b {
				continue
			}
			if _, _, err := e.ForceBoundaryEdge(a, b, p.MaxBoundaryIterations); err != nil {
				return nil, e.Stats(), err
			}
		}
	}
	if inner, _ := e.ClassifyDomain(); inner == 0 {
		return nil, e.Stats(), fmt.Errorf("%w: face %s encloses no triangle", delaunay.ErrInitialTriangulation, f.Name)
	}
	if p.Length > 0 && p.RefinePasses > 0 {
		// The engine metric is normalized to the target length.
		if _, err := e.Refine(1, p.RefinePasses); err != nil {
			return nil, e.Stats(), err
		}
	}
	if err := m.CheckInvariants(); err != nil {
		return nil, e.Stats(), err
	}
	return e.Export(f.Name), e.Stats(), nil
}

func vertices(e *delaunay.Engine, l job.Loop) []*mesh.Vertex {
	out := make([]*mesh.Vertex, len(l))
	for i, p := range l {
		out[i] = e.NewVertex(p.U, p.V)
	}
	return out
}

// bootstrap starts the triangulation from the first two loop vertices
// and the first later vertex not aligned with them.
func bootstrap(e *delaunay.Engine, l []*mesh.Vertex) error {
	a, b := l[0], l[1]
	for _, c := range l[2:] {
		if mesh.Orient(a, b, c) != 0 {
			return e.Bootstrap(a, b, c)
		}
	}
	return e.Bootstrap(a, b, l[2])
}

// insertBoundary inserts a loop vertex, returning the existing vertex
// when the point is already in the mesh.
func insertBoundary(e *delaunay.Engine, v *mesh.Vertex) (*mesh.Vertex, error) {
	h, loc, err := e.Locate(v)
	if err != nil {
		return nil, err
	}
	if loc == delaunay.OnVertex {
		return h.Origin(), nil
	}
	if _, err := e.Insert(v, true); err != nil {
		return nil, err
	}
	return v, nil
}
