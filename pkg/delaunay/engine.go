// Package delaunay builds metric-aware constrained Delaunay triangulations
// of a parameter domain by incremental insertion on a half-edge mesh.
//
// A mesh is bootstrapped from three points surrounded by a fan of outer
// triangles incident to the mesh Outer vertex. Points are then inserted
// one at a time: located by a visibility walk, split into the containing
// triangle or edge, and made locally Delaunay by edge flips around the
// new vertex. Boundary segments are recovered afterward by flipping the
// edges they cross.
package delaunay

import (
	"errors"
	"fmt"

	"github.com/chazu/tessera/internal/logger"
	"github.com/chazu/tessera/pkg/kernel"
	"github.com/chazu/tessera/pkg/mesh"
	"github.com/chazu/tessera/pkg/metric"
	v3 "github.com/deadsy/sdfx/vec/v3"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrInitialTriangulation is returned when a face cannot be meshed:
// aligned bootstrap points, or a boundary segment that cannot be
// recovered. Drivers record the face as failed and carry on.
var ErrInitialTriangulation = errors.New("delaunay: initial triangulation failed")

func internalf(format string, args ...interface{}) error {
	return pkgerrors.WithStack(fmt.Errorf("%w: %s", mesh.ErrInternal, fmt.Sprintf(format, args...)))
}

// Options configures the metric of an engine.
type Options struct {
	// Surface, when set, gives vertex positions and drives the metric.
	Surface kernel.Surface
	// Length is the target edge length. Zero keeps the Euclidean metric.
	Length float64
	// Deflection bounds the chordal error on curved surfaces.
	Deflection float64
}

// Stats counts engine events.
type Stats struct {
	Inserted      int
	Rejected      int
	Flips         int
	BoundaryFlips int
}

// Engine drives incremental insertion into one parametric mesh. It is
// not safe for concurrent use.
type Engine struct {
	mesh  *mesh.Mesh
	opts  Options
	stats Stats
	log   *zap.Logger
}

// New returns an engine working on m, which must be a 2D mesh.
func New(m *mesh.Mesh, opts Options) *Engine {
	if opts.Surface == nil && opts.Length > 0 {
		m.Metric = metric.Isotropic(opts.Length)
	}
	return &Engine{mesh: m, opts: opts, log: logger.Named("delaunay")}
}

// Mesh returns the mesh being built.
func (e *Engine) Mesh() *mesh.Mesh { return e.mesh }

// Stats returns a copy of the event counters.
func (e *Engine) Stats() Stats { return e.stats }

// NewVertex creates a vertex at (u, v) with its surface position and
// metric. The vertex is not inserted.
func (e *Engine) NewVertex(u, v float64) *mesh.Vertex {
	vx := e.mesh.NewVertex(u, v)
	if s := e.opts.Surface; s != nil {
		vx.Pos = s.Value(u, v)
		if e.opts.Length > 0 {
			vx.Metric = metric.FromSurface(s, u, v, e.opts.Length, e.opts.Deflection)
		}
	} else {
		vx.Pos = v3.Vec{X: u, Y: v}
	}
	return vx
}

// Bootstrap creates the first inner triangle from a, b and c, in either
// orientation, together with the three outer triangles around it.
func (e *Engine) Bootstrap(a, b, c *mesh.Vertex) error {
	m := e.mesh
	if m.TriangleCount() != 0 {
		return internalf("bootstrap of a non-empty mesh")
	}
	o := mesh.Orient(a, b, c)
	if o == 0 {
		return fmt.Errorf("%w: aligned points %v %v %v: %w", ErrInitialTriangulation, a, b, c, mesh.ErrDegenerate)
	}
	if o < 0 {
		b, c = c, b
	}
	for _, v := range []*mesh.Vertex{a, b, c} {
		m.AddVertex(v)
	}
	t0 := m.NewTriangle(a, b, c)
	var outer [3]*mesh.Triangle
	for l := 0; l < 3; l++ {
		outer[l] = m.NewTriangle(m.Outer, t0.V[(l+2)%3], t0.V[(l+1)%3])
		mesh.Glue(t0, l, outer[l], 0)
	}
	for l := 0; l < 3; l++ {
		mesh.Glue(outer[l], 1, outer[(l+2)%3], 2)
	}
	m.Outer.Link = outer[0]
	return nil
}

// Insert adds v to the triangulation. With force unset, a point whose
// insertion triggers no flip does not improve the mesh and is removed
// again; Insert then reports false. Duplicate points are rejected.
func (e *Engine) Insert(v *mesh.Vertex, force bool) (bool, error) {
	h, loc, err := e.Locate(v)
	if err != nil {
		return false, err
	}
	return e.insertAt(v, h, loc, force)
}

func (e *Engine) insertAt(v *mesh.Vertex, h mesh.HalfEdge, loc Location, force bool) (bool, error) {
	m := e.mesh
	var snap *mesh.Snapshot
	switch loc {
	case OnVertex:
		e.stats.Rejected++
		e.log.Debug("duplicate point", zap.Stringer("vertex", v))
		return false, nil
	case OnEdge:
		snap = m.SplitEdge(h, v)
	default:
		snap = m.Split(h.T, v)
	}
	flips, err := e.propagate(v)
	if err != nil {
		return false, err
	}
	if !force && flips == 0 {
		m.Rollback(snap)
		e.stats.Rejected++
		return false, nil
	}
	e.stats.Inserted++
	e.stats.Flips += flips
	return true, nil
}

// propagate restores the Delaunay property around a freshly inserted p
// and returns the number of flips. Passes around p repeat until one
// completes without flipping.
func (e *Engine) propagate(p *mesh.Vertex) (int, error) {
	m := e.mesh
	total := 0
	guard := 8*m.TriangleCount() + 64
	for pass := 0; ; pass++ {
		if pass > guard {
			return total, internalf("swap propagation around %v does not converge", p)
		}
		if p.Link == nil {
			return total, internalf("inserted vertex %v has no link", p)
		}
		h := p.Link.Edge(p.Link.IndexOf(p))
		start := h.Origin()
		flips := 0
		for steps := 0; ; steps++ {
			if steps > guard {
				return total, internalf("ring walk around %v does not close", p)
			}
			if e.canSwap(h) {
				if err := m.Flip(h); err != nil {
					return total, err
				}
				flips++
				// The flipped triangle keeps p at index 0.
				h = mesh.HalfEdge{T: h.T, L: 0}
				continue
			}
			h = h.Next().Sym().Next()
			if h.IsNil() {
				return total, internalf("open edge around inserted vertex %v", p)
			}
			if h.Origin() == start {
				break
			}
		}
		total += flips
		if flips == 0 {
			return total, nil
		}
	}
}

// canSwap reports whether the edge h opposite an inserted vertex must be
// flipped.
func (e *Engine) canSwap(h mesh.HalfEdge) bool {
	if h.HasAttr(mesh.AttrBoundary | mesh.AttrNonManifold) {
		return false
	}
	s := h.Sym()
	if s.IsNil() {
		return false
	}
	a, b, c, d := h.Origin(), h.Destination(), h.Apex(), s.Apex()
	switch {
	case d.IsOuter(), c.IsOuter():
		return false
	case a.IsOuter():
		// Flipping turns (d, b, c) into an inner triangle.
		return mesh.Orient(d, b, c) > 0
	case b.IsOuter():
		return mesh.Orient(c, a, d) > 0
	}
	if mesh.Orient(c, a, d) <= 0 || mesh.Orient(d, b, c) <= 0 {
		return false
	}
	return e.inCircle(c, a, b, d)
}

// inCircle reports whether d lies inside the circumscribed ellipse of
// the counter-clockwise triangle (c, a, b).
func (e *Engine) inCircle(c, a, b, d *mesh.Vertex) bool {
	mc, md := e.mesh.MetricAt(c), e.mesh.MetricAt(d)
	if mc.IsPseudoIsotropic() && md.IsPseudoIsotropic() {
		return mesh.InCircle(c, a, b, d) > 0
	}
	if inside, ok := anisotropicInCircle(c, a, b, d, mc, md); ok {
		return inside
	}
	if inside, ok := anisotropicInCircle(d, b, a, c, md, mc); ok {
		return inside
	}
	e.log.Debug("anisotropic criterion failed, using isotropic test",
		zap.Stringer("a", a), zap.Stringer("b", b))
	return mesh.InCircle(c, a, b, d) > 0
}
