package locator

import (
	"errors"
	"math"

	"github.com/chazu/tessera/pkg/kernel"
	"github.com/chazu/tessera/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrUnknownVertex is returned for vertices a Liaison does not track.
var ErrUnknownVertex = errors.New("locator: vertex not tracked by liaison")

// Projection is the foot of a vertex on the background mesh.
type Projection struct {
	Triangle int
	Point    v3.Vec
	Dist     float64
}

// Liaison ties the vertices of an edited mesh to the background
// triangles they were sampled from.
type Liaison struct {
	bg   []kernel.Triangle
	loc  Locator
	m    *mesh.Mesh
	proj map[*mesh.Vertex]Projection
}

// NewLiaison projects every vertex of m onto bg. loc must index bg; a
// nil loc builds a BVH.
func NewLiaison(bg []kernel.Triangle, m *mesh.Mesh, loc Locator) *Liaison {
	if loc == nil {
		loc = NewBVH(bg)
	}
	l := &Liaison{bg: bg, loc: loc, m: m, proj: make(map[*mesh.Vertex]Projection, m.VertexCount())}
	for _, v := range m.Vertices() {
		l.proj[v] = l.project(v.Pos)
	}
	return l
}

func (l *Liaison) project(p v3.Vec) Projection {
	i, d := l.loc.Closest(p)
	if i < 0 {
		return Projection{Triangle: -1, Point: p, Dist: math.Inf(1)}
	}
	return Projection{Triangle: i, Point: ClosestPoint(l.bg[i], p), Dist: d}
}

// Projection returns the current projection of v.
func (l *Liaison) Projection(v *mesh.Vertex) (Projection, bool) {
	p, ok := l.proj[v]
	return p, ok
}

// Add starts tracking a vertex created after the liaison.
func (l *Liaison) Add(v *mesh.Vertex) Projection {
	p := l.project(v.Pos)
	l.proj[v] = p
	return p
}

// Move places v at p and refreshes its projection.
func (l *Liaison) Move(v *mesh.Vertex, p v3.Vec) (Projection, error) {
	if _, ok := l.proj[v]; !ok {
		return Projection{}, ErrUnknownVertex
	}
	v.Pos = p
	pr := l.project(p)
	l.proj[v] = pr
	return pr, nil
}

// Snap moves v onto its projection.
func (l *Liaison) Snap(v *mesh.Vertex) error {
	pr, ok := l.proj[v]
	if !ok {
		return ErrUnknownVertex
	}
	if pr.Triangle < 0 {
		return nil
	}
	v.Pos = pr.Point
	pr.Dist = 0
	l.proj[v] = pr
	return nil
}

// Remove stops tracking v.
func (l *Liaison) Remove(v *mesh.Vertex) { delete(l.proj, v) }

// MaxDistance is the largest distance from a tracked vertex to the
// background.
func (l *Liaison) MaxDistance() float64 {
	d := 0.0
	for _, p := range l.proj {
		d = math.Max(d, p.Dist)
	}
	return d
}
