package mesh

import (
	"fmt"

	"github.com/chazu/tessera/pkg/metric"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Vertex is a mesh node. Identity matters more than value: the quadtree
// and the mesh key vertices by pointer, and coordinates change in place
// through Mesh.Move.
type Vertex struct {
	// UV holds the parametric coordinates of 2D meshes.
	UV [2]float64
	// Pos holds the 3D position of 3D meshes, or the surface position
	// of a parametric vertex when known.
	Pos v3.Vec
	// Metric is the cached local metric; nil means the mesh default.
	Metric metric.Metric
	// Link is one triangle incident to this vertex.
	Link *Triangle
	// Ref1D tags vertices that come from a boundary discretization;
	// zero means interior.
	Ref1D int

	ix, iy int64
	outer  bool
	index  int
}

// IsOuter reports whether v is the conventional vertex at infinity.
func (v *Vertex) IsOuter() bool { return v.outer }

// Quantized returns the integer grid coordinates of a 2D vertex.
func (v *Vertex) Quantized() (int64, int64) { return v.ix, v.iy }

// Alive reports whether the vertex still belongs to a mesh.
func (v *Vertex) Alive() bool { return v.index >= 0 }

func (v *Vertex) String() string {
	if v.outer {
		return "outer"
	}
	if v.Pos != (v3.Vec{}) {
		return fmt.Sprintf("(%g %g %g)", v.Pos.X, v.Pos.Y, v.Pos.Z)
	}
	return fmt.Sprintf("(%g %g)", v.UV[0], v.UV[1])
}
