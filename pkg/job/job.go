// Package job describes meshing jobs: a set of parametric faces bounded
// by polygonal loops, and the mesher parameters to apply to them.
package job

import (
	"fmt"
	"math"

	"github.com/chazu/tessera/pkg/kernel"
)

// SurfaceKind selects the parametric surface carrying a face.
type SurfaceKind string

const (
	SurfacePlane    SurfaceKind = "plane"
	SurfaceCylinder SurfaceKind = "cylinder"
	SurfaceSphere   SurfaceKind = "sphere"
)

// UV is a point of the parameter plane.
type UV struct {
	U, V float64
}

// Loop is a closed polygon; the last point connects back to the first.
type Loop []UV

// Params holds mesher parameters.
type Params struct {
	Length                float64 `yaml:"length"`
	Deflection            float64 `yaml:"deflection"`
	RefinePasses          int     `yaml:"refine_passes"`
	MaxBoundaryIterations int     `yaml:"max_boundary_iterations"`
}

// DefaultParams returns the parameters used when a job sets none.
func DefaultParams() Params {
	return Params{
		Length:                1,
		RefinePasses:          8,
		MaxBoundaryIterations: 10000,
	}
}

// Face is one parametric patch to mesh.
type Face struct {
	Name    string
	Surface SurfaceKind
	Radius  float64
	Outer   Loop
	Holes   []Loop
	// Points are interior vertices inserted before boundary recovery.
	Points []UV
}

// Job is a named batch of faces.
type Job struct {
	Name   string
	Params Params
	Faces  []Face
}

// New returns an empty job with default parameters.
func New(name string) *Job {
	return &Job{Name: name, Params: DefaultParams()}
}

// AddFace appends a face.
func (j *Job) AddFace(f Face) {
	j.Faces = append(j.Faces, f)
}

// FaceCount returns the number of faces.
func (j *Job) FaceCount() int {
	return len(j.Faces)
}

// Face returns the face with the given name, or nil.
func (j *Job) Face(name string) *Face {
	for i := range j.Faces {
		if j.Faces[i].Name == name {
			return &j.Faces[i]
		}
	}
	return nil
}

// SurfaceImpl returns the kernel surface of the face.
func (f *Face) SurfaceImpl() (kernel.Surface, error) {
	switch f.Surface {
	case SurfacePlane, "":
		return kernel.XYPlane(), nil
	case SurfaceCylinder:
		return kernel.Cylinder{Radius: f.Radius}, nil
	case SurfaceSphere:
		return kernel.Sphere{Radius: f.Radius}, nil
	}
	return nil, fmt.Errorf("job: unknown surface %q", f.Surface)
}

// Bounds returns the parameter bounding box of every loop and point.
func (f *Face) Bounds() (umin, vmin, umax, vmax float64) {
	umin, vmin = math.Inf(1), math.Inf(1)
	umax, vmax = math.Inf(-1), math.Inf(-1)
	grow := func(p UV) {
		umin, umax = math.Min(umin, p.U), math.Max(umax, p.U)
		vmin, vmax = math.Min(vmin, p.V), math.Max(vmax, p.V)
	}
	for _, p := range f.Outer {
		grow(p)
	}
	for _, h := range f.Holes {
		for _, p := range h {
			grow(p)
		}
	}
	for _, p := range f.Points {
		grow(p)
	}
	return umin, vmin, umax, vmax
}

// Area returns the signed area of the loop, positive when
// counter-clockwise.
func (l Loop) Area() float64 {
	a := 0.0
	for i, p := range l {
		q := l[(i+1)%len(l)]
		a += p.U*q.V - q.U*p.V
	}
	return a / 2
}

// Contains reports whether p is strictly inside the loop (even-odd rule).
func (l Loop) Contains(p UV) bool {
	in := false
	for i, a := range l {
		b := l[(i+1)%len(l)]
		if (a.V > p.V) != (b.V > p.V) {
			x := a.U + (p.V-a.V)*(b.U-a.U)/(b.V-a.V)
			if p.U < x {
				in = !in
			}
		}
	}
	return in
}

// Rect returns the counter-clockwise rectangle loop.
func Rect(umin, vmin, umax, vmax float64) Loop {
	return Loop{{umin, vmin}, {umax, vmin}, {umax, vmax}, {umin, vmax}}
}

// Polygon returns a regular polygon of n sides around (cu, cv).
func Polygon(cu, cv, radius float64, n int) Loop {
	l := make(Loop, n)
	for i := range l {
		a := 2 * math.Pi * float64(i) / float64(n)
		l[i] = UV{cu + radius*math.Cos(a), cv + radius*math.Sin(a)}
	}
	return l
}
