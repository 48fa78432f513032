package locator

import (
	"math"
	"sort"

	"github.com/chazu/tessera/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// centroid is a kd-tree entry: the center of one triangle.
type centroid struct {
	c   r3.Vec
	tri int
}

func (c *centroid) Compare(other kdtree.Comparable, d kdtree.Dim) float64 {
	o := other.(*centroid)
	return axis(c.c, int(d)) - axis(o.c, int(d))
}

func (c *centroid) Dims() int { return 3 }

// Distance is squared, as kdtree keepers expect.
func (c *centroid) Distance(other kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(c.c, other.(*centroid).c))
}

type centroids []centroid

func (cs centroids) Index(i int) kdtree.Comparable { return &cs[i] }
func (cs centroids) Len() int                      { return len(cs) }
func (cs centroids) Slice(start, end int) kdtree.Interface {
	return cs[start:end]
}

func (cs centroids) Pivot(d kdtree.Dim) int {
	p := centroidPlane{dim: int(d), cs: cs}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

func (cs centroids) Bounds() *kdtree.Bounding {
	lo := centroid{c: r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}}
	hi := centroid{c: r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}}
	for _, c := range cs {
		lo.c = r3.Vec{X: math.Min(lo.c.X, c.c.X), Y: math.Min(lo.c.Y, c.c.Y), Z: math.Min(lo.c.Z, c.c.Z)}
		hi.c = r3.Vec{X: math.Max(hi.c.X, c.c.X), Y: math.Max(hi.c.Y, c.c.Y), Z: math.Max(hi.c.Z, c.c.Z)}
	}
	return &kdtree.Bounding{Min: &lo, Max: &hi}
}

type centroidPlane struct {
	dim int
	cs  centroids
}

func (p centroidPlane) Less(i, j int) bool {
	return axis(p.cs[i].c, p.dim) < axis(p.cs[j].c, p.dim)
}
func (p centroidPlane) Swap(i, j int) { p.cs[i], p.cs[j] = p.cs[j], p.cs[i] }
func (p centroidPlane) Len() int      { return len(p.cs) }
func (p centroidPlane) Slice(start, end int) kdtree.SortSlicer {
	p.cs = p.cs[start:end]
	return p
}

// KDTree indexes triangle centroids in a gonum kd-tree. Queries first
// bound the search radius with the nearest centroid, then test every
// triangle whose centroid lies within that radius plus the largest
// triangle radius.
type KDTree struct {
	tris      []triangle
	tree      *kdtree.Tree
	maxRadius float64
}

var _ Locator = (*KDTree)(nil)

// NewKDTree indexes tris. The slice is not retained.
func NewKDTree(tris []kernel.Triangle) *KDTree {
	k := &KDTree{tris: prepare(tris)}
	cs := make(centroids, len(k.tris))
	for i, t := range k.tris {
		cs[i] = centroid{c: t.center, tri: i}
		k.maxRadius = math.Max(k.maxRadius, t.radius)
	}
	if len(cs) > 0 {
		k.tree = kdtree.New(cs, true)
	}
	return k
}

// within returns the triangles whose centroid lies within r of p.
func (k *KDTree) within(p r3.Vec, r float64) []int {
	keep := kdtree.NewDistKeeper(r * r)
	k.tree.NearestSet(keep, &centroid{c: p})
	out := make([]int, 0, keep.Len())
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		out = append(out, c.Comparable.(*centroid).tri)
	}
	return out
}

// Closest implements Locator.
func (k *KDTree) Closest(p v3.Vec) (int, float64) {
	if k.tree == nil {
		return -1, math.Inf(1)
	}
	q := vec(p)
	near, _ := k.tree.Nearest(&centroid{c: q})
	first := near.(*centroid).tri
	best, bestD2 := first, k.tris[first].dist2(q)
	for _, i := range k.within(q, math.Sqrt(bestD2)+k.maxRadius) {
		if d := k.tris[i].dist2(q); d < bestD2 || (d == bestD2 && i < best) {
			best, bestD2 = i, d
		}
	}
	return best, math.Sqrt(bestD2)
}

// NearSegment implements Locator.
func (k *KDTree) NearSegment(a, b v3.Vec, tol float64) []int {
	if k.tree == nil {
		return nil
	}
	p, q := vec(a), vec(b)
	mid := r3.Scale(0.5, r3.Add(p, q))
	r := r3.Norm(r3.Sub(q, p))/2 + tol + k.maxRadius
	var out []int
	for _, i := range k.within(mid, r) {
		if k.tris[i].segmentDist2(p, q) <= tol*tol {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}
