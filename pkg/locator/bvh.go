package locator

import (
	"math"
	"sort"

	"github.com/chazu/tessera/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// bvhLeafSize is the largest number of triangles in a BVH leaf.
const bvhLeafSize = 4

type bvhNode struct {
	box r3.Box
	// A leaf holds tris[start:start+count]. Internal nodes have count 0
	// and two children.
	start, count int
	left, right  int
}

// BVH is a bounding volume hierarchy of axis-aligned boxes built by
// median split along the longest axis of the centroid bounds.
type BVH struct {
	tris  []triangle
	nodes []bvhNode
}

var _ Locator = (*BVH)(nil)

// NewBVH indexes tris. The slice is not retained.
func NewBVH(tris []kernel.Triangle) *BVH {
	b := &BVH{tris: prepare(tris)}
	if len(b.tris) > 0 {
		b.build(0, len(b.tris))
	}
	return b
}

func triBox(t *triangle) r3.Box {
	box := r3.Box{Min: t.v[0], Max: t.v[0]}
	for _, p := range t.v[1:] {
		box = boxAdd(box, p)
	}
	return box
}

func boxAdd(b r3.Box, p r3.Vec) r3.Box {
	return r3.Box{
		Min: r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)},
		Max: r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)},
	}
}

func axis(p r3.Vec, k int) float64 {
	switch k {
	case 0:
		return p.X
	case 1:
		return p.Y
	}
	return p.Z
}

// build creates the node of tris[lo:hi] and returns its index.
func (b *BVH) build(lo, hi int) int {
	n := len(b.nodes)
	b.nodes = append(b.nodes, bvhNode{})
	box := triBox(&b.tris[lo])
	cbox := r3.Box{Min: b.tris[lo].center, Max: b.tris[lo].center}
	for i := lo + 1; i < hi; i++ {
		tb := triBox(&b.tris[i])
		box = boxAdd(boxAdd(box, tb.Min), tb.Max)
		cbox = boxAdd(cbox, b.tris[i].center)
	}
	if hi-lo <= bvhLeafSize {
		b.nodes[n] = bvhNode{box: box, start: lo, count: hi - lo}
		return n
	}
	size := r3.Sub(cbox.Max, cbox.Min)
	k := 0
	if size.Y > axis(size, k) {
		k = 1
	}
	if size.Z > axis(size, k) {
		k = 2
	}
	part := b.tris[lo:hi]
	sort.Slice(part, func(i, j int) bool {
		return axis(part[i].center, k) < axis(part[j].center, k)
	})
	mid := lo + (hi-lo)/2
	left := b.build(lo, mid)
	right := b.build(mid, hi)
	b.nodes[n] = bvhNode{box: box, left: left, right: right}
	return n
}

// boxDist2 returns the squared distance from p to box.
func boxDist2(box r3.Box, p r3.Vec) float64 {
	d := 0.0
	for k := 0; k < 3; k++ {
		x, lo, hi := axis(p, k), axis(box.Min, k), axis(box.Max, k)
		if x < lo {
			d += (lo - x) * (lo - x)
		} else if x > hi {
			d += (x - hi) * (x - hi)
		}
	}
	return d
}

// Closest implements Locator.
func (b *BVH) Closest(p v3.Vec) (int, float64) {
	if len(b.nodes) == 0 {
		return -1, math.Inf(1)
	}
	q := vec(p)
	best, bestD2 := -1, math.Inf(1)
	var visit func(n int)
	visit = func(n int) {
		node := &b.nodes[n]
		if boxDist2(node.box, q) >= bestD2 {
			return
		}
		if node.count > 0 {
			for i := node.start; i < node.start+node.count; i++ {
				if d := b.tris[i].dist2(q); d < bestD2 || (d == bestD2 && b.tris[i].index < best) {
					best, bestD2 = b.tris[i].index, d
				}
			}
			return
		}
		l, r := node.left, node.right
		if boxDist2(b.nodes[r].box, q) < boxDist2(b.nodes[l].box, q) {
			l, r = r, l
		}
		visit(l)
		visit(r)
	}
	visit(0)
	return best, math.Sqrt(bestD2)
}

// segmentNearBox reports whether segment pq passes within tol of box,
// using a slab test against the box grown by tol.
func segmentNearBox(box r3.Box, p, q r3.Vec, tol float64) bool {
	t0, t1 := 0.0, 1.0
	d := r3.Sub(q, p)
	for k := 0; k < 3; k++ {
		o, dir := axis(p, k), axis(d, k)
		lo, hi := axis(box.Min, k)-tol, axis(box.Max, k)+tol
		if dir == 0 {
			if o < lo || o > hi {
				return false
			}
			continue
		}
		a, b := (lo-o)/dir, (hi-o)/dir
		if a > b {
			a, b = b, a
		}
		t0, t1 = math.Max(t0, a), math.Min(t1, b)
		if t0 > t1 {
			return false
		}
	}
	return true
}

// NearSegment implements Locator.
func (b *BVH) NearSegment(a, c v3.Vec, tol float64) []int {
	if len(b.nodes) == 0 {
		return nil
	}
	p, q := vec(a), vec(c)
	tol2 := tol * tol
	var out []int
	var visit func(n int)
	visit = func(n int) {
		node := &b.nodes[n]
		if !segmentNearBox(node.box, p, q, tol) {
			return
		}
		if node.count > 0 {
			for i := node.start; i < node.start+node.count; i++ {
				if b.tris[i].segmentDist2(p, q) <= tol2 {
					out = append(out, b.tris[i].index)
				}
			}
			return
		}
		visit(node.left)
		visit(node.right)
	}
	visit(0)
	sort.Ints(out)
	return out
}
