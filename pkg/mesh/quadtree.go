package mesh

import (
	"math"

	"github.com/chazu/tessera/pkg/metric"
)

const (
	// gridBits is the resolution of the quantized parameter grid.
	gridBits = 30
	gridSize = int64(1) << gridBits
	gridMax  = gridSize - 1
	// bucketSize is the vertex capacity of a leaf cell.
	bucketSize = 10
)

type qtCell struct {
	child [4]*qtCell
	verts []*Vertex
	leaf  bool
}

// QuadTree is a bucket quadtree over quantized parameter coordinates.
// Cells carry no position; it is rebuilt from the descent path.
type QuadTree struct {
	x0, y0 float64
	scale  float64
	root   *qtCell
	count  int
}

// NewQuadTree returns an empty tree covering the given parameter box.
// Both axes share one scale so that the grid preserves angles.
func NewQuadTree(umin, vmin, umax, vmax float64) *QuadTree {
	extent := math.Max(umax-umin, vmax-vmin)
	if !(extent > 0) {
		extent = 1
	}
	return &QuadTree{
		x0:    umin,
		y0:    vmin,
		scale: float64(gridMax) / extent,
		root:  &qtCell{leaf: true},
	}
}

// Quantize maps parameter coordinates to the integer grid, clamping
// points outside the box.
func (q *QuadTree) Quantize(u, v float64) (int64, int64) {
	return q.clamp((u - q.x0) * q.scale), q.clamp((v - q.y0) * q.scale)
}

func (q *QuadTree) clamp(x float64) int64 {
	if !(x > 0) {
		return 0
	}
	if x >= float64(gridMax) {
		return gridMax
	}
	return int64(math.Round(x))
}

// Scale returns the number of grid units per parameter unit.
func (q *QuadTree) Scale() float64 { return q.scale }

// Count returns the number of stored vertices.
func (q *QuadTree) Count() int { return q.count }

func childIndex(ix, iy, x, y, half int64) int {
	i := 0
	if ix >= x+half {
		i |= 1
	}
	if iy >= y+half {
		i |= 2
	}
	return i
}

func childOrigin(i int, x, y, half int64) (int64, int64) {
	if i&1 != 0 {
		x += half
	}
	if i&2 != 0 {
		y += half
	}
	return x, y
}

// Add inserts v using its quantized coordinates.
func (q *QuadTree) Add(v *Vertex) {
	q.add(q.root, v, 0, 0, gridSize)
	q.count++
}

func (q *QuadTree) add(c *qtCell, v *Vertex, x, y, size int64) {
	for !c.leaf {
		half := size / 2
		i := childIndex(v.ix, v.iy, x, y, half)
		if c.child[i] == nil {
			c.child[i] = &qtCell{leaf: true}
		}
		x, y = childOrigin(i, x, y, half)
		c, size = c.child[i], half
	}
	c.verts = append(c.verts, v)
	if len(c.verts) <= bucketSize || size == 1 {
		return
	}
	verts := c.verts
	c.verts = nil
	c.leaf = false
	for _, w := range verts {
		q.add(c, w, x, y, size)
	}
}

// Remove deletes v, matched by identity. It reports whether v was found.
func (q *QuadTree) Remove(v *Vertex) bool {
	found, _ := q.remove(q.root, v, 0, 0, gridSize)
	if found {
		q.count--
	}
	return found
}

// remove returns whether v was found and whether c became empty.
func (q *QuadTree) remove(c *qtCell, v *Vertex, x, y, size int64) (bool, bool) {
	if c.leaf {
		for i, w := range c.verts {
			if w == v {
				last := len(c.verts) - 1
				c.verts[i] = c.verts[last]
				c.verts[last] = nil
				c.verts = c.verts[:last]
				return true, len(c.verts) == 0
			}
		}
		return false, false
	}
	half := size / 2
	i := childIndex(v.ix, v.iy, x, y, half)
	ch := c.child[i]
	if ch == nil {
		return false, false
	}
	cx, cy := childOrigin(i, x, y, half)
	found, empty := q.remove(ch, v, cx, cy, half)
	if !empty {
		return found, false
	}
	c.child[i] = nil
	for _, o := range c.child {
		if o != nil {
			return found, false
		}
	}
	if c == q.root {
		c.leaf = true
	}
	return found, true
}

// NearVertex returns a vertex close to (u, v) by a single descent toward
// the cell containing the point, or nil on an empty tree.
func (q *QuadTree) NearVertex(u, v float64) *Vertex {
	ix, iy := q.Quantize(u, v)
	c, x, y, size := q.root, int64(0), int64(0), gridSize
	for !c.leaf {
		half := size / 2
		best, bestD := -1, math.Inf(1)
		for i, ch := range c.child {
			if ch == nil {
				continue
			}
			cx, cy := childOrigin(i, x, y, half)
			if d := boxDistance(ix, iy, cx, cy, half); d < bestD {
				best, bestD = i, d
			}
		}
		if best < 0 {
			return nil
		}
		x, y = childOrigin(best, x, y, half)
		c, size = c.child[best], half
	}
	var near *Vertex
	bestD := int64(math.MaxInt64)
	for _, w := range c.verts {
		dx, dy := w.ix-ix, w.iy-iy
		if d := dx*dx + dy*dy; d < bestD {
			near, bestD = w, d
		}
	}
	return near
}

// NearestVertex returns the vertex closest to (u, v) for metric m.
// Cells are pruned when their grid distance, converted to a metric
// distance with the smallest eigenvalue of m, exceeds the best so far.
func (q *QuadTree) NearestVertex(m metric.Metric, u, v float64) *Vertex {
	best := q.NearVertex(u, v)
	if best == nil {
		return nil
	}
	if m == nil {
		m = metric.Euclidean
	}
	s := &nearestSearch{
		m:      m,
		u:      u,
		v:      v,
		factor: math.Sqrt(math.Max(0, m.MinEigenvalue())) / q.scale,
		best:   best,
		bestD:  m.Distance(u, v, best.UV[0], best.UV[1]),
	}
	s.ix, s.iy = q.Quantize(u, v)
	s.visit(q.root, 0, 0, gridSize)
	return s.best
}

type nearestSearch struct {
	m      metric.Metric
	u, v   float64
	ix, iy int64
	factor float64
	best   *Vertex
	bestD  float64
}

func (s *nearestSearch) visit(c *qtCell, x, y, size int64) {
	// Quantization moves points by at most one grid unit per axis.
	if lower := (boxDistance(s.ix, s.iy, x, y, size) - 2) * s.factor; lower > s.bestD {
		return
	}
	if c.leaf {
		for _, w := range c.verts {
			if d := s.m.Distance(s.u, s.v, w.UV[0], w.UV[1]); d < s.bestD {
				s.best, s.bestD = w, d
			}
		}
		return
	}
	half := size / 2
	first := childIndex(s.ix, s.iy, x, y, half)
	for k := 0; k < 4; k++ {
		i := first ^ k
		if ch := c.child[i]; ch != nil {
			cx, cy := childOrigin(i, x, y, half)
			s.visit(ch, cx, cy, half)
		}
	}
}

// Walk calls fn for every stored vertex until fn returns false.
func (q *QuadTree) Walk(fn func(*Vertex) bool) {
	q.walk(q.root, fn)
}

func (q *QuadTree) walk(c *qtCell, fn func(*Vertex) bool) bool {
	if c.leaf {
		for _, v := range c.verts {
			if !fn(v) {
				return false
			}
		}
		return true
	}
	for _, ch := range c.child {
		if ch != nil && !q.walk(ch, fn) {
			return false
		}
	}
	return true
}

// boxDistance is the Euclidean grid distance from (ix, iy) to the cell
// [x, x+size) x [y, y+size).
func boxDistance(ix, iy, x, y, size int64) float64 {
	dx := axisDistance(ix, x, x+size-1)
	dy := axisDistance(iy, y, y+size-1)
	return math.Hypot(float64(dx), float64(dy))
}

func axisDistance(p, lo, hi int64) int64 {
	switch {
	case p < lo:
		return lo - p
	case p > hi:
		return p - hi
	}
	return 0
}
