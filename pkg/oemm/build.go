package oemm

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/chazu/tessera/internal/logger"
	"github.com/chazu/tessera/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"
)

// maxOpenLeaves caps the leaf files Dispatch keeps open at once.
const maxOpenLeaves = 128

// Build runs the count, dispatch and index passes over src.
func Build(src Source, opts Options) (*OEMM, error) {
	o, err := CountTriangles(src, opts)
	if err != nil {
		return nil, err
	}
	if err := Dispatch(o, src, opts.BufferSize); err != nil {
		return nil, err
	}
	if err := IndexOEMM(o); err != nil {
		return nil, err
	}
	return o, nil
}

// histogram is the sorted sparse count of triangles per finest cell.
type histogram struct {
	codes []uint64
	// cum[i] is the number of triangles in cells codes[:i].
	cum []int
}

func newHistogram(counts map[uint64]int) *histogram {
	h := &histogram{codes: make([]uint64, 0, len(counts))}
	for c := range counts {
		h.codes = append(h.codes, c)
	}
	sort.Slice(h.codes, func(i, j int) bool { return h.codes[i] < h.codes[j] })
	h.cum = make([]int, len(h.codes)+1)
	for i, c := range h.codes {
		h.cum[i+1] = h.cum[i] + counts[c]
	}
	return h
}

// count returns the number of triangles with codes in [lo, hi).
func (h *histogram) count(lo, hi uint64) int {
	i := sort.Search(len(h.codes), func(k int) bool { return h.codes[k] >= lo })
	j := sort.Search(len(h.codes), func(k int) bool { return h.codes[k] >= hi })
	return h.cum[j] - h.cum[i]
}

// CountTriangles computes the octree of src without moving any data. A
// first pass finds the bounding cube, a second one counts triangles per
// finest cell by centroid; the tree is then split top-down wherever a
// node holds more than the leaf threshold.
func CountTriangles(src Source, opts Options) (*OEMM, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	lo := v3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := v3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	total := 0
	err := src.Each(func(t kernel.Triangle) error {
		for _, p := range t {
			lo = v3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
			hi = v3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
		}
		total++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("oemm: bounding box pass: %w", err)
	}
	if total == 0 {
		lo, hi = v3.Vec{}, v3.Vec{}
	}
	side := math.Max(hi.X-lo.X, math.Max(hi.Y-lo.Y, hi.Z-lo.Z))
	if side <= 0 {
		side = 1
	}

	o := &OEMM{
		Dir:      opts.Dir,
		Bounds:   sdf.Box3{Min: lo, Max: lo.Add(v3.Vec{X: side, Y: side, Z: side})},
		MaxDepth: opts.MaxDepth,
	}
	counts := make(map[uint64]int)
	seen := 0
	err = src.Each(func(t kernel.Triangle) error {
		counts[morton(o.cell(t.Centroid()))]++
		seen++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("oemm: count pass: %w", err)
	}
	if seen != total {
		return nil, fmt.Errorf("%w: count pass saw %d triangles, bounding box pass %d", ErrStructureMismatch, seen, total)
	}

	h := newHistogram(counts)
	o.Nodes = append(o.Nodes, newNode(-1, 0, [3]uint32{}))
	o.split(0, h, opts.LeafThreshold)

	logger.Named("oemm").Info("octree counted",
		zap.Int("triangles", total),
		zap.Int("nodes", len(o.Nodes)),
		zap.Int("leaves", len(o.Leaves)),
		zap.Int("depth", o.Depth()))
	return o, nil
}

// split recursively subdivides node n. Only non-empty octants get a
// child node.
func (o *OEMM) split(n int, h *histogram, threshold int) {
	node := o.Nodes[n]
	shift := uint(3 * (o.MaxDepth - node.Depth))
	lo := morton(node.Min)
	count := h.count(lo, lo+uint64(1)<<shift)
	if count <= threshold || node.Depth == o.MaxDepth {
		o.Nodes[n].TriangleCount = count
		o.Nodes[n].LeafID = len(o.Leaves)
		o.Nodes[n].File = leafFileName(len(o.Leaves))
		o.Leaves = append(o.Leaves, n)
		return
	}
	o.Nodes[n].TriangleCount = count
	half := uint32(1) << (o.MaxDepth - node.Depth - 1)
	for k := 0; k < 8; k++ {
		c := node.Min
		for axis := 0; axis < 3; axis++ {
			if k&(4>>axis) != 0 {
				c[axis] += half
			}
		}
		clo := morton(c)
		if h.count(clo, clo+uint64(1)<<(shift-3)) == 0 {
			continue
		}
		child := len(o.Nodes)
		o.Nodes = append(o.Nodes, newNode(n, node.Depth+1, c))
		o.Nodes[n].Children[k] = child
		o.split(child, h, threshold)
	}
}

// leafWriter appends records to one leaf file.
type leafWriter struct {
	f *os.File
	w *bufio.Writer
}

func (lw *leafWriter) close() error {
	err := lw.w.Flush()
	if cerr := lw.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Dispatch re-reads src and appends every triangle to the file of its
// leaf. Files are written under temporary names and renamed only once
// every leaf received exactly the number of triangles the count pass
// predicted; on any mismatch nothing is left behind and
// ErrStructureMismatch is returned.
func Dispatch(o *OEMM, src Source, bufferSize int) (err error) {
	if bufferSize <= 0 {
		bufferSize = 64 << 10
	}
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return fmt.Errorf("oemm: dispatch: %w", err)
	}
	tmp := func(id int) string {
		return filepath.Join(o.Dir, leafFileName(id)+".tmp")
	}
	open := make(map[int]*leafWriter)
	var order []int
	defer func() {
		for _, lw := range open {
			if cerr := lw.close(); err == nil && cerr != nil {
				err = fmt.Errorf("oemm: dispatch: %w", cerr)
			}
		}
		if err != nil {
			for id := range o.Leaves {
				os.Remove(tmp(id))
			}
		}
	}()
	// Every leaf gets a file, even when empty.
	for id := range o.Leaves {
		f, err := os.Create(tmp(id))
		if err != nil {
			return fmt.Errorf("oemm: dispatch: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("oemm: dispatch: %w", err)
		}
	}
	writer := func(id int) (*leafWriter, error) {
		if lw, ok := open[id]; ok {
			return lw, nil
		}
		if len(order) >= maxOpenLeaves {
			old := order[0]
			order = order[1:]
			lw := open[old]
			delete(open, old)
			if err := lw.close(); err != nil {
				return nil, err
			}
		}
		f, err := os.OpenFile(tmp(id), os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		lw := &leafWriter{f: f, w: bufio.NewWriterSize(f, bufferSize)}
		open[id] = lw
		order = append(order, id)
		return lw, nil
	}

	got := make([]int, len(o.Leaves))
	err = src.Each(func(t kernel.Triangle) error {
		id, err := o.leafOf(o.cell(t.Centroid()))
		if err != nil {
			return err
		}
		got[id]++
		if got[id] > o.Nodes[o.Leaves[id]].TriangleCount {
			return fmt.Errorf("%w: leaf %d receives more than %d triangles", ErrStructureMismatch, id, o.Nodes[o.Leaves[id]].TriangleCount)
		}
		lw, err := writer(id)
		if err != nil {
			return err
		}
		return writeRecord(lw.w, t)
	})
	if err != nil {
		if !errors.Is(err, ErrStructureMismatch) {
			err = fmt.Errorf("oemm: dispatch: %w", err)
		}
		return err
	}
	for id, n := range got {
		if want := o.Nodes[o.Leaves[id]].TriangleCount; n != want {
			return fmt.Errorf("%w: leaf %d received %d triangles, expected %d", ErrStructureMismatch, id, n, want)
		}
	}
	for id, lw := range open {
		delete(open, id)
		if err := lw.close(); err != nil {
			return fmt.Errorf("oemm: dispatch: %w", err)
		}
	}
	for id := range o.Leaves {
		if err := os.Rename(tmp(id), filepath.Join(o.Dir, leafFileName(id))); err != nil {
			return fmt.Errorf("oemm: dispatch: %w", err)
		}
	}
	logger.Named("oemm").Info("triangles dispatched",
		zap.String("dir", o.Dir),
		zap.Int("leaves", len(o.Leaves)))
	return nil
}

// IndexOEMM computes the distinct vertex count of every leaf, refreshes
// the aggregated counts and writes the structure file.
func IndexOEMM(o *OEMM) error {
	for id, n := range o.Leaves {
		node := &o.Nodes[n]
		distinct := make(map[v3.Vec]struct{})
		count := 0
		err := readLeafFile(o.leafPath(node), func(t kernel.Triangle) error {
			for _, p := range t {
				distinct[p] = struct{}{}
			}
			count++
			return nil
		})
		if err != nil {
			return fmt.Errorf("oemm: index leaf %d: %w", id, err)
		}
		if count != node.TriangleCount {
			return fmt.Errorf("%w: leaf %d holds %d triangles, expected %d", ErrStructureMismatch, id, count, node.TriangleCount)
		}
		node.VertexCount = len(distinct)
	}
	o.Aggregate()
	return o.Save()
}
