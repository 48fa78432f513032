package oemm

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/tessera/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gopkg.in/yaml.v3"
)

const structureVersion = 1

type structureDoc struct {
	Version  int          `yaml:"version"`
	Min      [3]float64   `yaml:"min,flow"`
	Max      [3]float64   `yaml:"max,flow"`
	MaxDepth int          `yaml:"max_depth"`
	Nodes    []nodeRecord `yaml:"nodes"`
}

type nodeRecord struct {
	Depth     int       `yaml:"depth"`
	Min       [3]uint32 `yaml:"min,flow"`
	Children  []int     `yaml:"children,flow,omitempty"`
	Leaf      int       `yaml:"leaf"`
	Triangles int       `yaml:"triangles"`
	Vertices  int       `yaml:"vertices"`
	File      string    `yaml:"file,omitempty"`
}

// Save writes the structure file of o.
func (o *OEMM) Save() error {
	doc := structureDoc{
		Version:  structureVersion,
		Min:      [3]float64{o.Bounds.Min.X, o.Bounds.Min.Y, o.Bounds.Min.Z},
		Max:      [3]float64{o.Bounds.Max.X, o.Bounds.Max.Y, o.Bounds.Max.Z},
		MaxDepth: o.MaxDepth,
		Nodes:    make([]nodeRecord, len(o.Nodes)),
	}
	for i := range o.Nodes {
		n := &o.Nodes[i]
		r := nodeRecord{
			Depth:     n.Depth,
			Min:       n.Min,
			Leaf:      n.LeafID,
			Triangles: n.TriangleCount,
			Vertices:  n.VertexCount,
			File:      n.File,
		}
		if !n.IsLeaf() {
			r.Children = n.Children[:]
		}
		doc.Nodes[i] = r
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("oemm: marshal structure: %w", err)
	}
	path := filepath.Join(o.Dir, StructureFile)
	if err := os.WriteFile(path+".tmp", data, 0o644); err != nil {
		return fmt.Errorf("oemm: write structure: %w", err)
	}
	if err := os.Rename(path+".tmp", path); err != nil {
		return fmt.Errorf("oemm: write structure: %w", err)
	}
	return nil
}

// ReadStructure loads the octree stored in dir. Leaf data stays on disk.
func ReadStructure(dir string) (*OEMM, error) {
	data, err := os.ReadFile(filepath.Join(dir, StructureFile))
	if err != nil {
		return nil, fmt.Errorf("oemm: read structure: %w", err)
	}
	var doc structureDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("oemm: parse structure: %w", err)
	}
	if doc.Version != structureVersion {
		return nil, fmt.Errorf("oemm: unsupported structure version %d", doc.Version)
	}
	if len(doc.Nodes) == 0 {
		return nil, fmt.Errorf("oemm: structure has no root")
	}
	if doc.MaxDepth < 0 || doc.MaxDepth > MaxDepthLimit {
		return nil, fmt.Errorf("oemm: structure max depth %d outside [0, %d]", doc.MaxDepth, MaxDepthLimit)
	}
	o := &OEMM{
		Dir: dir,
		Bounds: sdf.Box3{
			Min: v3.Vec{X: doc.Min[0], Y: doc.Min[1], Z: doc.Min[2]},
			Max: v3.Vec{X: doc.Max[0], Y: doc.Max[1], Z: doc.Max[2]},
		},
		MaxDepth: doc.MaxDepth,
		Nodes:    make([]Node, len(doc.Nodes)),
	}
	for i, r := range doc.Nodes {
		if r.Depth < 0 || r.Depth > doc.MaxDepth {
			return nil, fmt.Errorf("oemm: node %d has depth %d, max %d", i, r.Depth, doc.MaxDepth)
		}
		n := newNode(-1, r.Depth, r.Min)
		n.LeafID = r.Leaf
		n.TriangleCount = r.Triangles
		n.VertexCount = r.Vertices
		n.File = r.File
		if len(r.Children) > 0 {
			if len(r.Children) != 8 {
				return nil, fmt.Errorf("oemm: node %d has %d child slots", i, len(r.Children))
			}
			copy(n.Children[:], r.Children)
		}
		o.Nodes[i] = n
	}
	leaves := 0
	for i := range o.Nodes {
		n := &o.Nodes[i]
		if n.IsLeaf() {
			leaves++
			continue
		}
		for _, c := range n.Children {
			if c < 0 {
				continue
			}
			if c <= i || c >= len(o.Nodes) || o.Nodes[c].Parent >= 0 {
				return nil, fmt.Errorf("oemm: node %d has invalid child %d", i, c)
			}
			o.Nodes[c].Parent = i
		}
	}
	o.Leaves = make([]int, leaves)
	for i := range o.Leaves {
		o.Leaves[i] = -1
	}
	for i := range o.Nodes {
		n := &o.Nodes[i]
		if !n.IsLeaf() {
			continue
		}
		if n.LeafID >= leaves || n.File == "" {
			return nil, fmt.Errorf("oemm: node %d has invalid leaf %d", i, n.LeafID)
		}
		if prev := o.Leaves[n.LeafID]; prev >= 0 {
			return nil, fmt.Errorf("oemm: nodes %d and %d share leaf %d", prev, i, n.LeafID)
		}
		o.Leaves[n.LeafID] = i
	}
	return o, nil
}

func readLeafFile(path string, fn func(t kernel.Triangle) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return readRecords(bufio.NewReader(f), fn)
}

// ReadLeaf returns the triangles stored in leaf id.
func ReadLeaf(o *OEMM, id int) ([]kernel.Triangle, error) {
	n, err := o.Leaf(id)
	if err != nil {
		return nil, err
	}
	out := make([]kernel.Triangle, 0, n.TriangleCount)
	err = readLeafFile(o.leafPath(n), func(t kernel.Triangle) error {
		out = append(out, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("oemm: read leaf %d: %w", id, err)
	}
	return out, nil
}

// WriteLeaf replaces the content of leaf id and updates its counts.
// Aggregated counts of the ancestors are left to Aggregate.
func WriteLeaf(o *OEMM, id int, tris []kernel.Triangle) (err error) {
	n, err := o.Leaf(id)
	if err != nil {
		return err
	}
	path := o.leafPath(n)
	f, err := os.Create(path + ".tmp")
	if err != nil {
		return fmt.Errorf("oemm: write leaf %d: %w", id, err)
	}
	defer func() {
		if err != nil {
			os.Remove(path + ".tmp")
		}
	}()
	w := bufio.NewWriter(f)
	distinct := make(map[v3.Vec]struct{}, len(tris))
	for _, t := range tris {
		if err = writeRecord(w, t); err != nil {
			f.Close()
			return fmt.Errorf("oemm: write leaf %d: %w", id, err)
		}
		for _, p := range t {
			distinct[p] = struct{}{}
		}
	}
	err = errors.Join(w.Flush(), f.Close())
	if err == nil {
		err = os.Rename(path+".tmp", path)
	}
	if err != nil {
		return fmt.Errorf("oemm: write leaf %d: %w", id, err)
	}
	n.TriangleCount = len(tris)
	n.VertexCount = len(distinct)
	return nil
}
