package oemm

import (
	"fmt"

	"github.com/chazu/tessera/pkg/kernel"
	"github.com/chazu/tessera/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// LoadMesh reads the given leaves into one in-core mesh. Vertices with
// identical coordinates are merged across leaves and every triangle's
// Group is its leaf id.
func LoadMesh(o *OEMM, leaves []int) (*mesh.Mesh, error) {
	var soup [][3]v3.Vec
	var groups []int
	for _, id := range leaves {
		tris, err := ReadLeaf(o, id)
		if err != nil {
			return nil, err
		}
		for _, t := range tris {
			soup = append(soup, [3]v3.Vec(t))
			groups = append(groups, id)
		}
	}
	verts, idx := mesh.WeldSoup(soup)
	m, err := mesh.FromTriangles(verts, idx, groups)
	if err != nil {
		return nil, fmt.Errorf("oemm: load leaves %v: %w", leaves, err)
	}
	return m, nil
}

// StoreMesh writes the triangles of m back into the given leaves,
// routing each triangle by its Group. Every listed leaf is rewritten,
// and a triangle whose group is not listed is an error.
func StoreMesh(o *OEMM, m *mesh.Mesh, leaves []int) error {
	soup, groups := m.Soup()
	byLeaf := make(map[int][]kernel.Triangle, len(leaves))
	for _, id := range leaves {
		byLeaf[id] = nil
	}
	for i, t := range soup {
		tris, ok := byLeaf[groups[i]]
		if !ok {
			return fmt.Errorf("oemm: triangle in group %d outside leaves %v", groups[i], leaves)
		}
		byLeaf[groups[i]] = append(tris, kernel.Triangle(t))
	}
	for _, id := range leaves {
		if err := WriteLeaf(o, id, byLeaf[id]); err != nil {
			return err
		}
	}
	return nil
}
