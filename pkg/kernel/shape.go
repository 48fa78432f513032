package kernel

import (
	"fmt"
	"sort"
)

var shapes = map[string]func(k Kernel, size float64) Solid{
	"sphere": func(k Kernel, s float64) Solid { return k.Sphere(s / 2) },
	"box": func(k Kernel, s float64) Solid {
		return k.Translate(k.Box(s, s, s), -s/2, -s/2, -s/2)
	},
	// drilled is a centered cube with a through hole along Z.
	"drilled": func(k Kernel, s float64) Solid {
		box := k.Translate(k.Box(s, s, s), -s/2, -s/2, -s/2)
		return k.Difference(box, k.Cylinder(2*s, s/4))
	},
	// capsule is a cylinder capped by two spheres.
	"capsule": func(k Kernel, s float64) Solid {
		r := s / 4
		body := k.Cylinder(s-2*r, r)
		caps := k.Union(k.Translate(k.Sphere(r), 0, 0, s/2-r), k.Translate(k.Sphere(r), 0, 0, r-s/2))
		return k.Union(body, caps)
	},
}

// ShapeNames lists the names accepted by Shape.
func ShapeNames() []string {
	names := make([]string, 0, len(shapes))
	for n := range shapes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Shape builds a named test solid of overall size s centered at the
// origin. These solids feed the octree with soups of known extent.
func Shape(k Kernel, name string, s float64) (Solid, error) {
	f, ok := shapes[name]
	if !ok {
		return nil, fmt.Errorf("kernel: unknown shape %q, want one of %v", name, ShapeNames())
	}
	if !(s > 0) {
		return nil, fmt.Errorf("kernel: shape size must be positive, got %g", s)
	}
	return f(k, s), nil
}
