// Package mesh implements the in-core triangle mesh shared by the 2D
// Delaunay engine and the 3D decimation passes.
//
// There are no edge objects. An edge is a HalfEdge value, a triangle plus
// a local index in {0,1,2}; edge l of a triangle is opposite V[l] and runs
// from V[l+1] to V[l+2]. Adjacency is stored on triangles, so every
// navigation primitive is index arithmetic modulo 3 plus one pointer hop.
//
// Parametric (2D) meshes own a QuadTree over quantized coordinates and
// are closed by a fan of triangles around the conventional Outer vertex,
// so every edge has a symmetric edge. 3D meshes built by FromTriangles
// have no Outer vertex and may contain open edges whose Sym is nil.
package mesh
