package decimate

import v3 "github.com/deadsy/sdfx/vec/v3"

// quadric is the symmetric 4×4 matrix of a sum of squared plane
// distances, stored as its upper triangle.
type quadric [10]float64

// planeQuadric returns the quadric of the plane through p with unit
// normal n, scaled by w.
func planeQuadric(n v3.Vec, p v3.Vec, w float64) quadric {
	a, b, c := n.X, n.Y, n.Z
	d := -n.Dot(p)
	return quadric{
		w * a * a, w * a * b, w * a * c, w * a * d,
		w * b * b, w * b * c, w * b * d,
		w * c * c, w * c * d,
		w * d * d,
	}
}

func (q *quadric) add(r quadric) {
	for i := range q {
		q[i] += r[i]
	}
}

// eval returns the squared distance sum at p.
func (q *quadric) eval(p v3.Vec) float64 {
	x, y, z := p.X, p.Y, p.Z
	return q[0]*x*x + 2*q[1]*x*y + 2*q[2]*x*z + 2*q[3]*x +
		q[4]*y*y + 2*q[5]*y*z + 2*q[6]*y +
		q[7]*z*z + 2*q[8]*z +
		q[9]
}
