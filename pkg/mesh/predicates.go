package mesh

import (
	"math"
	"math/big"
)

// iccErrBound is the static relative error bound of the floating point
// in-circle determinant with exact inputs.
var iccErrBound = (10 + 96*epsilon) * epsilon

const epsilon = 1.0 / (1 << 53)

// Orient returns twice the signed area of (a, b, c) on the quantized
// grid: positive when counter-clockwise, zero when aligned. Grid
// coordinates are below 2^30 so the products cannot overflow.
func Orient(a, b, c *Vertex) int64 {
	return (b.ix-a.ix)*(c.iy-a.iy) - (b.iy-a.iy)*(c.ix-a.ix)
}

// OrientPoint is Orient with a raw grid point as third argument.
func OrientPoint(a, b *Vertex, x, y int64) int64 {
	return (b.ix-a.ix)*(y-a.iy) - (b.iy-a.iy)*(x-a.ix)
}

// InCircle returns a positive value when d lies strictly inside the
// circle through the counter-clockwise triangle (a, b, c), negative when
// outside and zero when cocircular. The sign is exact.
func InCircle(a, b, c, d *Vertex) int {
	adx, ady := float64(a.ix-d.ix), float64(a.iy-d.iy)
	bdx, bdy := float64(b.ix-d.ix), float64(b.iy-d.iy)
	cdx, cdy := float64(c.ix-d.ix), float64(c.iy-d.iy)

	bdxcdy, cdxbdy := bdx*cdy, cdx*bdy
	cdxady, adxcdy := cdx*ady, adx*cdy
	adxbdy, bdxady := adx*bdy, bdx*ady
	alift := adx*adx + ady*ady
	blift := bdx*bdx + bdy*bdy
	clift := cdx*cdx + cdy*cdy

	det := alift*(bdxcdy-cdxbdy) + blift*(cdxady-adxcdy) + clift*(adxbdy-bdxady)
	permanent := (math.Abs(bdxcdy)+math.Abs(cdxbdy))*alift +
		(math.Abs(cdxady)+math.Abs(adxcdy))*blift +
		(math.Abs(adxbdy)+math.Abs(bdxady))*clift
	if bound := iccErrBound * permanent; det > bound {
		return 1
	} else if -det > bound {
		return -1
	}
	return inCircleExact(a, b, c, d)
}

func inCircleExact(a, b, c, d *Vertex) int {
	coord := func(v, ref int64) *big.Int { return big.NewInt(v - ref) }
	adx, ady := coord(a.ix, d.ix), coord(a.iy, d.iy)
	bdx, bdy := coord(b.ix, d.ix), coord(b.iy, d.iy)
	cdx, cdy := coord(c.ix, d.ix), coord(c.iy, d.iy)

	lift := func(x, y *big.Int) *big.Int {
		r := new(big.Int).Mul(x, x)
		return r.Add(r, new(big.Int).Mul(y, y))
	}
	cross := func(x0, y0, x1, y1 *big.Int) *big.Int {
		r := new(big.Int).Mul(x0, y1)
		return r.Sub(r, new(big.Int).Mul(y0, x1))
	}

	det := new(big.Int).Mul(lift(adx, ady), cross(bdx, bdy, cdx, cdy))
	det.Add(det, new(big.Int).Mul(lift(bdx, bdy), cross(cdx, cdy, adx, ady)))
	det.Add(det, new(big.Int).Mul(lift(cdx, cdy), cross(adx, ady, bdx, bdy)))
	return det.Sign()
}

// SegmentsCross reports whether the open segments (a, b) and (c, d)
// properly intersect on the grid.
func SegmentsCross(a, b, c, d *Vertex) bool {
	o1 := sign(Orient(a, b, c))
	o2 := sign(Orient(a, b, d))
	o3 := sign(Orient(c, d, a))
	o4 := sign(Orient(c, d, b))
	return o1*o2 < 0 && o3*o4 < 0
}

func sign(x int64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
