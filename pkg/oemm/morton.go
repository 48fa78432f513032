package oemm

// spread inserts two zero bits between each of the low 21 bits of x.
func spread(x uint32) uint64 {
	v := uint64(x) & 0x1fffff
	v = (v | v<<32) & 0x1f00000000ffff
	v = (v | v<<16) & 0x1f0000ff0000ff
	v = (v | v<<8) & 0x100f00f00f00f00f
	v = (v | v<<4) & 0x10c30c30c30c30c3
	v = (v | v<<2) & 0x1249249249249249
	return v
}

// morton interleaves cell coordinates, x in the highest bit of each
// triple, so that the codes of an octant's descendants are contiguous
// and child k of a node holds the codes whose next triple equals k.
func morton(c [3]uint32) uint64 {
	return spread(c[0])<<2 | spread(c[1])<<1 | spread(c[2])
}
