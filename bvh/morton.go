package bvh

import "github.com/geodex/spindle/types"

// Morton codes are stored in 32 bits: 3D codes interleave 10 bits per axis
// (30 significant bits), 2D codes interleave 16 bits per axis. The widths
// trade code collisions against code size; duplicate codes are legal and are
// tie-broken by original item index when the radix tree is built.
const (
	mortonBits3D       = 10
	mortonResolution3D = 1 << mortonBits3D

	mortonBits2D       = 16
	mortonResolution2D = 1 << mortonBits2D
)

// expandBits2 spreads the low 16 bits of v so that one zero bit separates
// each original bit.
func expandBits2(v uint32) uint32 {
	v &= 0x0000ffff
	v = (v | (v << 8)) & 0x00ff00ff
	v = (v | (v << 4)) & 0x0f0f0f0f
	v = (v | (v << 2)) & 0x33333333
	v = (v | (v << 1)) & 0x55555555
	return v
}

// expandBits3 spreads the low 10 bits of v so that two zero bits separate
// each original bit.
func expandBits3(v uint32) uint32 {
	v &= 0x000003ff
	v = (v | (v << 16)) & 0x030000ff
	v = (v | (v << 8)) & 0x0300f00f
	v = (v | (v << 4)) & 0x030c30c3
	v = (v | (v << 2)) & 0x09249249
	return v
}

// morton2D interleaves two 16-bit cell coordinates into a 32-bit code.
func morton2D(x, y uint32) uint32 {
	return expandBits2(x) | expandBits2(y)<<1
}

// morton3D interleaves three 10-bit cell coordinates into a 30-bit code.
func morton3D(x, y, z uint32) uint32 {
	return expandBits3(x) | expandBits3(y)<<1 | expandBits3(z)<<2
}

// quantize maps a coordinate inside [min, min+extent] to a morton cell in
// [0, resolution). Zero-extent axes collapse to cell 0 so coincident
// centroids degrade to tie-break ordering instead of dividing by zero.
func quantize(v, min, extent float32, resolution uint32) uint32 {
	if extent <= 0 {
		return 0
	}

	cell := uint32(float32(resolution) * ((v - min) / extent))
	if cell >= resolution {
		cell = resolution - 1
	}
	return cell
}

// mortonCode encodes the centroid of a box, normalized against the global
// bounds, as a Z-order curve position of the configured dimension.
func mortonCode(centroid types.Vec3, bounds AABB, dim int) uint32 {
	extent := bounds.Extent()

	if dim == 2 {
		x := quantize(centroid[0], bounds.Min[0], extent[0], mortonResolution2D)
		y := quantize(centroid[1], bounds.Min[1], extent[1], mortonResolution2D)
		return morton2D(x, y)
	}

	x := quantize(centroid[0], bounds.Min[0], extent[0], mortonResolution3D)
	y := quantize(centroid[1], bounds.Min[1], extent[1], mortonResolution3D)
	z := quantize(centroid[2], bounds.Min[2], extent[2], mortonResolution3D)
	return morton3D(x, y, z)
}
