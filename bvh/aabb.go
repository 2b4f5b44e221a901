package bvh

import (
	"math"

	"github.com/geodex/spindle/types"
)

// An AABB is an axis-aligned bounding box described by its two extreme
// corners. Boxes are plain values and are copied freely. Degenerate
// (zero-volume) boxes are legal; 2D boxes keep a zero z extent.
type AABB struct {
	Min types.Vec3
	Max types.Vec3
}

// NewAABB defines a box from its two corners.
func NewAABB(min, max types.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// EmptyAABB returns the inverted box that acts as the identity value for
// Union: its corners are placed at the opposite infinities so any union
// snaps to the other operand.
func EmptyAABB() AABB {
	return AABB{
		Min: types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

// Union returns the smallest box enclosing both operands.
func (b AABB) Union(other AABB) AABB {
	return AABB{
		Min: types.MinVec3(b.Min, other.Min),
		Max: types.MaxVec3(b.Max, other.Max),
	}
}

// ExpandPoint grows the box just enough to enclose p.
func (b AABB) ExpandPoint(p types.Vec3) AABB {
	return AABB{
		Min: types.MinVec3(b.Min, p),
		Max: types.MaxVec3(b.Max, p),
	}
}

// Center returns the box centroid.
func (b AABB) Center() types.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Extent returns the per-axis side lengths.
func (b AABB) Extent() types.Vec3 {
	return b.Max.Sub(b.Min)
}

// Contains reports whether p lies inside the box, boundary included.
func (b AABB) Contains(p types.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// Overlaps reports whether the two boxes share any point, boundaries
// included.
func (b AABB) Overlaps(other AABB) bool {
	return b.Min[0] <= other.Max[0] && b.Max[0] >= other.Min[0] &&
		b.Min[1] <= other.Max[1] && b.Max[1] >= other.Min[1] &&
		b.Min[2] <= other.Max[2] && b.Max[2] >= other.Min[2]
}

// Scale grows (or shrinks) the box by a multiplicative factor about its
// center. Factors below zero are clamped to zero. A zero-extent axis stays
// at zero extent.
func (b AABB) Scale(factor float32) AABB {
	if factor < 0 {
		factor = 0
	}

	c := b.Center()
	half := b.Max.Sub(b.Min).Mul(0.5 * factor)
	return AABB{
		Min: c.Sub(half),
		Max: c.Add(half),
	}
}
