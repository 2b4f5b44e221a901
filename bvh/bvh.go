// Package bvh implements a linear bounding volume hierarchy: a spatial index
// built once over a set of axis-aligned boxes and then queried repeatedly,
// without locking, for the candidate items overlapping query points or
// boxes.
//
// The build sorts the boxes along a Z-order space-filling curve, raises a
// binary radix tree over the sorted morton codes and flattens it into two
// arrays: inner nodes carrying both child bounding boxes, and a leaf
// permutation back to the caller's item indices. Every build and query phase
// is a data-parallel loop over an exec.Executor, so the same code runs on a
// sequential loop or a worker pool and produces identical results.
package bvh

import (
	"sync/atomic"
	"time"

	"github.com/geodex/spindle/exec"
	"github.com/geodex/spindle/log"
	"github.com/geodex/spindle/types"
)

// DefaultScaleFactor is the multiplicative expansion applied to every leaf
// box before storage. The slack keeps query points that sit exactly on a box
// boundary from being lost to floating-point comparisons.
const DefaultScaleFactor = 1.001

// Config carries the tunables for a BVH instance.
type Config struct {
	// Dimension of the indexed boxes, 2 or 3. Zero selects 3.
	Dimension int

	// ScaleFactor expands each leaf box about its center before storage.
	// Zero selects DefaultScaleFactor; negative values are rejected.
	ScaleFactor float32

	// Executor runs the data-parallel build and query phases. Nil selects
	// the sequential backend.
	Executor exec.Executor
}

// BVH is the public index façade. It owns the flattened tree for its
// lifetime; Build replaces the whole tree, never patches it, and the
// installed tree is read-only so concurrent queries need no locking.
type BVH struct {
	dim         int
	scaleFactor float32
	ex          exec.Executor
	logger      log.Logger

	numItems int
	boxes    []float32

	tree *flatTree
}

// New creates an index over numItems boxes. Each box contributes
// 2*dimension values to boxes: the min corner then the max corner, per axis
// (3D: xmin ymin zmin xmax ymax zmax). The box data is captured by
// reference and read again on every Build.
func New(boxes []float32, numItems int, cfg Config) (*BVH, error) {
	if numItems <= 0 {
		return nil, ErrZeroItems
	}

	dim := cfg.Dimension
	if dim == 0 {
		dim = 3
	}
	if dim != 2 && dim != 3 {
		return nil, ErrInvalidDimension
	}

	if boxes == nil || len(boxes) != 2*dim*numItems {
		return nil, ErrBoxesLength
	}

	scale := cfg.ScaleFactor
	if scale == 0 {
		scale = DefaultScaleFactor
	}
	if scale < 0 {
		return nil, ErrInvalidScale
	}

	ex := cfg.Executor
	if ex == nil {
		ex = exec.NewSequential()
	}

	return &BVH{
		dim:         dim,
		scaleFactor: scale,
		ex:          ex,
		logger:      log.New("bvh"),
		numItems:    numItems,
		boxes:       boxes,
		tree:        nil,
	}, nil
}

// Build generates the index, replacing any previously built tree. The new
// tree is assembled off to the side and swapped in as the last step, so a
// caller never observes a half-written index.
//
// A single-item input is padded with a duplicate of its box so the tree
// always has at least two leaves; the duplicate is invisible to queries.
func (b *BVH) Build() error {
	start := time.Now()

	boxes := b.boxes
	numBoxes := b.numItems
	if b.numItems == 1 {
		recordLen := 2 * b.dim
		padded := make([]float32, 2*recordLen)
		copy(padded, boxes[:recordLen])
		copy(padded[recordLen:], boxes[:recordLen])
		boxes = padded
		numBoxes = 2
	}

	// Phase 1: decode the caller's flat coordinates into box values.
	items := make([]AABB, numBoxes)
	b.ex.For(numBoxes, func(i int) {
		items[i] = decodeBox(boxes, b.dim, i)
	})

	// Phase 2: global bounds, the union of all input boxes before any
	// scale expansion.
	bounds := exec.Reduce(b.ex, numBoxes, EmptyAABB(),
		func(i int) AABB { return items[i] },
		AABB.Union)

	// Phase 3: one morton code per box centroid.
	codes := make([]uint32, numBoxes)
	b.ex.For(numBoxes, func(i int) {
		codes[i] = mortonCode(items[i].Center(), bounds, b.dim)
	})

	// Phase 4: sort by code and raise the radix tree.
	perm, sorted := sortByMorton(codes)
	rt := newRadixTree(b.ex, sorted, perm)

	// Phase 5: scale-expanded leaf boxes in sorted order, then the
	// bottom-up emission into the flat node array.
	leafBoxes := make([]AABB, numBoxes)
	b.ex.For(numBoxes, func(k int) {
		leafBoxes[k] = items[perm[k]].Scale(b.scaleFactor)
	})
	inner := emitTree(b.ex, rt, leafBoxes)

	b.tree = &flatTree{
		dim:      b.dim,
		numItems: b.numItems,
		inner:    inner,
		leaves:   rt.perm,
		bounds:   bounds,
	}

	b.logger.Debugf(
		"build time: %d ms, backend: %s, items: %d, inner nodes: %d",
		time.Since(start).Nanoseconds()/1e6,
		b.ex.Name(), b.numItems, len(inner),
	)
	return nil
}

// Bounds returns the corners of the root bounding box, the union of all
// input boxes before scale expansion. Valid only after a successful Build.
func (b *BVH) Bounds() (min, max types.Vec3, err error) {
	if b.tree == nil {
		return types.Vec3{}, types.Vec3{}, ErrNotBuilt
	}
	return b.tree.bounds.Min, b.tree.bounds.Max, nil
}

// FindPoints returns the candidate items containing each query point in
// CSR form: the candidates for point i occupy
// candidates[offsets[i] : offsets[i]+counts[i]]. offsets and counts are
// caller-allocated with one slot per query point; z may be nil for a 2D
// index and is ignored when present on one.
//
// The query runs in two passes over identical traversals: a count pass
// sizes the exact candidate allocation, an exclusive scan turns counts into
// offsets, and a fill pass writes each point's candidates through a private
// cursor. Nothing mutable is shared across query points, so both passes
// parallelize over the whole batch.
func (b *BVH) FindPoints(offsets, counts []int32, x, y, z []float32) ([]int32, error) {
	t := b.tree
	if t == nil {
		return nil, ErrNotBuilt
	}

	if x == nil || y == nil || (b.dim == 3 && z == nil) {
		return nil, ErrNilCoords
	}
	if b.dim == 2 {
		z = nil
	}

	numPoints := len(x)
	if len(y) != numPoints || (z != nil && len(z) != numPoints) {
		return nil, ErrCoordsLength
	}
	if len(offsets) != numPoints || len(counts) != numPoints {
		return nil, ErrOutputSize
	}

	point := func(i int) types.Vec3 {
		p := types.Vec3{x[i], y[i], 0}
		if z != nil {
			p[2] = z[i]
		}
		return p
	}

	var total int64
	b.ex.For(numPoints, func(i int) {
		var count int32
		traverse(t.inner, point(i), pointInBox, pointInBox, func(leaf int32) {
			if int(t.leaves[leaf]) < t.numItems {
				count++
			}
		})
		counts[i] = count
		atomic.AddInt64(&total, int64(count))
	})

	exec.ExclusiveScan(counts[:numPoints], offsets[:numPoints])

	candidates := make([]int32, total)
	b.ex.For(numPoints, func(i int) {
		cursor := offsets[i]
		traverse(t.inner, point(i), pointInBox, pointInBox, func(leaf int32) {
			item := t.leaves[leaf]
			if int(item) < t.numItems {
				candidates[cursor] = item
				cursor++
			}
		})
	})

	return candidates, nil
}

// FindBoxes is the box-overlap variant of FindPoints: it returns, in the
// same CSR form, the candidate items whose boxes overlap each of the
// numQueries query boxes. queryBoxes uses the same flat min/max corner
// layout as New.
func (b *BVH) FindBoxes(offsets, counts []int32, queryBoxes []float32, numQueries int) ([]int32, error) {
	t := b.tree
	if t == nil {
		return nil, ErrNotBuilt
	}

	if numQueries < 0 || queryBoxes == nil || len(queryBoxes) != 2*b.dim*numQueries {
		return nil, ErrBoxesLength
	}
	if len(offsets) != numQueries || len(counts) != numQueries {
		return nil, ErrOutputSize
	}

	var total int64
	b.ex.For(numQueries, func(i int) {
		q := decodeBox(queryBoxes, b.dim, i)

		var count int32
		traverse(t.inner, q, boxOverlaps, boxOverlaps, func(leaf int32) {
			if int(t.leaves[leaf]) < t.numItems {
				count++
			}
		})
		counts[i] = count
		atomic.AddInt64(&total, int64(count))
	})

	exec.ExclusiveScan(counts[:numQueries], offsets[:numQueries])

	candidates := make([]int32, total)
	b.ex.For(numQueries, func(i int) {
		q := decodeBox(queryBoxes, b.dim, i)

		cursor := offsets[i]
		traverse(t.inner, q, boxOverlaps, boxOverlaps, func(leaf int32) {
			item := t.leaves[leaf]
			if int(item) < t.numItems {
				candidates[cursor] = item
				cursor++
			}
		})
	})

	return candidates, nil
}

// Traverse runs a single custom descent over the built tree. The left and
// right predicates decide whether the query interacts with a node's child
// volume; action receives the original index of every reachable item. Query
// shapes beyond points and boxes (rays, frustums) reuse the index this way.
func (b *BVH) Traverse(left, right func(AABB) bool, action func(item int32)) error {
	t := b.tree
	if t == nil {
		return ErrNotBuilt
	}
	if left == nil || right == nil || action == nil {
		return ErrNilPredicate
	}

	adapt := func(pred func(AABB) bool) func(struct{}, AABB) bool {
		return func(_ struct{}, box AABB) bool { return pred(box) }
	}

	traverse(t.inner, struct{}{}, adapt(left), adapt(right), func(leaf int32) {
		if item := t.leaves[leaf]; int(item) < t.numItems {
			action(item)
		}
	})
	return nil
}

// decodeBox reads the i-th box record out of a flat coordinate array. 2D
// records occupy four values and produce boxes with a zero z extent.
func decodeBox(boxes []float32, dim, i int) AABB {
	off := i * 2 * dim
	if dim == 2 {
		return AABB{
			Min: types.Vec3{boxes[off], boxes[off+1], 0},
			Max: types.Vec3{boxes[off+2], boxes[off+3], 0},
		}
	}
	return AABB{
		Min: types.Vec3{boxes[off], boxes[off+1], boxes[off+2]},
		Max: types.Vec3{boxes[off+3], boxes[off+4], boxes[off+5]},
	}
}
