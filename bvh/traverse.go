package bvh

import "github.com/geodex/spindle/types"

// Traversals must work unchanged for thousands of concurrent query points,
// so the descent uses an explicit fixed-capacity stack instead of recursion
// and allocates nothing. 64 entries is far deeper than any radix tree over
// 32-bit morton keys can get.
const traversalStackSize = 64

// traverse descends the flattened tree for one query value. At every inner
// node the two predicates decide whether the query interacts with the left
// and right child volume; matching inner children are pushed, matching leaf
// children invoke action with the leaf slot. The tree is read-only here, so
// any number of traversals may run concurrently.
func traverse[Q any](inner []innerNode, q Q, left, right func(Q, AABB) bool, action func(leaf int32)) {
	var stack [traversalStackSize]int32
	stack[0] = 0
	sp := 1

	for sp > 0 {
		sp--
		node := &inner[stack[sp]]

		if left(q, node.leftBox()) {
			if isLeafRef(node.left) {
				action(leafIndex(node.left))
			} else {
				stack[sp] = node.left
				sp++
			}
		}

		if right(q, node.rightBox()) {
			if isLeafRef(node.right) {
				action(leafIndex(node.right))
			} else {
				stack[sp] = node.right
				sp++
			}
		}
	}
}

// pointInBox is the traversal predicate for point containment queries.
func pointInBox(p types.Vec3, box AABB) bool {
	return box.Contains(p)
}

// boxOverlaps is the traversal predicate for box overlap queries.
func boxOverlaps(q AABB, box AABB) bool {
	return q.Overlaps(box)
}
