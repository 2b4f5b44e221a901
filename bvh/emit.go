package bvh

import (
	"sync/atomic"

	"github.com/geodex/spindle/exec"
	"github.com/geodex/spindle/types"
)

// innerNode is one record of the flattened tree: the bounding boxes of both
// children plus the two sign-encoded child references (see leafRef). Packing
// the child boxes into the parent keeps a whole traversal step inside one
// record instead of chasing two child nodes.
type innerNode struct {
	leftMin  types.Vec3
	leftMax  types.Vec3
	rightMin types.Vec3
	rightMax types.Vec3

	left  int32
	right int32
}

func (n *innerNode) leftBox() AABB { return AABB{Min: n.leftMin, Max: n.leftMax} }

func (n *innerNode) rightBox() AABB { return AABB{Min: n.rightMin, Max: n.rightMax} }

// flatTree is the emitted, query-ready index. Once installed it is strictly
// read-only; any number of traversals may run over it concurrently.
type flatTree struct {
	dim      int
	numItems int // caller-supplied item count, excludes the padding leaf

	inner  []innerNode
	leaves []int32 // leaf slot -> original box index
	bounds AABB    // union of the input boxes, before scale expansion
}

// emitTree flattens the radix tree into the inner node array. leafBoxes
// holds the scale-expanded input boxes in sorted leaf order.
//
// The bottom-up combination starts one walker per leaf. Every inner node is
// reached exactly twice, once from each child, and only the second walker to
// arrive, observed through the node's atomic visit counter, combines the two
// child boxes and climbs on. The counter also orders memory: a parent box is
// never read before both child boxes have been written.
func emitTree(ex exec.Executor, t *radixTree, leafBoxes []AABB) []innerNode {
	numInner := t.numLeaves - 1

	innerBox := make([]AABB, numInner)
	visits := make([]int32, numInner)

	childBox := func(ref int32) AABB {
		if isLeafRef(ref) {
			return leafBoxes[leafIndex(ref)]
		}
		return innerBox[ref]
	}

	ex.For(t.numLeaves, func(k int) {
		node := t.leafParent[k]
		for node >= 0 {
			if atomic.AddInt32(&visits[node], 1) == 1 {
				// First arrival: the sibling subtree is not done yet.
				return
			}
			innerBox[node] = childBox(t.left[node]).Union(childBox(t.right[node]))
			node = t.parent[node]
		}
	})

	inner := make([]innerNode, numInner)
	ex.For(numInner, func(i int) {
		lb := childBox(t.left[i])
		rb := childBox(t.right[i])
		inner[i] = innerNode{
			leftMin:  lb.Min,
			leftMax:  lb.Max,
			rightMin: rb.Min,
			rightMax: rb.Max,
			left:     t.left[i],
			right:    t.right[i],
		}
	})

	return inner
}
