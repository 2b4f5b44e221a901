package bvh

import (
	"math/bits"
	"sort"

	"github.com/geodex/spindle/exec"
)

// Child references are sign-encoded int32 values: a reference >= 0 indexes
// the inner node array while a reference < 0 addresses leaf slot -(ref+1).
func leafRef(leaf int32) int32 { return -leaf - 1 }

func isLeafRef(ref int32) bool { return ref < 0 }

func leafIndex(ref int32) int32 { return -ref - 1 }

// radixTree is the intermediate binary tree raised over the morton-sorted
// boxes. For n leaves it has exactly n-1 inner nodes and inner node 0 is
// always the root. The tree only lives for the duration of one Build; the
// emitter flattens it and the scratch arrays are dropped.
type radixTree struct {
	numLeaves int

	codes []uint32 // morton codes in sorted order, one per leaf
	perm  []int32  // sorted leaf slot -> original box index

	left  []int32 // child references per inner node
	right []int32

	parent     []int32 // parent inner node per inner node, -1 at the root
	leafParent []int32 // parent inner node per leaf
}

// sortByMorton orders the box indices by (morton code, original index) and
// returns the permutation together with the reordered codes. The index
// tie-break keeps builds deterministic when distinct boxes share a code.
func sortByMorton(codes []uint32) (perm []int32, sorted []uint32) {
	n := len(codes)

	perm = make([]int32, n)
	for i := range perm {
		perm[i] = int32(i)
	}

	sort.Slice(perm, func(a, b int) bool {
		ca, cb := codes[perm[a]], codes[perm[b]]
		if ca != cb {
			return ca < cb
		}
		return perm[a] < perm[b]
	})

	sorted = make([]uint32, n)
	for k, p := range perm {
		sorted[k] = codes[p]
	}
	return perm, sorted
}

// newRadixTree builds the binary radix tree over the sorted codes. Every
// inner node is computed independently from the code array alone, so the
// whole construction is a single parallel-for over the n-1 inner nodes.
func newRadixTree(ex exec.Executor, sortedCodes []uint32, perm []int32) *radixTree {
	n := len(sortedCodes)
	numInner := n - 1

	t := &radixTree{
		numLeaves:  n,
		codes:      sortedCodes,
		perm:       perm,
		left:       make([]int32, numInner),
		right:      make([]int32, numInner),
		parent:     make([]int32, numInner),
		leafParent: make([]int32, n),
	}
	t.parent[0] = -1

	ex.For(numInner, func(i int) {
		t.buildNode(int32(i))
	})

	return t
}

// delta returns the length of the common bit prefix of the codes at slots i
// and j, or -1 when j falls outside the key range. Identical codes extend
// the comparison into the slot indices, which makes every augmented key
// unique and the split search well-defined for duplicate centroids.
func (t *radixTree) delta(i, j int32) int32 {
	if j < 0 || j >= int32(t.numLeaves) {
		return -1
	}

	ci, cj := t.codes[i], t.codes[j]
	if ci == cj {
		return 32 + int32(bits.LeadingZeros32(uint32(i)^uint32(j)))
	}
	return int32(bits.LeadingZeros32(ci ^ cj))
}

// buildNode determines the key range covered by inner node i, binary
// searches the split position inside it and links the two children. Each
// child's parent pointer is written exactly once, by this node.
func (t *radixTree) buildNode(i int32) {
	// The node's range grows away from the neighbor with the shorter
	// common prefix.
	d := int32(1)
	if t.delta(i, i+1) < t.delta(i, i-1) {
		d = -1
	}
	deltaMin := t.delta(i, i-d)

	// Locate the far end of the range: exponential probe, then bisect.
	lmax := int32(2)
	for t.delta(i, i+lmax*d) > deltaMin {
		lmax *= 2
	}

	var l int32
	for step := lmax / 2; step >= 1; step /= 2 {
		if t.delta(i, i+(l+step)*d) > deltaMin {
			l += step
		}
	}
	j := i + l*d

	// Bisect for the split: the last slot that shares the node's full
	// common prefix belongs to the left child.
	deltaNode := t.delta(i, j)
	var s int32
	step := l
	for {
		step = (step + 1) / 2
		if t.delta(i, i+(s+step)*d) > deltaNode {
			s += step
		}
		if step <= 1 {
			break
		}
	}

	gamma := i + s*d
	if d < 0 {
		gamma--
	}

	first, last := i, j
	if d < 0 {
		first, last = j, i
	}

	if first == gamma {
		t.left[i] = leafRef(gamma)
		t.leafParent[gamma] = i
	} else {
		t.left[i] = gamma
		t.parent[gamma] = i
	}

	if last == gamma+1 {
		t.right[i] = leafRef(gamma + 1)
		t.leafParent[gamma+1] = i
	} else {
		t.right[i] = gamma + 1
		t.parent[gamma+1] = i
	}
}
