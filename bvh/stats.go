package bvh

// Stats summarizes a built index.
type Stats struct {
	Dimension   int
	NumItems    int
	InnerNodes  int
	Leaves      int
	MaxDepth    int // deepest inner node, root at depth 1
	ScaleFactor float32
	Backend     string
}

// Stats walks the built tree and reports its shape. Valid only after a
// successful Build.
func (b *BVH) Stats() (Stats, error) {
	t := b.tree
	if t == nil {
		return Stats{}, ErrNotBuilt
	}

	type entry struct {
		node  int32
		depth int
	}

	maxDepth := 0
	stack := make([]entry, 0, traversalStackSize)
	stack = append(stack, entry{node: 0, depth: 1})
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if e.depth > maxDepth {
			maxDepth = e.depth
		}

		n := &t.inner[e.node]
		if !isLeafRef(n.left) {
			stack = append(stack, entry{node: n.left, depth: e.depth + 1})
		}
		if !isLeafRef(n.right) {
			stack = append(stack, entry{node: n.right, depth: e.depth + 1})
		}
	}

	return Stats{
		Dimension:   t.dim,
		NumItems:    t.numItems,
		InnerNodes:  len(t.inner),
		Leaves:      len(t.leaves),
		MaxDepth:    maxDepth,
		ScaleFactor: b.scaleFactor,
		Backend:     b.ex.Name(),
	}, nil
}
