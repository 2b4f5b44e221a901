package bvh

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/geodex/spindle/exec"
)

func TestFindPointsSeparatedCubes(t *testing.T) {
	boxes := []float32{
		0, 0, 0, 1, 1, 1,
		5, 5, 5, 6, 6, 6,
		10, 10, 10, 11, 11, 11,
	}

	type spec struct {
		point  [3]float32
		expSet []int32
	}
	specs := []spec{
		{[3]float32{0.5, 0.5, 0.5}, []int32{0}},
		{[3]float32{5.5, 5.5, 5.5}, []int32{1}},
		{[3]float32{10.5, 10.5, 10.5}, []int32{2}},
		{[3]float32{100, 100, 100}, []int32{}},
		{[3]float32{0, 0, 0}, []int32{0}},
	}

	index := mustBuild(t, boxes, 3, Config{})

	x := make([]float32, len(specs))
	y := make([]float32, len(specs))
	z := make([]float32, len(specs))
	for i, s := range specs {
		x[i], y[i], z[i] = s.point[0], s.point[1], s.point[2]
	}
	offsets := make([]int32, len(specs))
	counts := make([]int32, len(specs))

	candidates, err := index.FindPoints(offsets, counts, x, y, z)
	if err != nil {
		t.Fatalf("FindPoints failed: %v", err)
	}

	for i, s := range specs {
		got := candidateSet(candidates, offsets, counts, i)
		if !equalSets(got, s.expSet) {
			t.Fatalf("[spec %d] expected candidate set %v; got %v", i, s.expSet, got)
		}
	}
}

func TestFindPointsOverlapping2D(t *testing.T) {
	boxes := []float32{
		0, 0, 2, 2,
		1, 1, 3, 3,
	}

	index := mustBuild(t, boxes, 2, Config{Dimension: 2})

	x := []float32{1.5, 0.5, 2.5, 10}
	y := []float32{1.5, 0.5, 2.5, 10}
	offsets := make([]int32, len(x))
	counts := make([]int32, len(x))

	candidates, err := index.FindPoints(offsets, counts, x, y, nil)
	if err != nil {
		t.Fatalf("FindPoints failed: %v", err)
	}

	expSets := [][]int32{{0, 1}, {0}, {1}, {}}
	for i, exp := range expSets {
		got := candidateSet(candidates, offsets, counts, i)
		if !equalSets(got, exp) {
			t.Fatalf("[point %d] expected candidate set %v; got %v", i, exp, got)
		}
	}
}

func TestSingleItem(t *testing.T) {
	boxes := []float32{1, 1, 1, 2, 2, 2}

	index := mustBuild(t, boxes, 1, Config{})

	min, max, err := index.Bounds()
	if err != nil {
		t.Fatalf("Bounds failed: %v", err)
	}
	if min != [3]float32{1, 1, 1} || max != [3]float32{2, 2, 2} {
		t.Fatalf("expected bounds (1,1,1)-(2,2,2); got %v-%v", min, max)
	}

	x := []float32{1.5, 0}
	y := []float32{1.5, 0}
	z := []float32{1.5, 0}
	offsets := make([]int32, 2)
	counts := make([]int32, 2)

	candidates, err := index.FindPoints(offsets, counts, x, y, z)
	if err != nil {
		t.Fatalf("FindPoints failed: %v", err)
	}

	if counts[0] != 1 || candidates[offsets[0]] != 0 {
		t.Fatalf("expected single candidate 0 for inside point; got counts=%v candidates=%v", counts, candidates)
	}
	if counts[1] != 0 {
		t.Fatalf("expected no candidates for outside point; got %d", counts[1])
	}
}

func TestCoincidentBoxes(t *testing.T) {
	// Identical boxes produce identical morton codes; the build must
	// degrade to index tie-breaking, not fail.
	const numBoxes = 17

	boxes := make([]float32, 0, numBoxes*6)
	expSet := make([]int32, numBoxes)
	for i := 0; i < numBoxes; i++ {
		boxes = append(boxes, 0, 0, 0, 1, 1, 1)
		expSet[i] = int32(i)
	}

	index := mustBuild(t, boxes, numBoxes, Config{})

	offsets := make([]int32, 1)
	counts := make([]int32, 1)
	candidates, err := index.FindPoints(offsets, counts, []float32{0.5}, []float32{0.5}, []float32{0.5})
	if err != nil {
		t.Fatalf("FindPoints failed: %v", err)
	}

	got := candidateSet(candidates, offsets, counts, 0)
	if !equalSets(got, expSet) {
		t.Fatalf("expected all %d coincident boxes as candidates; got %v", numBoxes, got)
	}
}

func TestCompletenessAndSoundness(t *testing.T) {
	// Candidate sets must contain every box that holds the query point
	// (completeness) and nothing whose expanded box misses it (soundness).
	rng := rand.New(rand.NewSource(42))

	const numBoxes = 300
	const numPoints = 200

	boxes := randomBoxes(rng, numBoxes, 3)
	index := mustBuild(t, boxes, numBoxes, Config{Executor: exec.NewParallel(4)})

	x := make([]float32, numPoints)
	y := make([]float32, numPoints)
	z := make([]float32, numPoints)
	for i := 0; i < numPoints; i++ {
		x[i] = rng.Float32() * 100
		y[i] = rng.Float32() * 100
		z[i] = rng.Float32() * 100
	}

	offsets := make([]int32, numPoints)
	counts := make([]int32, numPoints)
	candidates, err := index.FindPoints(offsets, counts, x, y, z)
	if err != nil {
		t.Fatalf("FindPoints failed: %v", err)
	}

	// CSR laws.
	var sum int32
	for i := 0; i < numPoints; i++ {
		if offsets[i] != sum {
			t.Fatalf("offsets[%d] = %d; expected prefix sum %d", i, offsets[i], sum)
		}
		sum += counts[i]
	}
	if int(sum) != len(candidates) {
		t.Fatalf("sum(counts) = %d but len(candidates) = %d", sum, len(candidates))
	}

	for i := 0; i < numPoints; i++ {
		got := candidateSet(candidates, offsets, counts, i)
		p := [3]float32{x[i], y[i], z[i]}

		inSet := make(map[int32]bool, len(got))
		for _, c := range got {
			inSet[c] = true
		}

		for bi := 0; bi < numBoxes; bi++ {
			box := decodeBox(boxes, 3, bi)
			if box.Contains(p) && !inSet[int32(bi)] {
				t.Fatalf("[point %d] box %d contains %v but is missing from candidates %v", i, bi, p, got)
			}
		}

		for _, c := range got {
			box := decodeBox(boxes, 3, int(c)).Scale(DefaultScaleFactor)
			if !box.Contains(p) {
				t.Fatalf("[point %d] candidate %d does not contain %v even after expansion", i, c, p)
			}
		}
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	const numBoxes = 64
	boxes := randomBoxes(rng, numBoxes, 3)
	index := mustBuild(t, boxes, numBoxes, Config{})

	x := []float32{10, 50, 90}
	y := []float32{10, 50, 90}
	z := []float32{10, 50, 90}
	offsets := make([]int32, 3)
	counts := make([]int32, 3)

	first, err := index.FindPoints(offsets, counts, x, y, z)
	if err != nil {
		t.Fatalf("FindPoints failed: %v", err)
	}
	firstSets := allSets(first, offsets, counts)

	if err = index.Build(); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}

	second, err := index.FindPoints(offsets, counts, x, y, z)
	if err != nil {
		t.Fatalf("FindPoints after rebuild failed: %v", err)
	}
	secondSets := allSets(second, offsets, counts)

	for i := range firstSets {
		if !equalSets(firstSets[i], secondSets[i]) {
			t.Fatalf("[point %d] rebuild changed candidate set from %v to %v", i, firstSets[i], secondSets[i])
		}
	}
}

func TestBackendsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(99))

	const numBoxes = 200
	const numPoints = 100

	boxes := randomBoxes(rng, numBoxes, 3)

	x := make([]float32, numPoints)
	y := make([]float32, numPoints)
	z := make([]float32, numPoints)
	for i := range x {
		x[i] = rng.Float32() * 100
		y[i] = rng.Float32() * 100
		z[i] = rng.Float32() * 100
	}

	var sets [][][]int32
	for _, ex := range []exec.Executor{exec.NewSequential(), exec.NewParallel(0), exec.NewParallel(3)} {
		index := mustBuild(t, boxes, numBoxes, Config{Executor: ex})

		offsets := make([]int32, numPoints)
		counts := make([]int32, numPoints)
		candidates, err := index.FindPoints(offsets, counts, x, y, z)
		if err != nil {
			t.Fatalf("[%s] FindPoints failed: %v", ex.Name(), err)
		}
		sets = append(sets, allSets(candidates, offsets, counts))
	}

	for b := 1; b < len(sets); b++ {
		for i := range sets[0] {
			if !equalSets(sets[0][i], sets[b][i]) {
				t.Fatalf("[point %d] backends disagree: %v vs %v", i, sets[0][i], sets[b][i])
			}
		}
	}
}

func TestFindBoxes(t *testing.T) {
	rng := rand.New(rand.NewSource(123))

	const numBoxes = 150
	const numQueries = 60

	boxes := randomBoxes(rng, numBoxes, 3)
	queries := randomBoxes(rng, numQueries, 3)

	index := mustBuild(t, boxes, numBoxes, Config{Executor: exec.NewParallel(4)})

	offsets := make([]int32, numQueries)
	counts := make([]int32, numQueries)
	candidates, err := index.FindBoxes(offsets, counts, queries, numQueries)
	if err != nil {
		t.Fatalf("FindBoxes failed: %v", err)
	}

	for i := 0; i < numQueries; i++ {
		got := candidateSet(candidates, offsets, counts, i)
		q := decodeBox(queries, 3, i)

		inSet := make(map[int32]bool, len(got))
		for _, c := range got {
			inSet[c] = true
		}

		for bi := 0; bi < numBoxes; bi++ {
			box := decodeBox(boxes, 3, bi)
			if q.Overlaps(box) && !inSet[int32(bi)] {
				t.Fatalf("[query %d] box %d overlaps but is missing from candidates %v", i, bi, got)
			}
		}
		for _, c := range got {
			box := decodeBox(boxes, 3, int(c)).Scale(DefaultScaleFactor)
			if !q.Overlaps(box) {
				t.Fatalf("[query %d] candidate %d does not overlap even after expansion", i, c)
			}
		}
	}
}

func TestTraverse(t *testing.T) {
	boxes := []float32{
		0, 0, 0, 1, 1, 1,
		5, 5, 5, 6, 6, 6,
		10, 10, 10, 11, 11, 11,
	}
	index := mustBuild(t, boxes, 3, Config{})

	// Predicates that accept everything must visit every item exactly once.
	visited := make(map[int32]int)
	all := func(AABB) bool { return true }
	err := index.Traverse(all, all, func(item int32) { visited[item]++ })
	if err != nil {
		t.Fatalf("Traverse failed: %v", err)
	}
	for i := int32(0); i < 3; i++ {
		if visited[i] != 1 {
			t.Fatalf("expected item %d to be visited once; got %d", i, visited[i])
		}
	}

	if err = index.Traverse(nil, all, func(int32) {}); !errors.Is(err, ErrNilPredicate) {
		t.Fatalf("expected ErrNilPredicate; got %v", err)
	}
}

func TestPreconditionErrors(t *testing.T) {
	validBoxes := []float32{0, 0, 0, 1, 1, 1}

	type spec struct {
		boxes    []float32
		numItems int
		cfg      Config
		expErr   error
	}
	specs := []spec{
		{nil, 1, Config{}, ErrBoxesLength},
		{validBoxes, 0, Config{}, ErrZeroItems},
		{validBoxes, -1, Config{}, ErrZeroItems},
		{validBoxes, 1, Config{Dimension: 4}, ErrInvalidDimension},
		{validBoxes, 2, Config{}, ErrBoxesLength},
		{validBoxes, 1, Config{ScaleFactor: -1}, ErrInvalidScale},
	}

	for i, s := range specs {
		if _, err := New(s.boxes, s.numItems, s.cfg); !errors.Is(err, s.expErr) {
			t.Fatalf("[spec %d] expected error %v; got %v", i, s.expErr, err)
		}
	}
}

func TestQueryErrors(t *testing.T) {
	boxes := []float32{0, 0, 0, 1, 1, 1}
	index, err := New(boxes, 1, Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	offsets := make([]int32, 1)
	counts := make([]int32, 1)
	one := []float32{0.5}

	if _, err = index.FindPoints(offsets, counts, one, one, one); !errors.Is(err, ErrNotBuilt) {
		t.Fatalf("expected ErrNotBuilt before Build; got %v", err)
	}
	if _, _, err = index.Bounds(); !errors.Is(err, ErrNotBuilt) {
		t.Fatalf("expected ErrNotBuilt from Bounds; got %v", err)
	}

	if err = index.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	type spec struct {
		offsets, counts []int32
		x, y, z         []float32
		expErr          error
	}
	specs := []spec{
		{offsets, counts, nil, one, one, ErrNilCoords},
		{offsets, counts, one, nil, one, ErrNilCoords},
		{offsets, counts, one, one, nil, ErrNilCoords},
		{offsets, counts, one, []float32{0.5, 0.6}, one, ErrCoordsLength},
		{offsets, counts, one, one, []float32{0.5, 0.6}, ErrCoordsLength},
		{make([]int32, 2), counts, one, one, one, ErrOutputSize},
		{offsets, make([]int32, 0), one, one, one, ErrOutputSize},
	}

	for i, s := range specs {
		if _, err = index.FindPoints(s.offsets, s.counts, s.x, s.y, s.z); !errors.Is(err, s.expErr) {
			t.Fatalf("[spec %d] expected error %v; got %v", i, s.expErr, err)
		}
	}

	if _, err = index.FindBoxes(offsets, counts, []float32{0, 0, 0, 1, 1}, 1); !errors.Is(err, ErrBoxesLength) {
		t.Fatalf("expected ErrBoxesLength from FindBoxes; got %v", err)
	}
}

func TestEmptyQueryBatch(t *testing.T) {
	boxes := []float32{0, 0, 0, 1, 1, 1}
	index := mustBuild(t, boxes, 1, Config{})

	candidates, err := index.FindPoints([]int32{}, []int32{}, []float32{}, []float32{}, []float32{})
	if err != nil {
		t.Fatalf("FindPoints failed for an empty batch: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates for an empty batch; got %d", len(candidates))
	}
}

func TestBounds(t *testing.T) {
	boxes := []float32{
		-4, 0, 1, 2, 3, 5,
		0, -2, 2, 1, 1, 9,
	}
	index := mustBuild(t, boxes, 2, Config{})

	min, max, err := index.Bounds()
	if err != nil {
		t.Fatalf("Bounds failed: %v", err)
	}
	if min != [3]float32{-4, -2, 1} {
		t.Fatalf("expected bounds min (-4,-2,1); got %v", min)
	}
	if max != [3]float32{2, 3, 9} {
		t.Fatalf("expected bounds max (2,3,9); got %v", max)
	}
}

// -- helpers

func mustBuild(t *testing.T, boxes []float32, numItems int, cfg Config) *BVH {
	t.Helper()

	index, err := New(boxes, numItems, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err = index.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return index
}

// randomBoxes returns numBoxes random boxes inside [0,100]^dim in the flat
// input layout, with side lengths up to 10.
func randomBoxes(rng *rand.Rand, numBoxes, dim int) []float32 {
	boxes := make([]float32, 0, numBoxes*2*dim)
	for i := 0; i < numBoxes; i++ {
		min := make([]float32, dim)
		max := make([]float32, dim)
		for d := 0; d < dim; d++ {
			min[d] = rng.Float32() * 90
			max[d] = min[d] + rng.Float32()*10
		}
		boxes = append(boxes, min...)
		boxes = append(boxes, max...)
	}
	return boxes
}

// candidateSet extracts query i's candidates as a sorted slice. Candidate
// order within a query is not part of the contract.
func candidateSet(candidates, offsets, counts []int32, i int) []int32 {
	set := make([]int32, counts[i])
	copy(set, candidates[offsets[i]:offsets[i]+counts[i]])
	sort.Slice(set, func(a, b int) bool { return set[a] < set[b] })
	return set
}

func allSets(candidates, offsets, counts []int32) [][]int32 {
	sets := make([][]int32, len(counts))
	for i := range counts {
		sets[i] = candidateSet(candidates, offsets, counts, i)
	}
	return sets
}

func equalSets(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
