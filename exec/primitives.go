package exec

// Reduce folds element(i) for every i in [0, n) into a single value using
// combine, which must be associative. The fold runs as one chunk per backend
// worker with a final sequential merge of the per-chunk partials, so the
// element calls themselves never race.
func Reduce[T any](ex Executor, n int, identity T, element func(i int) T, combine func(a, b T) T) T {
	if n <= 0 {
		return identity
	}

	workers := ex.Workers()
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers
	numChunks := (n + chunk - 1) / chunk

	partials := make([]T, numChunks)
	ex.For(numChunks, func(c int) {
		start := c * chunk
		end := start + chunk
		if end > n {
			end = n
		}

		acc := identity
		for i := start; i < end; i++ {
			acc = combine(acc, element(i))
		}
		partials[c] = acc
	})

	out := identity
	for _, p := range partials {
		out = combine(out, p)
	}
	return out
}

// ExclusiveScan writes the exclusive prefix sums of counts into offsets and
// returns the grand total. offsets[0] is always 0 and
// offsets[i] == counts[0] + ... + counts[i-1].
//
// The scan output sizes a single allocation per query batch rather than
// feeding a hot loop, so a sequential pass is sufficient for every backend.
func ExclusiveScan(counts []int32, offsets []int32) int32 {
	var total int32
	for i, c := range counts {
		offsets[i] = total
		total += c
	}
	return total
}
