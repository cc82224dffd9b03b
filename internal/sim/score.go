package sim

import "slices"

// Score multiplies the two largest inspection counts.
// The registry guarantees at least two workers.
func Score(workers []*Worker) uint64 {
	counts := make([]uint64, len(workers))
	for i, w := range workers {
		counts[i] = w.Inspected
	}
	slices.Sort(counts)
	n := len(counts)
	if n < 2 {
		return 0
	}
	return counts[n-1] * counts[n-2]
}
