package stats

import (
	"math"
	"tracestats/tree"
)

// Quantiles returns the nearest-rank quantiles of the union of several
// ascending runs. qs must be ascending and within [0, 1]. The runs are merged
// lazily, so only as many values are visited as the highest rank needs.
func Quantiles(runs [][]uint64, qs []float64) []uint64 {
	total := 0
	for _, run := range runs {
		total += len(run)
	}
	result := make([]uint64, len(qs))
	if total == 0 || len(qs) == 0 {
		return result
	}

	ranks := make([]int, len(qs))
	for i, q := range qs {
		ranks[i] = NearestRank(q, total)
	}

	next := 0
	position := 0
	tree.Merge(runs, func(value uint64) bool {
		for next < len(ranks) && ranks[next] == position {
			result[next] = value
			next++
		}
		position++
		return next < len(ranks)
	})
	return result
}

// NearestRank maps a quantile to a zero-based index into n sorted values.
func NearestRank(q float64, n int) int {
	if n <= 0 {
		return 0
	}
	rank := int(math.Ceil(q*float64(n))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= n {
		rank = n - 1
	}
	return rank
}
