package aggregate

import (
	"math"
	"sort"
)

// nearestRank returns the 1-based nearest rank for percentile pct of n
// values: ceil(pct*n/100), at least 1. Integer arithmetic avoids float
// error at exact boundaries (0.95*20 is not exactly 19 in float64).
func nearestRank(n, pct int) int {
	rank := (pct*n + 99) / 100
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return rank
}

// Percentile returns the nearest-rank percentile of values. values need not
// be sorted and is not modified. Returns 0 for an empty slice.
func Percentile(values []float64, pct int) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return sorted[nearestRank(len(sorted), pct)-1]
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
