// Package quantile implements the linear-interpolation quantile rule used for
// bin edges, medians, and per-event percentile aggregates: the quantile at p
// sits at fractional position p*(n-1) in the sorted sample.
package quantile

import (
	"math"
	"sort"
)

// Linear returns the p-quantile of sorted values. values must be ascending
// and non-empty; p in [0, 1].
func Linear(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// OfSample sorts a copy of values and returns the p-quantile.
func OfSample(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return Linear(sorted, p)
}

// MedianIgnoringNaN returns the median of values after dropping NaN entries.
// NaN when nothing remains.
func MedianIgnoringNaN(values []float64) float64 {
	kept := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return math.NaN()
	}
	sort.Float64s(kept)
	return Linear(kept, 0.5)
}
