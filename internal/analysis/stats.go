package analysis

import (
	"math"
	"sort"

	"bankdash/internal/dataset"
)

// finite returns the finite values of xs in a new slice.
func finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// sortedCopy returns the finite values of xs in ascending order.
func sortedCopy(xs []float64) []float64 {
	out := finite(xs)
	sort.Float64s(out)
	return out
}

// quantile returns the p-quantile of sorted values, interpolating linearly
// between the two nearest order statistics at position p*(n-1).
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := math.Floor(h)
	hi := math.Ceil(h)
	return sorted[int(lo)] + (h-lo)*(sorted[int(hi)]-sorted[int(lo)])
}

// numericColumn reads a numeric column, reporting false when the column is
// absent or holds text.
func numericColumn(ds dataset.Dataset, name string) ([]float64, bool) {
	kind, err := ds.Kind(name)
	if err != nil || kind != dataset.KindNumeric {
		return nil, false
	}
	vals, err := ds.Floats(name)
	if err != nil {
		return nil, false
	}
	return vals, true
}
