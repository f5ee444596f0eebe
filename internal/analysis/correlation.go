package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"bankdash/internal/dataset"
)

// CorrelationMatrix holds Pearson coefficients between numeric columns.
// Values[i][j] is NaN when fewer than two rows have both values or either
// side is constant.
type CorrelationMatrix struct {
	Columns []string
	Values  [][]float64
}

// CorrelationPair is one off-diagonal entry of a matrix.
type CorrelationPair struct {
	A, B string
	R    float64
}

// Correlations computes the correlation matrix of all numeric columns using
// pairwise complete rows.
func Correlations(ds dataset.Dataset) CorrelationMatrix {
	cols := ds.NumericNames()
	data := make([][]float64, len(cols))
	for i, c := range cols {
		data[i], _ = ds.Floats(c)
	}

	m := CorrelationMatrix{Columns: cols, Values: make([][]float64, len(cols))}
	for i := range cols {
		m.Values[i] = make([]float64, len(cols))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			r := pearson(data[i], data[j])
			if i == j && !math.IsNaN(r) {
				r = 1
			}
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

func pearson(x, y []float64) float64 {
	var xs, ys []float64
	for k := range x {
		if math.IsNaN(x[k]) || math.IsNaN(y[k]) || math.IsInf(x[k], 0) || math.IsInf(y[k], 0) {
			continue
		}
		xs = append(xs, x[k])
		ys = append(ys, y[k])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	if stat.StdDev(xs, nil) == 0 || stat.StdDev(ys, nil) == 0 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

// TopPairs returns the n distinct column pairs with the largest absolute
// coefficient. Ties keep matrix order.
func (m CorrelationMatrix) TopPairs(n int) []CorrelationPair {
	var pairs []CorrelationPair
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			r := m.Values[i][j]
			if math.IsNaN(r) {
				continue
			}
			pairs = append(pairs, CorrelationPair{A: m.Columns[i], B: m.Columns[j], R: r})
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		return math.Abs(pairs[a].R) > math.Abs(pairs[b].R)
	})
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}

// Insights describes the n strongest pairs.
func (m CorrelationMatrix) Insights(n int) []string {
	var out []string
	for i, p := range m.TopPairs(n) {
		direction := "negative"
		if p.R > 0 {
			direction = "positive"
		}
		out = append(out, fmt.Sprintf("Top %d correlation: %s and %s = %.2f (%s).", i+1, p.A, p.B, p.R, direction))
	}
	return out
}
