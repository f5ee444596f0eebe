package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"bankdash/internal/dataset"
)

// NumericStats describes the non-missing values of a numeric column.
type NumericStats struct {
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
	Skew   float64
}

// ColumnSummary describes one column.
type ColumnSummary struct {
	Name   string
	Kind   dataset.Kind
	Nulls  int
	Unique int
	// Stats is nil for text columns.
	Stats *NumericStats
}

// Summary is the overview of a dataset.
type Summary struct {
	Rows            int
	Columns         int
	NumericColumns  int
	TextColumns     int
	ColumnSummaries []ColumnSummary
}

// Summarize computes shape, null and unique counts for every column and
// descriptive statistics for numeric columns.
func Summarize(ds dataset.Dataset) Summary {
	s := Summary{Rows: ds.Nrow(), Columns: ds.Ncol()}
	for _, name := range ds.Names() {
		kind, _ := ds.Kind(name)
		var cs ColumnSummary
		if kind == dataset.KindNumeric {
			vals, _ := ds.Floats(name)
			cs = summarizeNumeric(name, vals)
			s.NumericColumns++
		} else {
			vals, _ := ds.Strings(name)
			cs = summarizeText(name, vals)
			s.TextColumns++
		}
		s.ColumnSummaries = append(s.ColumnSummaries, cs)
	}
	return s
}

func summarizeNumeric(name string, vals []float64) ColumnSummary {
	cs := ColumnSummary{Name: name, Kind: dataset.KindNumeric}
	seen := make(map[float64]struct{})
	for _, v := range vals {
		if math.IsNaN(v) {
			cs.Nulls++
			continue
		}
		seen[v] = struct{}{}
	}
	cs.Unique = len(seen)
	cs.Stats = describe(vals)
	return cs
}

func summarizeText(name string, vals []string) ColumnSummary {
	cs := ColumnSummary{Name: name, Kind: dataset.KindText}
	seen := make(map[string]struct{})
	for _, v := range vals {
		if dataset.IsMissingText(v) {
			cs.Nulls++
			continue
		}
		seen[v] = struct{}{}
	}
	cs.Unique = len(seen)
	return cs
}

// describe computes count, mean, sample standard deviation, quartiles and
// skewness. Statistics that need more values than present are NaN.
func describe(vals []float64) *NumericStats {
	sorted := sortedCopy(vals)
	st := &NumericStats{
		Count:  len(sorted),
		Mean:   math.NaN(),
		Std:    math.NaN(),
		Min:    math.NaN(),
		Q1:     math.NaN(),
		Median: math.NaN(),
		Q3:     math.NaN(),
		Max:    math.NaN(),
		Skew:   math.NaN(),
	}
	if st.Count == 0 {
		return st
	}
	st.Mean = stat.Mean(sorted, nil)
	st.Min = sorted[0]
	st.Max = sorted[len(sorted)-1]
	st.Q1 = quantile(sorted, 0.25)
	st.Median = quantile(sorted, 0.5)
	st.Q3 = quantile(sorted, 0.75)
	if st.Count > 1 {
		st.Std = stat.StdDev(sorted, nil)
	}
	if st.Count > 2 && st.Std > 0 {
		st.Skew = stat.Skew(sorted, nil)
	}
	return st
}
