package analysis

import "bankdash/internal/dataset"

// IQRMultiplier scales the interquartile range into the capping fences.
const IQRMultiplier = 1.5

// DefaultOutlierColumnCount is how many numeric columns are capped when the
// caller does not choose.
const DefaultOutlierColumnCount = 4

// OutlierReport describes the capping of one column.
type OutlierReport struct {
	Column string
	Q1     float64
	Q3     float64
	IQR    float64
	Lower  float64
	Upper  float64
	// Capped counts the cells moved onto a fence.
	Capped int
}

// CapResult is the outcome of CapOutliers.
type CapResult struct {
	Dataset dataset.Dataset
	Reports []OutlierReport
	// Skipped names requested columns that are absent or not numeric.
	Skipped []string
}

// DefaultOutlierColumns returns the first n numeric columns.
func DefaultOutlierColumns(ds dataset.Dataset, n int) []string {
	cols := ds.NumericNames()
	if len(cols) > n {
		cols = cols[:n]
	}
	return cols
}

// CapOutliers clips every selected numeric column to the fences
// Q1 - 1.5*IQR and Q3 + 1.5*IQR. Missing cells stay missing. The input
// dataset is not modified.
func CapOutliers(ds dataset.Dataset, columns []string) CapResult {
	res := CapResult{Dataset: ds}
	for _, col := range columns {
		vals, ok := numericColumn(res.Dataset, col)
		if !ok {
			res.Skipped = append(res.Skipped, col)
			continue
		}

		sorted := sortedCopy(vals)
		rep := OutlierReport{
			Column: col,
			Q1:     quantile(sorted, 0.25),
			Q3:     quantile(sorted, 0.75),
		}
		rep.IQR = rep.Q3 - rep.Q1
		rep.Lower = rep.Q1 - IQRMultiplier*rep.IQR
		rep.Upper = rep.Q3 + IQRMultiplier*rep.IQR

		if len(sorted) > 0 {
			capped := make([]float64, len(vals))
			for i, v := range vals {
				switch {
				case v > rep.Upper:
					capped[i] = rep.Upper
					rep.Capped++
				case v < rep.Lower:
					capped[i] = rep.Lower
					rep.Capped++
				default:
					capped[i] = v
				}
			}
			res.Dataset = res.Dataset.WithFloats(col, capped)
		}
		res.Reports = append(res.Reports, rep)
	}
	return res
}
