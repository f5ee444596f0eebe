// Package dataset provides the tabular value type shared by the feature
// engine, the analysis routines and the HTTP layer.
//
// A Dataset wraps a gota DataFrame. Numeric columns hold float64 values with
// NaN as the missing marker; text columns hold strings with MissingText as
// the missing marker. Dates stay text until a consumer parses them.
//
// Loading:
//
//	ds, err := dataset.LoadFile("bank.csv")
//	ds = dataset.Preprocess(ds)
//
// CSV and XLSX are supported; Load picks the reader from the file extension.
package dataset
