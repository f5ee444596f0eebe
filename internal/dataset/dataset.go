package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// MissingText is the missing-value marker of text columns. Numeric columns
// use NaN.
const MissingText = "NaN"

// ErrColumnNotFound is returned when a column lookup fails.
var ErrColumnNotFound = errors.New("column not found")

// Kind classifies a column.
type Kind int

const (
	// KindNumeric columns hold float64 values with NaN as missing.
	KindNumeric Kind = iota
	// KindText columns hold strings with MissingText as missing.
	KindText
)

// String returns the kind name used in summaries.
func (k Kind) String() string {
	if k == KindNumeric {
		return "numeric"
	}
	return "text"
}

// Dataset is an ordered set of equally long named columns.
//
// Dataset has value semantics: every method that changes the schema or the
// values returns a new Dataset and leaves the receiver untouched, so a caller
// may hand the same Dataset to several consumers.
type Dataset struct {
	df dataframe.DataFrame
}

// New builds a dataset from columns created with NumericColumn or TextColumn.
func New(cols ...series.Series) (Dataset, error) {
	if len(cols) == 0 {
		return Dataset{}, nil
	}
	df := dataframe.New(cols...)
	if df.Err != nil {
		return Dataset{}, fmt.Errorf("build dataset: %w", df.Err)
	}
	return Dataset{df: df}, nil
}

// NumericColumn builds a numeric column. NaN marks a missing value.
func NumericColumn(name string, values []float64) series.Series {
	return series.New(values, series.Float, name)
}

// TextColumn builds a text column. MissingText marks a missing value.
func TextColumn(name string, values []string) series.Series {
	return series.New(values, series.String, name)
}

// IsMissingText reports whether a text cell holds the missing marker.
func IsMissingText(v string) bool {
	return v == MissingText
}

// Err reports the error of the last failed mutation, if any.
func (d Dataset) Err() error {
	return d.df.Err
}

// Names returns the column names in order.
func (d Dataset) Names() []string {
	if d.df.Ncol() == 0 {
		return []string{}
	}
	return d.df.Names()
}

// Nrow returns the number of rows.
func (d Dataset) Nrow() int {
	return d.df.Nrow()
}

// Ncol returns the number of columns.
func (d Dataset) Ncol() int {
	return d.df.Ncol()
}

// Has reports whether the named column exists.
func (d Dataset) Has(name string) bool {
	for _, n := range d.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// HasAll reports whether every named column exists.
func (d Dataset) HasAll(names ...string) bool {
	for _, n := range names {
		if !d.Has(n) {
			return false
		}
	}
	return true
}

// Kind returns the kind of the named column.
func (d Dataset) Kind(name string) (Kind, error) {
	if !d.Has(name) {
		return KindText, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	switch d.df.Col(name).Type() {
	case series.Float, series.Int:
		return KindNumeric, nil
	default:
		return KindText, nil
	}
}

// NumericNames returns the names of the numeric columns in order.
func (d Dataset) NumericNames() []string {
	var out []string
	for _, n := range d.Names() {
		if k, _ := d.Kind(n); k == KindNumeric {
			out = append(out, n)
		}
	}
	return out
}

// Floats returns a copy of the named column as float64. Text cells that do
// not parse as numbers, and missing cells, are NaN.
func (d Dataset) Floats(name string) ([]float64, error) {
	if !d.Has(name) {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return d.df.Col(name).Float(), nil
}

// Strings returns a copy of the named column as strings. Missing cells are
// MissingText.
func (d Dataset) Strings(name string) ([]string, error) {
	if !d.Has(name) {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return d.df.Col(name).Records(), nil
}

// FloatsOrZero returns the named column as float64 with missing cells as 0,
// or an all-zero column when the column is absent.
func (d Dataset) FloatsOrZero(name string) []float64 {
	vals, err := d.Floats(name)
	if err != nil {
		return make([]float64, d.Nrow())
	}
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = 0
		}
	}
	return vals
}

// With returns a copy of the dataset with col appended, or replacing the
// existing column of the same name in place. A length mismatch leaves the
// error on the returned dataset.
func (d Dataset) With(col series.Series) Dataset {
	if d.df.Err == nil && d.df.Ncol() == 0 {
		return Dataset{df: dataframe.New(col)}
	}
	return Dataset{df: d.df.Mutate(col)}
}

// WithFloats sets a numeric column. ±Inf is stored as missing.
func (d Dataset) WithFloats(name string, values []float64) Dataset {
	clean := make([]float64, len(values))
	for i, v := range values {
		if math.IsInf(v, 0) {
			v = math.NaN()
		}
		clean[i] = v
	}
	return d.With(NumericColumn(name, clean))
}

// WithStrings sets a text column.
func (d Dataset) WithStrings(name string, values []string) Dataset {
	return d.With(TextColumn(name, values))
}

// Select returns a dataset holding only the named columns that exist, in
// the order given.
func (d Dataset) Select(names ...string) Dataset {
	var keep []string
	for _, n := range names {
		if d.Has(n) {
			keep = append(keep, n)
		}
	}
	if len(keep) == 0 {
		return Dataset{}
	}
	return Dataset{df: d.df.Select(keep)}
}

// Drop returns a dataset without the named columns. Unknown names are
// ignored.
func (d Dataset) Drop(names ...string) Dataset {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var keep []string
	for _, n := range d.Names() {
		if !drop[n] {
			keep = append(keep, n)
		}
	}
	return d.Select(keep...)
}

// Head returns the first n rows.
func (d Dataset) Head(n int) Dataset {
	if n >= d.Nrow() || d.Ncol() == 0 {
		return d
	}
	if n < 0 {
		n = 0
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return Dataset{df: d.df.Subset(idx)}
}

// Cell formats one cell for text output. Missing values render as "" and
// numbers use the shortest representation that round-trips.
func (d Dataset) Cell(name string, row int) string {
	col := d.df.Col(name)
	el := col.Elem(row)
	if el.IsNA() {
		return ""
	}
	switch col.Type() {
	case series.Float, series.Int:
		return FormatFloat(el.Float())
	default:
		v := el.String()
		if IsMissingText(v) {
			return ""
		}
		return v
	}
}

// Rows returns every row formatted with Cell.
func (d Dataset) Rows() [][]string {
	names := d.Names()
	rows := make([][]string, d.Nrow())
	for i := range rows {
		row := make([]string, len(names))
		for j, n := range names {
			row[j] = d.Cell(n, i)
		}
		rows[i] = row
	}
	return rows
}

// FormatFloat renders v without trailing zeros; NaN and ±Inf render as "".
func FormatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
