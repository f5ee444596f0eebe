package exporter

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"bankdash/internal/dataset"
)

// DefaultSheetName is the worksheet name used for exported datasets.
const DefaultSheetName = "Data"

// XLSXWriter writes datasets as a single-sheet Excel workbook.
type XLSXWriter struct {
	SheetName string
}

// NewXLSXWriter creates a writer using sheet as the worksheet name.
func NewXLSXWriter(sheet string) *XLSXWriter {
	if sheet == "" {
		sheet = DefaultSheetName
	}
	return &XLSXWriter{SheetName: sheet}
}

// Write streams the dataset into a new workbook and writes it to out.
// Numeric columns are stored as numbers; missing cells are left empty.
func (w *XLSXWriter) Write(out io.Writer, ds dataset.Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", w.SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(w.SheetName)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	names := ds.Names()
	header := make([]interface{}, len(names))
	for i, n := range names {
		header[i] = n
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	cols := make([]func(row int) interface{}, len(names))
	for i, n := range names {
		cols[i] = columnReader(ds, n)
	}

	for r := 0; r < ds.Nrow(); r++ {
		row := make([]interface{}, len(names))
		for c := range cols {
			row[c] = cols[c](r)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func columnReader(ds dataset.Dataset, name string) func(int) interface{} {
	if kind, _ := ds.Kind(name); kind == dataset.KindNumeric {
		vals, _ := ds.Floats(name)
		return func(r int) interface{} {
			if math.IsNaN(vals[r]) || math.IsInf(vals[r], 0) {
				return nil
			}
			return vals[r]
		}
	}
	vals, _ := ds.Strings(name)
	return func(r int) interface{} {
		if dataset.IsMissingText(vals[r]) {
			return nil
		}
		return vals[r]
	}
}
