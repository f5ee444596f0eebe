package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"bankdash/internal/dataset"
)

// CSVWriter writes datasets as comma separated text.
type CSVWriter struct {
	// BOMPrefix adds a UTF-8 byte order mark so Excel detects the encoding.
	BOMPrefix bool
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(bom bool) *CSVWriter {
	return &CSVWriter{BOMPrefix: bom}
}

// Write writes the header row followed by every data row. Missing cells are
// written as empty fields.
func (w *CSVWriter) Write(out io.Writer, ds dataset.Dataset) error {
	if w.BOMPrefix {
		if _, err := out.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	if err := writer.Write(ds.Names()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, record := range ds.Rows() {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
