// Package exporter serialises datasets for download.
//
// This package contains two writers:
//
// CSVWriter: comma separated output with an optional UTF-8 BOM for Excel
// compatibility. Missing cells are written as empty fields.
//
// XLSXWriter: a single worksheet workbook written through the excelize
// stream writer, with numeric columns stored as numbers.
//
// Example usage:
//
//	err := exporter.Export(w, ds, dataset.FormatXLSX)
package exporter
