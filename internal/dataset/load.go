package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"

	apierrors "bankdash/internal/errors"
)

// Format identifies a tabular file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrEmptyDataset is returned when a file holds no header row.
	ErrEmptyDataset = errors.New("dataset is empty")
)

// nanValues are the cell values read as missing.
var nanValues = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "<nil>"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseFormat parses a format name such as "csv" or "XLSX".
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX, "xlsm":
		return FormatXLSX, nil
	default:
		return "", apierrors.NewUnsupportedError(
			fmt.Sprintf("%q is not a supported format, use csv or xlsx", s), ErrUnsupportedFormat)
	}
}

// FormatFromName infers the format from a file name extension.
func FormatFromName(name string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return "", apierrors.NewUnsupportedError(
			fmt.Sprintf("%q has no extension, use a .csv or .xlsx file", name), ErrUnsupportedFormat)
	}
	return ParseFormat(ext)
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Load reads a dataset in the format implied by name.
func Load(name string, r io.Reader) (Dataset, error) {
	format, err := FormatFromName(name)
	if err != nil {
		return Dataset{}, err
	}
	switch format {
	case FormatXLSX:
		return LoadXLSX(r)
	default:
		return LoadCSV(r)
	}
}

// LoadFile opens path and reads it with Load.
func LoadFile(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return Load(filepath.Base(path), f)
}

// LoadCSV reads a CSV stream with a header row. Column types are detected
// from the values; a leading UTF-8 byte order mark is skipped. Rows are
// normalized the same way as XLSX rows.
func LoadCSV(r io.Reader) (Dataset, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return Dataset{}, apierrors.NewParsingError("csv could not be read", err)
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return Dataset{}, apierrors.NewParsingError("csv could not be parsed", err)
	}
	return fromRecords("csv", rows)
}

// LoadXLSX reads the first worksheet of an XLSX workbook. The first row is
// the header; short rows are padded with missing cells.
func LoadXLSX(r io.Reader) (Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Dataset{}, apierrors.NewParsingError("file is not an xlsx workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Dataset{}, apierrors.NewParsingError("workbook has no sheets", ErrEmptyDataset)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Dataset{}, apierrors.NewParsingError(fmt.Sprintf("sheet %q could not be read", sheets[0]), err)
	}
	return fromRecords("xlsx", rows)
}

func fromRecords(source string, rows [][]string) (Dataset, error) {
	records := normalizeRecords(rows)
	if len(records) == 0 {
		return Dataset{}, apierrors.NewParsingError(source+" has no header row", ErrEmptyDataset)
	}

	df := dataframe.LoadRecords(records, readOptions()...)
	if df.Err != nil {
		return Dataset{}, apierrors.NewParsingError(source+" could not be loaded", df.Err)
	}
	return Dataset{df: df}, nil
}

func readOptions() []dataframe.LoadOption {
	return []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(nanValues),
	}
}

// normalizeRecords drops blank trailing rows and pads every row to the
// header width. Cells beyond the header width are ignored.
func normalizeRecords(rows [][]string) [][]string {
	last := len(rows) - 1
	for last >= 0 && isBlankRow(rows[last]) {
		last--
	}
	if last < 0 {
		return nil
	}
	rows = rows[:last+1]

	width := len(rows[0])
	if width == 0 {
		return nil
	}
	records := make([][]string, len(rows))
	for i, row := range rows {
		rec := make([]string, width)
		copy(rec, row)
		records[i] = rec
	}
	return records
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
