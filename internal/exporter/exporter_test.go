package exporter

import (
	"bytes"
	"encoding/csv"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bankdash/internal/dataset"
)

func testDataset(t *testing.T) dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(
		dataset.NumericColumn("Bank Deposits", []float64{1500.5, math.NaN()}),
		dataset.TextColumn("Nationality", []string{"European, Western", dataset.MissingText}),
	)
	require.NoError(t, err)
	return ds
}

func TestCSVWriter_Write(t *testing.T) {
	tests := []struct {
		name    string
		bom     bool
		wantBOM bool
	}{
		{name: "with BOM", bom: true, wantBOM: true},
		{name: "without BOM", bom: false, wantBOM: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewCSVWriter(tt.bom).Write(&buf, testDataset(t)))

			out := buf.Bytes()
			assert.Equal(t, tt.wantBOM, bytes.HasPrefix(out, []byte{0xEF, 0xBB, 0xBF}))

			records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(out, []byte{0xEF, 0xBB, 0xBF}))).ReadAll()
			require.NoError(t, err)
			assert.Equal(t, [][]string{
				{"Bank Deposits", "Nationality"},
				{"1500.5", "European, Western"},
				{"", ""},
			}, records)
		})
	}
}

func TestCSVWriter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, testDataset(t), dataset.FormatCSV))

	ds, err := dataset.LoadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bank Deposits", "Nationality"}, ds.Names())

	deposits, err := ds.Floats("Bank Deposits")
	require.NoError(t, err)
	assert.Equal(t, 1500.5, deposits[0])
	assert.True(t, math.IsNaN(deposits[1]))
}

func TestXLSXWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewXLSXWriter("").Write(&buf, testDataset(t)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{DefaultSheetName}, f.GetSheetList())
	rows, err := f.GetRows(DefaultSheetName)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Equal(t, []string{"Bank Deposits", "Nationality"}, rows[0])
	assert.Equal(t, []string{"1500.5", "European, Western"}, rows[1])

	v, err := f.GetCellValue(DefaultSheetName, "A3")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestForFormat(t *testing.T) {
	w, err := ForFormat(dataset.FormatCSV)
	require.NoError(t, err)
	assert.IsType(t, &CSVWriter{}, w)

	w, err = ForFormat(dataset.FormatXLSX)
	require.NoError(t, err)
	assert.IsType(t, &XLSXWriter{}, w)

	_, err = ForFormat(dataset.Format("pdf"))
	assert.ErrorIs(t, err, dataset.ErrUnsupportedFormat)
	assert.True(t, strings.Contains(err.Error(), "pdf"))
}
