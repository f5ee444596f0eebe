package exporter

import (
	"fmt"
	"io"

	"bankdash/internal/dataset"
	apierrors "bankdash/internal/errors"
)

// Writer serialises a dataset.
type Writer interface {
	Write(out io.Writer, ds dataset.Dataset) error
}

// ForFormat returns the writer for a dataset format.
func ForFormat(format dataset.Format) (Writer, error) {
	switch format {
	case dataset.FormatCSV:
		return NewCSVWriter(true), nil
	case dataset.FormatXLSX:
		return NewXLSXWriter(DefaultSheetName), nil
	default:
		return nil, apierrors.NewUnsupportedError(fmt.Sprintf("cannot export as %q", format), dataset.ErrUnsupportedFormat)
	}
}

// Export writes ds to out in the given format.
func Export(out io.Writer, ds dataset.Dataset, format dataset.Format) error {
	w, err := ForFormat(format)
	if err != nil {
		return err
	}
	return w.Write(out, ds)
}
