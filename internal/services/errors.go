package services

import "errors"

// Analysis service errors
var (
	// Store errors
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrDatasetConflict = errors.New("dataset changed during operation")

	// Input errors
	ErrInvalidReferenceDate = errors.New("invalid reference date")
	ErrMissingColumns       = errors.New("required columns missing")
	ErrUnreadableDataset    = errors.New("dataset could not be read")
)

// MissingColumnsError names the columns an analysis needed but the dataset
// lacks. It unwraps to ErrMissingColumns.
type MissingColumnsError struct {
	Analysis string
	Columns  []string
}

func (e *MissingColumnsError) Error() string {
	return e.Analysis + ": " + ErrMissingColumns.Error()
}

func (e *MissingColumnsError) Unwrap() error {
	return ErrMissingColumns
}
