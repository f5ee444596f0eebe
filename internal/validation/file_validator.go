package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"bankdash/internal/dataset"
	apierrors "bankdash/internal/errors"
	"bankdash/internal/infrastructure"
)

var (
	// ErrFileNotFound is returned when an input path does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrNotAFile is returned when an input path is a directory.
	ErrNotAFile = errors.New("path is a directory")
	// ErrFileTooLarge is returned when a file exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrEmptyFile is returned for zero byte inputs.
	ErrEmptyFile = errors.New("file is empty")
)

// FileValidator checks dataset inputs and export targets for the server and
// the batch CLI.
type FileValidator struct {
	maxBytes int64
	logger   *slog.Logger
}

// NewFileValidator creates a validator. A maxBytes of zero disables the size
// check.
func NewFileValidator(maxBytes int64, logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &FileValidator{
		maxBytes: maxBytes,
		logger:   infrastructure.WithComponent(logger, "file_validator"),
	}
}

// ValidateUpload checks the name and declared size of an uploaded dataset
// and returns its format. A negative size means unknown and is not checked.
func (v *FileValidator) ValidateUpload(name string, size int64) (dataset.Format, error) {
	format, err := dataset.FormatFromName(name)
	if err != nil {
		v.logger.Warn("Upload rejected",
			slog.String("file", name),
			slog.String("reason", "unsupported format"))
		return "", err
	}
	if err := v.checkSize(name, size); err != nil {
		return "", err
	}
	return format, nil
}

// ValidateInputFile checks that path is a readable dataset file in a
// supported format.
func (v *FileValidator) ValidateInputFile(path string) (dataset.Format, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return "", fmt.Errorf("%w: %s", ErrNotAFile, path)
	}

	format, err := dataset.FormatFromName(path)
	if err != nil {
		return "", err
	}
	if err := v.checkSize(path, info.Size()); err != nil {
		return "", err
	}

	// Check if file is readable by opening it
	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.String("format", string(format)),
		slog.String("size", humanize.IBytes(uint64(info.Size()))))
	return format, nil
}

func (v *FileValidator) checkSize(name string, size int64) error {
	if size == 0 {
		return apierrors.NewParsingError(fmt.Sprintf("%s is empty", name), ErrEmptyFile)
	}
	if v.maxBytes > 0 && size > v.maxBytes {
		v.logger.Warn("File exceeds size limit",
			slog.String("file", name),
			slog.String("size", humanize.IBytes(uint64(size))),
			slog.String("limit", humanize.IBytes(uint64(v.maxBytes))))
		return apierrors.NewLimitError(
			fmt.Sprintf("%s is %s, limit %s", name, humanize.IBytes(uint64(size)), humanize.IBytes(uint64(v.maxBytes))),
			ErrFileTooLarge,
		).WithContext("limit_bytes", v.maxBytes)
	}
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateOutputFile checks that path names a supported export format in a
// writable directory, and returns the format.
func (v *FileValidator) ValidateOutputFile(path string) (dataset.Format, error) {
	format, err := dataset.FormatFromName(path)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotAFile, path)
	}
	if err := v.ValidateOutputDirectory(filepath.Dir(path)); err != nil {
		return "", err
	}
	return format, nil
}
