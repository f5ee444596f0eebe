package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Paths holds the resolved directories the application writes to.
type Paths struct {
	ExecutableDir string
	DataDir       string
	LogsDir       string
	ExportsDir    string
}

// GetPaths resolves cfg against the directory of the running executable.
// Absolute entries in cfg are kept as they are.
func GetPaths(cfg PathsConfig) (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return ResolvePaths(filepath.Dir(exe), cfg), nil
}

// ResolvePaths resolves cfg against base.
func ResolvePaths(base string, cfg PathsConfig) *Paths {
	return &Paths{
		ExecutableDir: base,
		DataDir:       resolve(base, cfg.DataDir, DefaultDataDir),
		LogsDir:       resolve(base, cfg.LogsDir, DefaultLogsDir),
		ExportsDir:    resolve(base, cfg.ExportsDir, DefaultExportsDir),
	}
}

func resolve(base, path, fallback string) string {
	if path == "" {
		path = fallback
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.LogsDir, p.ExportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// GetExportPath returns a timestamped export file path for a dataset,
// e.g. data/exports/customers_20240101T150405.csv.
func (p *Paths) GetExportPath(name, ext string, at time.Time) string {
	return filepath.Join(p.ExportsDir, ExportFileName(name, ext, at))
}

// ExportFileName returns "<stem>_<UTC timestamp>.<ext>" for an input file
// name. Directories in name are ignored.
func ExportFileName(name, ext string, at time.Time) string {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "dataset"
	}
	return fmt.Sprintf("%s_%s.%s", stem, at.UTC().Format("20060102T150405"), ext)
}

// LogPathResolution logs the resolved directories.
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Info("path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("logs", p.LogsDir),
			slog.String("exports", p.ExportsDir),
		))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
