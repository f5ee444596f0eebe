package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()
	abs := filepath.Join(t.TempDir(), "elsewhere")

	paths := ResolvePaths(base, PathsConfig{DataDir: "store", LogsDir: abs})

	assert.Equal(t, base, paths.ExecutableDir)
	assert.Equal(t, filepath.Join(base, "store"), paths.DataDir)
	assert.Equal(t, abs, paths.LogsDir, "absolute paths are kept")
	assert.Equal(t, filepath.Join(base, DefaultExportsDir), paths.ExportsDir, "empty falls back to default")
}

func TestGetPaths(t *testing.T) {
	paths, err := GetPaths(Default().Paths)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(paths.ExecutableDir))
	assert.Equal(t, filepath.Join(paths.ExecutableDir, DefaultDataDir), paths.DataDir)
}

func TestEnsureDirectories(t *testing.T) {
	paths := ResolvePaths(t.TempDir(), Default().Paths)

	require.NoError(t, paths.EnsureDirectories())
	for _, dir := range []string{paths.DataDir, paths.LogsDir, paths.ExportsDir} {
		assert.DirExists(t, dir)
	}
	assert.True(t, FileExists(paths.DataDir))
	assert.False(t, FileExists(filepath.Join(paths.DataDir, "missing")))
}

func TestGetExportPath(t *testing.T) {
	paths := ResolvePaths("/srv/bankdash", PathsConfig{})
	at := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		ext  string
		want string
	}{
		{name: "customers.csv", ext: "xlsx", want: "customers_20240102T150405.xlsx"},
		{name: "customers", ext: "csv", want: "customers_20240102T150405.csv"},
		{name: ".csv", ext: "csv", want: "dataset_20240102T150405.csv"},
		{name: "uploads/march.xlsx", ext: "csv", want: "march_20240102T150405.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := paths.GetExportPath(tt.name, tt.ext, at)
			assert.Equal(t, filepath.Join(paths.ExportsDir, tt.want), got)
		})
	}
}
