package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom("")
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Server, cfg.Server)
	assert.Equal(t, def.Analysis, cfg.Analysis)
	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFrom_FileThenEnv(t *testing.T) {
	path := writeYAML(t, `
server:
  port: 9000
  read_timeout: 5s
logging:
  output: console
analysis:
  max_datasets: 3
  preview_rows: 5
`)
	t.Setenv("BANKDASH_ANALYSIS_MAX_DATASETS", "7")
	t.Setenv("BANKDASH_SECURITY_ALLOWED_ORIGINS", "http://a.example,http://b.example")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port, "file value")
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout, "file duration")
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout, "default kept when absent from file")
	assert.Equal(t, 7, cfg.Analysis.MaxDatasets, "env wins over file")
	assert.Equal(t, 5, cfg.Analysis.PreviewRows)
	assert.Equal(t, "console", cfg.Logging.Output)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Security.AllowedOrigins)
}

func TestLoadFrom_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorContains(t, err, "failed to load config from file")
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := LoadFrom(writeYAML(t, "server: [1, 2"))
		assert.Error(t, err)
	})

	t.Run("bad env value", func(t *testing.T) {
		t.Setenv("BANKDASH_SERVER_PORT", "eighty")
		_, err := LoadFrom("")
		assert.ErrorContains(t, err, "failed to load config from env")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "port zero", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "invalid server port"},
		{name: "port too large", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "invalid server port"},
		{name: "read timeout", mutate: func(c *Config) { c.Server.ReadTimeout = 0 }, wantErr: "read timeout"},
		{name: "write timeout", mutate: func(c *Config) { c.Server.WriteTimeout = -1 }, wantErr: "write timeout"},
		{name: "cors without origins", mutate: func(c *Config) { c.Security.AllowedOrigins = nil }, wantErr: "allowed origin"},
		{name: "cors disabled without origins", mutate: func(c *Config) {
			c.Security.EnableCORS = false
			c.Security.AllowedOrigins = nil
		}},
		{name: "rate limit rps", mutate: func(c *Config) { c.Security.RateLimit.RPS = 0 }, wantErr: "rps"},
		{name: "logging output", mutate: func(c *Config) { c.Logging.Output = "syslog" }, wantErr: "invalid logging output"},
		{name: "sample ratio", mutate: func(c *Config) { c.Telemetry.SampleRatio = 2 }, wantErr: "sample ratio"},
		{name: "upload bytes", mutate: func(c *Config) { c.Analysis.MaxUploadBytes = 0 }, wantErr: "max upload bytes"},
		{name: "max datasets", mutate: func(c *Config) { c.Analysis.MaxDatasets = 0 }, wantErr: "max datasets"},
		{name: "preview rows", mutate: func(c *Config) { c.Analysis.PreviewRows = -1 }, wantErr: "preview rows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidate_Normalizes(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"
	cfg.Logging.Output = "FILE"
	cfg.Logging.FilePath = ""
	cfg.Analysis.OutlierColumnCount = 0

	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "file", cfg.Logging.Output)
	assert.Equal(t, DefaultLogFile, cfg.Logging.FilePath)
	assert.Equal(t, DefaultOutlierColumnCount, cfg.Analysis.OutlierColumnCount)
}
