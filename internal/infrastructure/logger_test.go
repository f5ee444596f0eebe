package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"bankdash/internal/config"
)

func lastEntry(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

// resetLogger clears the global logger before and after the test.
func resetLogger(t *testing.T) {
	t.Helper()
	reset := func() {
		_ = CloseLogFile()
		globalLogger = nil
		globalLoggerOnce = sync.Once{}
	}
	reset()
	t.Cleanup(reset)
}

func TestInitializeLogger(t *testing.T) {
	resetLogger(t)

	logFile := filepath.Join(t.TempDir(), "nested", "bankdash.log")
	logger, err := InitializeLogger(config.LoggingConfig{
		Level:    "info",
		Output:   "file",
		FilePath: logFile,
	})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Same(t, logger, GetLogger())

	logger.Info("dataset uploaded", "dataset_id", "abc")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	entry := lastEntry(t, content)
	assert.Equal(t, "dataset uploaded", entry["msg"])
	assert.Equal(t, "abc", entry["dataset_id"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Contains(t, entry, "source")
}

func TestInitializeLogger_OnlyOnce(t *testing.T) {
	resetLogger(t)

	first, err := InitializeLogger(config.LoggingConfig{Output: "console"})
	require.NoError(t, err)
	second, err := InitializeLogger(config.LoggingConfig{Output: "console", Level: "debug"})
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestInitializeLogger_BadPath(t *testing.T) {
	resetLogger(t)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	_, err := InitializeLogger(config.LoggingConfig{Output: "both", FilePath: filepath.Join(blocker, "x.log")})
	assert.ErrorContains(t, err, "failed to open log file")
}

func TestNewLogger_TraceIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug").With("component", "features")

	ctx := WithTraceID(context.Background(), "trace-123")
	logger.DebugContext(ctx, "rule skipped")

	entry := lastEntry(t, buf.Bytes())
	assert.Equal(t, "trace-123", entry["trace_id"])
	assert.Equal(t, "features", entry["component"])

	buf.Reset()
	logger.Info("no trace")
	assert.NotContains(t, lastEntry(t, buf.Bytes()), "trace_id")
}

func TestNewLogger_SpanTraceIDFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info")

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0x4b, 0xf9, 0x2f, 0x35},
		SpanID:  trace.SpanID{0x00, 0xf0, 0x67},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.InfoContext(ctx, "features derived")
	assert.Equal(t, sc.TraceID().String(), lastEntry(t, buf.Bytes())["trace_id"])

	buf.Reset()
	logger.InfoContext(WithTraceID(ctx, "req-1"), "features derived")
	assert.Equal(t, "req-1", lastEntry(t, buf.Bytes())["trace_id"], "request id wins over span")
}

func TestGetLogger_DefaultsBeforeInit(t *testing.T) {
	resetLogger(t)
	assert.Same(t, slog.Default(), GetLogger())
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected string
	}{
		{"debug", "DEBUG"},
		{"INFO", "INFO"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"verbose", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.level).String())
		})
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	traceID := GetTraceID(ctx)
	require.NotEmpty(t, traceID)

	assert.Equal(t, traceID, GetTraceID(EnsureTraceID(ctx)), "existing id kept")
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestLoggerHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info")

	WithComponent(logger, "dataset_store").Info("evicted")
	assert.Equal(t, "dataset_store", lastEntry(t, buf.Bytes())["component"])

	buf.Reset()
	WithError(logger, os.ErrNotExist).Info("error test")
	assert.Contains(t, lastEntry(t, buf.Bytes())["error"], "file does not exist")

	assert.Same(t, logger, WithError(logger, nil))
}
