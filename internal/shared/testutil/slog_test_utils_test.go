package testutil

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures records and attrs", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("dataset uploaded", slog.String("dataset_id", "abc"))
		logger.Error("export failed", slog.Int("status", 500))

		records := handler.GetRecords()
		require.Len(t, records, 2)
		assert.True(t, handler.ContainsMessage("uploaded"))
		assert.True(t, handler.ContainsAttr("dataset_id", "abc"))
		assert.Equal(t, int64(500), records[1].Attrs["status"])
	})

	t.Run("bound attrs and groups", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With(slog.String("component", "feature_engine")).
			WithGroup("rule").
			Info("rule skipped", slog.String("name", "age_group"))

		AssertLogAttr(t, handler, "component", "feature_engine")
		AssertLogAttr(t, handler, "rule.name", "age_group")
		assert.Equal(t, 1, handler.Count(), "derived handlers share one sink")
		assert.NotContains(t, handler.GetRecords()[0].Attrs, "rule.component")
	})

	t.Run("attrs bound inside nested groups", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.WithGroup("engine").
			With(slog.String("dataset_id", "abc")).
			WithGroup("rule").
			With(slog.String("name", "wealth_indicator")).
			Info("rule applied", slog.Int("rows", 3))

		records := handler.GetRecords()
		require.Len(t, records, 1)
		assert.Equal(t, map[string]any{
			"engine.dataset_id": "abc",
			"engine.rule.name":  "wealth_indicator",
			"engine.rule.rows":  int64(3),
		}, records[0].Attrs)
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Error("error msg")

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelDebug), 1)
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
		AssertLogContains(t, handler, slog.LevelWarn, "warn")
	})

	t.Run("clear", func(t *testing.T) {
		logger, handler := NewTestLogger(t)
		logger.Info("one")
		logger.Info("two")
		require.Equal(t, 2, handler.Count())

		handler.Clear()
		assert.Zero(t, handler.Count())
		AssertNoErrors(t, handler)
	})

	t.Run("concurrent logging", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				logger.Info("concurrent log", slog.Int("goroutine", n))
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 10, handler.Count())
	})
}

func TestWriteCustomersCSV(t *testing.T) {
	path := WriteCustomersCSV(t)
	assert.FileExists(t, path)
	assert.Equal(t, len(CustomersCSV), int(CustomersReader().Size()))
}
