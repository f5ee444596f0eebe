package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankdash/pkg/contracts"
)

func TestHealthService(t *testing.T) {
	logger := quietLogger(t)

	t.Run("with store", func(t *testing.T) {
		hs := NewHealthService(contracts.Version, NewDatasetStore(4, nil, logger), logger)

		health := hs.HealthCheck(context.Background())
		assert.Equal(t, "ok", health.Status)
		assert.Equal(t, contracts.Version, health.Version)
		require.NotNil(t, health.Runtime)
		assert.Positive(t, health.Runtime.Goroutines)
		assert.Equal(t, "0 of 4 datasets stored", health.Services["dataset_store"].Message)

		assert.Equal(t, "ready", hs.ReadinessCheck(context.Background()).Status)
		assert.Equal(t, "alive", hs.LivenessCheck(context.Background()).Status)
	})

	t.Run("without store", func(t *testing.T) {
		hs := NewHealthService(contracts.Version, nil, logger)
		assert.Equal(t, "not_ready", hs.ReadinessCheck(context.Background()).Status)
	})

	t.Run("version", func(t *testing.T) {
		hs := NewHealthService(contracts.Version, nil, logger)
		info := hs.Version()
		assert.Equal(t, contracts.Version, info.Version)
		assert.Equal(t, contracts.APIVersion, info.APIVersion)
	})
}
