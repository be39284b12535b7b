package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/stockcart/internal/config"
)

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Store.Driver = config.DriverMemory
	return cfg
}

func TestReportDay(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	now := time.Date(2024, 6, 2, 1, 30, 0, 0, time.UTC)

	day, err := reportDay("", loc, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", day.Format(time.DateOnly))

	day, err = reportDay("2024-05-20", loc, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-20", day.Format(time.DateOnly))
	assert.Equal(t, loc, day.Location())

	_, err = reportDay("20/05/2024", loc, now)
	assert.Error(t, err)
}

func TestRun_Succeeds(t *testing.T) {
	err := run(context.Background(), memoryConfig(), zap.NewNop(), "2024-06-01", time.Now())
	assert.NoError(t, err)
}

func TestRun_ReturnsFailures(t *testing.T) {
	t.Run("invalid date", func(t *testing.T) {
		err := run(context.Background(), memoryConfig(), zap.NewNop(), "yesterday", time.Now())
		assert.Error(t, err)
	})

	t.Run("store unavailable", func(t *testing.T) {
		cfg := memoryConfig()
		cfg.Store.Driver = "sqlite"
		err := run(context.Background(), cfg, zap.NewNop(), "", time.Now())
		assert.Error(t, err)
	})
}
