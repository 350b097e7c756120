package main

import (
	"context"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketScreener/internal/calculator"
	"MarketScreener/internal/collector"
	"MarketScreener/internal/config"
	"MarketScreener/internal/model"
	"MarketScreener/internal/pool"
)

func demoConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("testdata/does-not-exist.yaml")
	require.NoError(t, err)
	cfg.DataSource.Provider = "demo"
	cfg.Screening.Workers = 2
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestScreenerConfig(t *testing.T) {
	cfg := demoConfig(t)
	cfg.Screening.SnapshotMode = "per_task"

	sc, err := screenerConfig(cfg, false)
	require.NoError(t, err)
	assert.Equal(t, calculator.ScanHistorical, sc.MAScanMode)
	assert.Equal(t, collector.SnapshotPerTask, sc.SnapshotMode)
	assert.Equal(t, 2, sc.Workers)
	assert.Equal(t, 300e9, sc.MACapFloor)

	alert, err := screenerConfig(cfg, true)
	require.NoError(t, err)
	assert.Equal(t, calculator.ScanLatest, alert.MAScanMode)
}

func TestCommandConfigLatestFlag(t *testing.T) {
	cfg := demoConfig(t)
	cfg.MABreakout.ScanMode = "historical"
	cfg.MABreakout.AlertScanMode = "historical"

	sc, err := commandConfig(cfg, true)
	require.NoError(t, err)
	assert.Equal(t, calculator.ScanLatest, sc.MAScanMode)

	sc, err = commandConfig(cfg, false)
	require.NoError(t, err)
	assert.Equal(t, calculator.ScanHistorical, sc.MAScanMode)
}

func TestScreenerConfigZeroCapFloor(t *testing.T) {
	cfg := demoConfig(t)
	zero := 0.0
	cfg.MABreakout.CapFloor = &zero

	sc, err := screenerConfig(cfg, false)
	require.NoError(t, err)
	assert.Zero(t, sc.MACapFloor)
}

func TestBuildSource(t *testing.T) {
	cfg := demoConfig(t)
	assert.Equal(t, "memory", buildSource(cfg, time.Now()).Name())

	cfg.DataSource.Provider = "yahoo"
	cfg.DataSource.BaseURL = "http://localhost:9"
	assert.Equal(t, "rest+yahoo", buildSource(cfg, time.Now()).Name())

	cfg.DataSource.Provider = "rest"
	assert.Equal(t, "rest", buildSource(cfg, time.Now()).Name())
}

func TestDemoScreens(t *testing.T) {
	cfg := demoConfig(t)
	end := time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC)
	rng := model.LookbackRange(end, cfg.Screening.LookbackDays)

	for _, alert := range []bool{false, true} {
		sc, err := screenerConfig(cfg, alert)
		require.NoError(t, err)
		svc := newService(cfg, sc, buildSource(cfg, end), pool.Nop, nil, log.NewNopLogger())

		report, err := svc.RunMovingAverageBreakout(context.Background(), rng)
		require.NoError(t, err)
		require.Equal(t, 1, report.Table.Len(), "alert=%v", alert)
		assert.Equal(t, "005930", report.Table.Rows[0][0])
		assert.Equal(t, "2024-07-05", report.Table.Rows[0][2])
	}

	sc, err := screenerConfig(cfg, false)
	require.NoError(t, err)
	svc := newService(cfg, sc, buildSource(cfg, end), pool.Nop, newServiceMetrics(), log.NewNopLogger())
	report, err := svc.RunRSICap(context.Background(), rng, cfg.RSICap.Threshold, cfg.RSICapFloor())
	require.NoError(t, err)

	var tickers []string
	for _, r := range report.Table.Rows {
		tickers = append(tickers, r[0])
	}
	assert.Equal(t, []string{"000660", "051910", "086520"}, tickers)
	assert.Equal(t, "125000.00", report.Table.Rows[0][4])
}
