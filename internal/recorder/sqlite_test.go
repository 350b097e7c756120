package recorder

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketScreener/internal/screener"
	"MarketScreener/internal/strategy"
)

func sampleReport(id string, started time.Time) *screener.Report {
	return &screener.Report{
		RunID:  id,
		Screen: strategy.KindRSICap,
		AsOf:   time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC),
		Table: screener.Table{
			Columns: []string{"Ticker", "Name", "RSI", "Price", "MarketCap (Billion KRW)"},
			Rows: [][]string{
				{"005930", "삼성전자", "28.41", "71000", "423912.50"},
				{"000660", "SK하이닉스", "25.10", "120000", "87362.00"},
			},
		},
		Status:     screener.StatusSuccess,
		Stats:      screener.Stats{Total: 10, Completed: 10, Matched: 2, Skipped: 7, Failed: 1},
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
	}
}

func TestSQLiteRecorder(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)
	defer r.Close()

	t0 := time.Date(2024, 7, 5, 16, 0, 0, 0, time.UTC)
	require.NoError(t, r.RecordRun(sampleReport("run-1", t0), "out/low_rsi_high_cap_stocks.csv", nil))

	failed := &screener.Report{RunID: "run-2", Screen: strategy.KindMovingAverageBreakout,
		Status: screener.StatusError, StartedAt: t0.Add(time.Hour)}
	require.NoError(t, r.RecordRun(failed, "", errors.New("universe unavailable")))

	runs, err := r.RecentRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].RunID)
	assert.Equal(t, "error", runs[0].Status)
	assert.Equal(t, "universe unavailable", runs[0].Error)
	assert.True(t, runs[0].AsOf.IsZero())

	assert.Equal(t, "run-1", runs[1].RunID)
	assert.Equal(t, "rsi_cap", runs[1].Screen)
	assert.Equal(t, 2, runs[1].Rows)
	assert.Equal(t, 1, runs[1].Stats.Failed)
	assert.Equal(t, t0, runs[1].StartedAt)

	var count int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM screen_results WHERE run_id = ?`, "run-1").Scan(&count))
	assert.Equal(t, 2, count)

	var name string
	require.NoError(t, r.db.QueryRow(`SELECT name FROM screen_results WHERE run_id = ? AND position = 0`, "run-1").Scan(&name))
	assert.Equal(t, "삼성전자", name)
}

func TestSQLiteRecorderRejectsDuplicateRunID(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)
	defer r.Close()

	rep := sampleReport("dup", time.Now())
	require.NoError(t, r.RecordRun(rep, "", nil))
	assert.Error(t, r.RecordRun(rep, "", nil))

	runs, err := r.RecentRuns(0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordRun(sampleReport("x", time.Now()), "", nil))
	runs, err := r.RecentRuns(1)
	assert.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, r.Close())
}
