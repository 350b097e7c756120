package recorder

import (
	"time"

	"MarketScreener/internal/screener"
)

// RunSummary is one persisted screening run.
type RunSummary struct {
	RunID      string
	Screen     string
	AsOf       time.Time
	Status     string
	Stats      screener.Stats
	Rows       int
	OutputPath string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Recorder persists screening history for later analysis.
type Recorder interface {
	// RecordRun stores the report and its result rows. runErr is the run-level
	// failure, if any; outputPath is where the table was exported.
	RecordRun(report *screener.Report, outputPath string, runErr error) error
	// RecentRuns returns up to limit runs, newest first.
	RecentRuns(limit int) ([]RunSummary, error)
	Close() error
}
