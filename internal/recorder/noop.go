package recorder

import "MarketScreener/internal/screener"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *screener.Report, _ string, _ error) error { return nil }
func (n *NoopRecorder) RecentRuns(_ int) ([]RunSummary, error)                { return nil, nil }
func (n *NoopRecorder) Close() error                                          { return nil }
