package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketScreener/internal/exporter"
	"MarketScreener/internal/model"
	"MarketScreener/internal/recorder"
	"MarketScreener/internal/screener"
	"MarketScreener/internal/strategy"
)

type fakeService struct {
	mu         sync.Mutex
	ranges     []model.DateRange
	thresholds []float64
	err        error

	// started and release, when set, hold a breakout run until released.
	started chan struct{}
	release chan struct{}
}

func (f *fakeService) report(kind strategy.Kind) screener.Report {
	return screener.Report{
		RunID:  string(kind) + "-1",
		Screen: kind,
		Status: screener.StatusSuccess,
		Table: screener.Table{
			Columns: []string{"Ticker", "Name"},
			Rows:    [][]string{{"005930", "Samsung Electronics"}},
		},
	}
}

func (f *fakeService) RunMovingAverageBreakout(_ context.Context, rng model.DateRange) (screener.Report, error) {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranges = append(f.ranges, rng)
	if f.err != nil {
		return screener.Report{Screen: strategy.KindMovingAverageBreakout, Status: screener.StatusError}, f.err
	}
	return f.report(strategy.KindMovingAverageBreakout), nil
}

func (f *fakeService) RunRSICap(_ context.Context, rng model.DateRange, threshold, _ float64) (screener.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranges = append(f.ranges, rng)
	f.thresholds = append(f.thresholds, threshold)
	return f.report(strategy.KindRSICap), f.err
}

type fakeSender struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

type fakeRecorder struct {
	recorder.NoopRecorder
	mu    sync.Mutex
	paths []string
	errs  []error
}

func (f *fakeRecorder) RecordRun(_ *screener.Report, path string, runErr error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	f.errs = append(f.errs, runErr)
	return nil
}

func newTestScheduler(t *testing.T, svc screener.Service) (*Scheduler, *fakeSender, *fakeRecorder) {
	t.Helper()
	sender, rec := &fakeSender{}, &fakeRecorder{}
	w := exporter.NewWriter(t.TempDir(), exporter.FormatCSV, nil)
	s := NewScheduler(context.Background(), svc, w, sender, rec, Options{
		LookbackDays: 100, RSIThreshold: 30, RSICapFloor: 500e9,
	}, nil)
	s.now = func() time.Time { return time.Date(2024, 7, 5, 18, 30, 0, 0, time.UTC) }
	return s, sender, rec
}

func TestRunMovingAverageExportsRecordsAndNotifies(t *testing.T) {
	svc := &fakeService{}
	s, sender, rec := newTestScheduler(t, svc)

	_, err := s.RunMovingAverage(context.Background())
	require.NoError(t, err)

	require.Len(t, svc.ranges, 1)
	assert.Equal(t, time.Date(2024, 3, 27, 0, 0, 0, 0, time.UTC), svc.ranges[0].Start)
	assert.Equal(t, time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC), svc.ranges[0].End)

	require.Len(t, rec.paths, 1)
	assert.Equal(t, "stocks_to_buy.csv", filepath.Base(rec.paths[0]))
	_, statErr := os.Stat(rec.paths[0])
	assert.NoError(t, statErr)

	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0], "MA breakout")
	assert.Contains(t, sender.messages[0], "Samsung Electronics")
}

func TestRunFailureIsReported(t *testing.T) {
	svc := &fakeService{err: errors.New("universe unavailable")}
	s, sender, rec := newTestScheduler(t, svc)

	_, err := s.RunMovingAverage(context.Background())
	require.Error(t, err)
	require.Len(t, rec.errs, 1)
	assert.EqualError(t, rec.errs[0], "universe unavailable")
	assert.Equal(t, "", rec.paths[0])
	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0], "failed")
}

func TestHandleCommand(t *testing.T) {
	svc := &fakeService{}
	s, sender, _ := newTestScheduler(t, svc)
	ctx := context.Background()

	assert.Equal(t, "RSI screen started.", s.HandleCommand(ctx, "/rsi 25"))
	s.Wait()
	assert.Equal(t, "RSI screen started.", s.HandleCommand(ctx, "/rsi"))
	s.Wait()
	assert.Equal(t, []float64{25, 30}, svc.thresholds)
	assert.Len(t, sender.messages, 2)

	assert.Contains(t, s.HandleCommand(ctx, "/rsi abc"), "invalid RSI threshold")
	assert.Contains(t, s.HandleCommand(ctx, "/rsi 150"), "invalid RSI threshold")
	assert.Len(t, svc.thresholds, 2)

	assert.Equal(t, "MA breakout started.", s.HandleCommand(ctx, "/ma"))
	s.Wait()
	assert.Len(t, svc.ranges, 3)

	assert.Equal(t, "No runs recorded yet.", s.HandleCommand(ctx, "/history"))
	assert.Contains(t, s.HandleCommand(ctx, "/unknown"), "/help")
	assert.Contains(t, s.HandleCommand(ctx, "  "), "/ma")
}

func TestCommandDoesNotOverlapRunningScreen(t *testing.T) {
	svc := &fakeService{started: make(chan struct{}), release: make(chan struct{})}
	s, sender, rec := newTestScheduler(t, svc)
	ctx := context.Background()

	assert.Equal(t, "MA breakout started.", s.HandleCommand(ctx, "/ma"))
	<-svc.started

	// The polling loop is not blocked and a second request is refused.
	assert.Equal(t, "MA breakout is already running.", s.HandleCommand(ctx, "/ma"))
	_, err := s.RunMovingAverage(ctx)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	// Other screens are independent.
	assert.Equal(t, "RSI screen started.", s.HandleCommand(ctx, "/rsi"))

	close(svc.release)
	s.Stop()

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Len(t, svc.ranges, 2)
	assert.Len(t, svc.thresholds, 1)
	assert.Len(t, rec.paths, 2)
	assert.Len(t, sender.messages, 2)
}

func TestRegisterAll(t *testing.T) {
	s, _, _ := newTestScheduler(t, &fakeService{})
	require.NoError(t, s.RegisterAll("0 40 15 * * 1-5", "0 0 16 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 2)

	s2, _, _ := newTestScheduler(t, &fakeService{})
	assert.Error(t, s2.RegisterAll("not a cron", "0 0 16 * * 1-5"))
}
