package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/robfig/cron/v3"

	"MarketScreener/internal/exporter"
	"MarketScreener/internal/model"
	"MarketScreener/internal/notifier"
	"MarketScreener/internal/recorder"
	"MarketScreener/internal/screener"
	"MarketScreener/internal/strategy"
)

const sendRetries = 3

// ErrAlreadyRunning is returned when a screen is started while a run of the
// same screen is still in progress.
var ErrAlreadyRunning = errors.New("screen already running")

// Options are the run parameters of scheduled and on-demand screens.
type Options struct {
	LookbackDays int
	RSIThreshold float64
	RSICapFloor  float64
	MaxRows      int
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Service  screener.Service
	Exporter *exporter.Writer
	Notifier notifier.Sender
	Recorder recorder.Recorder
	Opts     Options
	Ctx      context.Context

	logger log.Logger
	now    func() time.Time

	maRun  sync.Mutex
	rsiRun sync.Mutex
	jobs   sync.WaitGroup
}

// NewScheduler creates a new Scheduler. Overlapping runs of the same job are skipped.
func NewScheduler(ctx context.Context, svc screener.Service, w *exporter.Writer, n notifier.Sender, rec recorder.Recorder, opts Options, logger log.Logger) *Scheduler {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	cl := cronLogger{logger}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		Service:  svc,
		Exporter: w,
		Notifier: n,
		Recorder: rec,
		Opts:     opts,
		Ctx:      ctx,
		logger:   logger,
		now:      time.Now,
	}
}

// RegisterAll registers the daily breakout alert and the RSI/cap screen.
func (s *Scheduler) RegisterAll(maCron, rsiCron string) error {
	if _, err := s.Cron.AddFunc(maCron, func() { s.RunMovingAverage(s.Ctx) }); err != nil {
		return fmt.Errorf("register ma task: %w", err)
	}
	if _, err := s.Cron.AddFunc(rsiCron, func() { s.RunRSICap(s.Ctx, s.Opts.RSIThreshold) }); err != nil {
		return fmt.Errorf("register rsi task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	level.Info(s.logger).Log("msg", "scheduler started", "jobs", len(s.Cron.Entries()))
}

// Stop stops the cron scheduler and waits for running jobs, including
// those started by chat commands.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Wait()
	level.Info(s.logger).Log("msg", "scheduler stopped")
}

// Wait blocks until every screen started by a chat command has finished.
func (s *Scheduler) Wait() {
	s.jobs.Wait()
}

// RunMovingAverage runs the breakout screen, then exports, records and notifies.
// It returns ErrAlreadyRunning without side effects while another breakout run is in progress.
func (s *Scheduler) RunMovingAverage(ctx context.Context) (screener.Report, error) {
	if !s.maRun.TryLock() {
		level.Warn(s.logger).Log("msg", "ma breakout task skipped", "err", ErrAlreadyRunning)
		return screener.Report{}, ErrAlreadyRunning
	}
	defer s.maRun.Unlock()
	level.Info(s.logger).Log("msg", "running ma breakout task")
	report, err := s.Service.RunMovingAverageBreakout(ctx, s.lookback())
	s.finish(ctx, strategy.KindMovingAverageBreakout, exporter.MovingAverageFile, &report, err)
	return report, err
}

// RunRSICap runs the RSI/cap screen, then exports, records and notifies.
func (s *Scheduler) RunRSICap(ctx context.Context, threshold float64) (screener.Report, error) {
	if !s.rsiRun.TryLock() {
		level.Warn(s.logger).Log("msg", "rsi cap task skipped", "err", ErrAlreadyRunning)
		return screener.Report{}, ErrAlreadyRunning
	}
	defer s.rsiRun.Unlock()
	level.Info(s.logger).Log("msg", "running rsi cap task", "threshold", threshold)
	report, err := s.Service.RunRSICap(ctx, s.lookback(), threshold, s.Opts.RSICapFloor)
	s.finish(ctx, strategy.KindRSICap, exporter.RSICapFile, &report, err)
	return report, err
}

func (s *Scheduler) lookback() model.DateRange {
	return model.LookbackRange(s.now(), s.Opts.LookbackDays)
}

func (s *Scheduler) finish(ctx context.Context, kind strategy.Kind, file string, report *screener.Report, runErr error) {
	var path string
	if runErr == nil && s.Exporter != nil {
		p, err := s.Exporter.Write(file, report.Table.Records())
		if err != nil {
			level.Error(s.logger).Log("msg", "export results", "err", err)
		}
		path = p
	}

	if err := s.Recorder.RecordRun(report, path, runErr); err != nil {
		level.Error(s.logger).Log("msg", "record run", "run_id", report.RunID, "err", err)
	}

	if runErr != nil {
		s.trySend(ctx, notifier.FormatFailure(kind, runErr))
		return
	}
	s.trySend(ctx, notifier.FormatReport(report, s.Opts.MaxRows))
}

// HandleCommand processes a user command and returns a reply. Screens run in
// the background; their results arrive as separate messages.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	switch fields[0] {
	case "/ma":
		return s.startCommand(&s.maRun, "MA breakout", func() { s.RunMovingAverage(ctx) })
	case "/rsi":
		threshold := s.Opts.RSIThreshold
		if len(fields) > 1 {
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil || v <= 0 || v >= 100 {
				return fmt.Sprintf("invalid RSI threshold %q, expected a number between 0 and 100", fields[1])
			}
			threshold = v
		}
		return s.startCommand(&s.rsiRun, "RSI screen", func() { s.RunRSICap(ctx, threshold) })
	case "/history":
		runs, err := s.Recorder.RecentRuns(5)
		if err != nil {
			level.Error(s.logger).Log("msg", "load history", "err", err)
			return "history unavailable"
		}
		return notifier.FormatHistory(runs)
	default:
		return notifier.FormatHelp()
	}
}

// startCommand launches run unless the screen guarded by mu is busy. The
// check is advisory; the run itself takes mu.
func (s *Scheduler) startCommand(mu *sync.Mutex, label string, run func()) string {
	if !mu.TryLock() {
		return label + " is already running."
	}
	mu.Unlock()
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		run()
	}()
	return label + " started."
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, sendRetries); err != nil {
		level.Error(s.logger).Log("msg", "send notification", "err", err)
	}
}

// cronLogger adapts a go-kit logger to cron.Logger.
type cronLogger struct {
	logger log.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	level.Debug(l.logger).Log(append([]interface{}{"msg", "cron: " + msg}, keysAndValues...)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	level.Error(l.logger).Log(append([]interface{}{"msg", "cron: " + msg, "err", err}, keysAndValues...)...)
}
