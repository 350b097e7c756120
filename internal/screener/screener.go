// Package screener runs the moving-average breakout and RSI/capitalization
// screens over a market universe.
package screener

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-kit/kit/metrics"
	"github.com/google/uuid"

	"MarketScreener/internal/calculator"
	"MarketScreener/internal/collector"
	"MarketScreener/internal/model"
	"MarketScreener/internal/pool"
	"MarketScreener/internal/strategy"
)

// Status is the outcome of a screen.
type Status string

const (
	StatusSuccess Status = "success"
	StatusEmpty   Status = "empty"
	StatusError   Status = "error"
)

// Report is what an entry point returns.
type Report struct {
	RunID      string        `json:"run_id"`
	Screen     strategy.Kind `json:"screen"`
	AsOf       time.Time     `json:"as_of"`
	Table      Table         `json:"table"`
	Status     Status        `json:"status"`
	Stats      Stats         `json:"stats"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Service exposes one entry point per screen.
type Service interface {
	RunMovingAverageBreakout(ctx context.Context, rng model.DateRange) (Report, error)
	RunRSICap(ctx context.Context, rng model.DateRange, threshold, capFloor float64) (Report, error)
}

// Config holds the screening parameters.
type Config struct {
	Workers          int
	TaskTimeout      time.Duration
	SnapshotMode     collector.SnapshotMode
	Currency         string
	BusinessDayProbe int

	MAWindow           int
	MAScanMode         calculator.ScanMode
	RequireRisingClose bool
	// MACapFloor of zero disables the capitalization filter for the breakout screen.
	MACapFloor float64

	RSIPeriod    int
	RSIDirection strategy.Direction
}

// DefaultConfig mirrors the defaults of the daily screening scripts.
func DefaultConfig() Config {
	return Config{
		Workers:          pool.DefaultSize(),
		SnapshotMode:     collector.SnapshotShared,
		Currency:         DefaultCurrency,
		BusinessDayProbe: collector.DefaultBusinessDayProbe,
		MAWindow:         strategy.DefaultMAWindow,
		MAScanMode:       calculator.ScanHistorical,
		MACapFloor:       300e9,
		RSIPeriod:        strategy.DefaultRSIPeriod,
		RSIDirection:     strategy.DirectionBelow,
	}
}

// Option configures the service.
type Option func(*screenerService)

// WithObserver reports task progress to obs.
func WithObserver(obs pool.Observer) Option {
	return func(s *screenerService) { s.observer = obs }
}

// WithOutcomeCounter counts task outcomes, labelled by "outcome".
func WithOutcomeCounter(c metrics.Counter) Option {
	return func(s *screenerService) { s.outcomes = c }
}

type screenerService struct {
	cfg       Config
	source    collector.Source
	collector *collector.Collector
	aggr      *Aggregator
	observer  pool.Observer
	outcomes  metrics.Counter
	logger    log.Logger
	now       func() time.Time
}

// NewService builds the screening service over src for the given markets.
func NewService(cfg Config, src collector.Source, markets []string, logger log.Logger, opts ...Option) Service {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	s := &screenerService{
		cfg:       cfg,
		source:    src,
		collector: collector.NewCollector(src, markets, logger),
		aggr:      NewAggregator(src, cfg.Currency, logger),
		observer:  pool.Nop,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *screenerService) RunMovingAverageBreakout(ctx context.Context, rng model.DateRange) (Report, error) {
	crit := strategy.MovingAverageCrossover{
		Window:             s.cfg.MAWindow,
		Mode:               s.cfg.MAScanMode,
		RequireRisingClose: s.cfg.RequireRisingClose,
	}
	var filter *strategy.CapFilter
	if s.cfg.MACapFloor > 0 {
		filter = &strategy.CapFilter{Floor: s.cfg.MACapFloor}
	}
	return s.run(ctx, rng, crit, filter, func(results []model.ScreeningResult) Table {
		return s.aggr.MovingAverageTable(ctx, results, crit.IndicatorName())
	})
}

func (s *screenerService) RunRSICap(ctx context.Context, rng model.DateRange, threshold, capFloor float64) (Report, error) {
	crit := strategy.RSIThreshold{
		Period:    s.cfg.RSIPeriod,
		Threshold: threshold,
		Direction: s.cfg.RSIDirection,
	}
	return s.run(ctx, rng, crit, &strategy.CapFilter{Floor: capFloor}, func(results []model.ScreeningResult) Table {
		return s.aggr.RSICapTable(ctx, results)
	})
}

func (s *screenerService) run(ctx context.Context, rng model.DateRange, crit strategy.Criterion, filter *strategy.CapFilter, project func([]model.ScreeningResult) Table) (Report, error) {
	report := Report{RunID: uuid.NewString(), Screen: crit.Kind(), StartedAt: s.now(), Status: StatusError}
	fail := func(err error) (Report, error) {
		report.FinishedAt = s.now()
		return report, err
	}

	asOf, first, err := s.collector.RecentBusinessDay(ctx, rng.End, s.cfg.BusinessDayProbe)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrUniverseUnavailable, err))
	}
	report.AsOf = asOf
	universe, err := s.collector.Universe(ctx, asOf, first)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrUniverseUnavailable, err))
	}

	task := &Task{Prices: s.source, Criterion: crit, Range: rng, Filter: filter}
	if filter != nil {
		switch s.cfg.SnapshotMode {
		case collector.SnapshotPerTask:
			task.Caps = collector.NewSnapshotCache(s.source)
		default:
			snap, err := s.source.FetchCapSnapshot(ctx, asOf)
			if err != nil {
				return fail(fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err))
			}
			task.Snapshot = snap
			universe = prefilter(universe, filter, snap)
		}
	}
	level.Info(s.logger).Log("msg", "screen started", "run_id", report.RunID, "screen", crit.Kind(), "as_of", asOf.Format(dateFormat),
		"universe", len(universe), "snapshot_mode", s.cfg.SnapshotMode)

	exec := NewExecutor(s.cfg.Workers, s.cfg.TaskTimeout, s.logger, s.outcomes)
	results, stats, err := exec.Execute(ctx, universe, task, s.observer)
	report.Stats = stats
	if err != nil {
		return fail(err)
	}

	report.Table = project(results)
	report.Status = StatusSuccess
	if report.Table.Len() == 0 {
		report.Status = StatusEmpty
	}
	report.FinishedAt = s.now()
	return report, nil
}

// prefilter drops instruments the shared snapshot already rules out.
func prefilter(universe []model.Instrument, filter *strategy.CapFilter, snap *model.CapSnapshot) []model.Instrument {
	out := make([]model.Instrument, 0, len(universe))
	for _, instr := range universe {
		if filter.Passes(instr, snap) {
			out = append(out, instr)
		}
	}
	return out
}
