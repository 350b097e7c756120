package screener

import (
	"context"
	"errors"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"

	"MarketScreener/internal/model"
	"MarketScreener/internal/pool"
)

// Task outcome labels.
const (
	outcomeMatched = "matched"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
)

// Stats summarizes one executor run.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Matched   int `json:"matched"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Executor fans a Task out over a universe with a bounded pool.
type Executor struct {
	Workers     int
	TaskTimeout time.Duration

	logger   log.Logger
	outcomes metrics.Counter
}

// NewExecutor creates an executor. A nil counter discards outcome metrics.
func NewExecutor(workers int, taskTimeout time.Duration, logger log.Logger, outcomes metrics.Counter) *Executor {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if outcomes == nil {
		outcomes = discard.NewCounter()
	}
	return &Executor{Workers: workers, TaskTimeout: taskTimeout, logger: logger, outcomes: outcomes}
}

// Execute screens every instrument and returns the matches in completion order.
// Per-instrument failures are logged and counted, never returned. The only
// error is cancellation of ctx.
func (e *Executor) Execute(ctx context.Context, universe []model.Instrument, task *Task, obs pool.Observer) ([]model.ScreeningResult, Stats, error) {
	units := make([]pool.Unit[model.ScreeningResult], len(universe))
	for i, instr := range universe {
		instr := instr // per-iteration copy (go directive is 1.21)
		units[i] = func(ctx context.Context) (model.ScreeningResult, error) {
			return task.Screen(ctx, instr)
		}
	}

	outcomes, err := pool.Run(ctx, e.Workers, e.TaskTimeout, units, obs)
	if err != nil {
		return nil, Stats{Total: len(universe)}, err
	}

	stats := Stats{Total: len(universe), Completed: len(outcomes)}
	var results []model.ScreeningResult
	for _, o := range outcomes {
		instr := universe[o.Index]
		switch {
		case o.Err == nil:
			stats.Matched++
			results = append(results, o.Value)
			e.outcomes.With("outcome", outcomeMatched).Add(1)
		case isExpected(o.Err):
			stats.Skipped++
			e.outcomes.With("outcome", outcomeSkipped).Add(1)
			if errors.Is(o.Err, ErrDataUnavailable) {
				level.Debug(e.logger).Log("msg", "no price data", "instrument", instr)
			}
		default:
			stats.Failed++
			e.outcomes.With("outcome", outcomeFailed).Add(1)
			e.logFailure(instr, o.Err)
		}
	}
	return results, stats, nil
}

func (e *Executor) logFailure(instr model.Instrument, err error) {
	var pe *pool.PanicError
	switch {
	case errors.As(err, &pe):
		level.Warn(e.logger).Log("msg", "task panicked", "instrument", instr, "err", err, "stack", string(pe.Stack))
	case errors.Is(err, pool.ErrTimeout):
		level.Warn(e.logger).Log("msg", "task timed out", "instrument", instr, "timeout", e.TaskTimeout)
	default:
		level.Warn(e.logger).Log("msg", "task failed", "instrument", instr, "err", err)
	}
}
