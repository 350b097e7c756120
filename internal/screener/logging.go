package screener

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"MarketScreener/internal/model"
)

// loggingMiddleware wraps Service and logs each run to the provided logger.
type loggingMiddleware struct {
	logger log.Logger
	svc    Service
}

func (s *loggingMiddleware) RunMovingAverageBreakout(ctx context.Context, rng model.DateRange) (report Report, err error) {
	defer func(begin time.Time) {
		_ = s.wrap(err).Log(
			"method", "RunMovingAverageBreakout",
			"start", rng.Start.Format(dateFormat),
			"end", rng.End.Format(dateFormat),
			"run_id", report.RunID,
			"status", report.Status,
			"rows", report.Table.Len(),
			"failed", report.Stats.Failed,
			"err", err,
			"elapsed", time.Since(begin),
		)
	}(time.Now())
	return s.svc.RunMovingAverageBreakout(ctx, rng)
}

func (s *loggingMiddleware) RunRSICap(ctx context.Context, rng model.DateRange, threshold, capFloor float64) (report Report, err error) {
	defer func(begin time.Time) {
		_ = s.wrap(err).Log(
			"method", "RunRSICap",
			"start", rng.Start.Format(dateFormat),
			"end", rng.End.Format(dateFormat),
			"threshold", threshold,
			"cap_floor", capFloor,
			"run_id", report.RunID,
			"status", report.Status,
			"rows", report.Table.Len(),
			"failed", report.Stats.Failed,
			"err", err,
			"elapsed", time.Since(begin),
		)
	}(time.Now())
	return s.svc.RunRSICap(ctx, rng, threshold, capFloor)
}

func (s *loggingMiddleware) wrap(err error) log.Logger {
	lvl := level.Info
	if err != nil {
		lvl = level.Error
	}
	return lvl(s.logger)
}

// NewLoggingMiddleware logs every screening run with its parameters, outcome and duration.
func NewLoggingMiddleware(logger log.Logger, svc Service) Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}
