package screener

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"

	"MarketScreener/internal/model"
)

// instrumentingMiddleware wraps Service and records run metrics.
type instrumentingMiddleware struct {
	runCount    metrics.Counter
	runDuration metrics.Histogram
	svc         Service
}

func (s *instrumentingMiddleware) RunMovingAverageBreakout(ctx context.Context, rng model.DateRange) (report Report, err error) {
	defer func(begin time.Time) { s.recordMetrics("RunMovingAverageBreakout", begin, report.Status) }(time.Now())
	return s.svc.RunMovingAverageBreakout(ctx, rng)
}

func (s *instrumentingMiddleware) RunRSICap(ctx context.Context, rng model.DateRange, threshold, capFloor float64) (report Report, err error) {
	defer func(begin time.Time) { s.recordMetrics("RunRSICap", begin, report.Status) }(time.Now())
	return s.svc.RunRSICap(ctx, rng, threshold, capFloor)
}

func (s *instrumentingMiddleware) recordMetrics(method string, startTime time.Time, status Status) {
	labels := []string{
		"method", method,
		"status", string(status),
	}
	s.runCount.With(labels...).Add(1)
	s.runDuration.With(labels...).Observe(time.Since(startTime).Seconds())
}

// NewInstrumentingMiddleware counts screening runs and observes their duration, labelled by method and status.
func NewInstrumentingMiddleware(runCount metrics.Counter, runDuration metrics.Histogram, svc Service) Service {
	return &instrumentingMiddleware{
		runCount:    runCount,
		runDuration: runDuration,
		svc:         svc,
	}
}
