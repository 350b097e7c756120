package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"MarketScreener/internal/model"
)

// DefaultMarkets are the segments screened when none are configured.
var DefaultMarkets = []string{"KOSPI", "KOSDAQ"}

// DefaultBusinessDayProbe bounds how far RecentBusinessDay walks back.
const DefaultBusinessDayProbe = 10

// Collector resolves the universe for a run.
type Collector struct {
	Source  Source
	Markets []string
	logger  log.Logger
}

// NewCollector creates a new Collector.
func NewCollector(src Source, markets []string, logger log.Logger) *Collector {
	if len(markets) == 0 {
		markets = DefaultMarkets
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Collector{Source: src, Markets: markets, logger: logger}
}

// Universe lists every configured market as of asOf, concatenated in market
// order with duplicates dropped. first, when non-nil, is the first market's
// listing as returned by RecentBusinessDay and is not fetched again.
func (c *Collector) Universe(ctx context.Context, asOf time.Time, first []model.Instrument) ([]model.Instrument, error) {
	seen := make(map[model.Instrument]struct{})
	var out []model.Instrument
	for i, market := range c.Markets {
		instrs := first
		if i > 0 || first == nil {
			var err error
			if instrs, err = c.Source.ListUniverse(ctx, market, asOf); err != nil {
				return nil, fmt.Errorf("list %s: %w", market, err)
			}
		}
		level.Debug(c.logger).Log("msg", "universe listed", "market", market, "count", len(instrs))
		for _, in := range instrs {
			if _, dup := seen[in]; dup {
				continue
			}
			seen[in] = struct{}{}
			out = append(out, in)
		}
	}
	return out, nil
}

// RecentBusinessDay returns the latest date not after from whose first market
// listing is non-empty, probing at most maxDays calendar days. The listing
// found is returned with it.
func (c *Collector) RecentBusinessDay(ctx context.Context, from time.Time, maxDays int) (time.Time, []model.Instrument, error) {
	if maxDays <= 0 {
		maxDays = DefaultBusinessDayProbe
	}
	day := model.TruncateDay(from)
	for i := 0; i < maxDays; i++ {
		if err := ctx.Err(); err != nil {
			return time.Time{}, nil, err
		}
		instrs, err := c.Source.ListUniverse(ctx, c.Markets[0], day)
		if err != nil {
			return time.Time{}, nil, fmt.Errorf("probe %s: %w", day.Format("2006-01-02"), err)
		}
		if len(instrs) > 0 {
			return day, instrs, nil
		}
		day = day.AddDate(0, 0, -1)
	}
	return time.Time{}, nil, fmt.Errorf("no business day within %d days of %s", maxDays, from.Format("2006-01-02"))
}
