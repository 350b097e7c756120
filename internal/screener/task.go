package screener

import (
	"context"
	"errors"

	"MarketScreener/internal/calculator"
	"MarketScreener/internal/collector"
	"MarketScreener/internal/model"
	"MarketScreener/internal/strategy"
)

// Task screens a single instrument. It is stateless and safe for concurrent use.
type Task struct {
	Prices    collector.PriceFetcher
	Criterion strategy.Criterion
	Range     model.DateRange

	// Filter is nil when the screen has no capitalization floor.
	Filter *strategy.CapFilter
	// Snapshot is the shared run-wide snapshot. When nil, Caps is asked for
	// a snapshot as of the instrument's latest bar.
	Snapshot *model.CapSnapshot
	Caps     collector.CapFetcher
}

// Screen runs the gates in order: price fetch, history length, capitalization,
// criterion. Any failure means no result for instr.
func (t *Task) Screen(ctx context.Context, instr model.Instrument) (model.ScreeningResult, error) {
	series, err := t.Prices.FetchPriceSeries(ctx, instr, t.Range.Start, t.Range.End)
	if err != nil {
		return model.ScreeningResult{}, &ExternalFetchError{Op: "fetch price series", Instrument: instr, Err: err}
	}
	if series.Len() == 0 {
		return model.ScreeningResult{}, ErrDataUnavailable
	}
	if series.Len() < t.Criterion.MinBars() {
		return model.ScreeningResult{}, ErrInsufficientHistory
	}

	set, err := t.Criterion.Indicators(series)
	if err != nil {
		if errors.Is(err, calculator.ErrNotEnoughData) {
			return model.ScreeningResult{}, ErrInsufficientHistory
		}
		return model.ScreeningResult{}, err
	}

	snap, err := t.snapshot(ctx, instr, series)
	if err != nil {
		return model.ScreeningResult{}, err
	}
	if !t.Filter.Passes(instr, snap) {
		return model.ScreeningResult{}, ErrFilteredOut
	}
	mcap := model.Absent
	if c, ok := snap.Lookup(instr); ok {
		mcap = model.Present(c)
	}

	sig, err := t.Criterion.Evaluate(series, set)
	if err != nil {
		return model.ScreeningResult{}, err
	}
	return model.ScreeningResult{
		Instrument:    instr,
		Date:          sig.Date,
		Price:         sig.Price,
		Indicator:     sig.Indicator,
		IndicatorName: sig.IndicatorName,
		MarketCap:     mcap,
	}, nil
}

func (t *Task) snapshot(ctx context.Context, instr model.Instrument, series *model.PriceSeries) (*model.CapSnapshot, error) {
	if t.Snapshot != nil || t.Filter == nil || t.Caps == nil {
		return t.Snapshot, nil
	}
	last, _ := series.Last()
	snap, err := t.Caps.FetchCapSnapshot(ctx, last.Date)
	if err != nil {
		return nil, &ExternalFetchError{Op: "fetch cap snapshot", Instrument: instr, Err: err}
	}
	return snap, nil
}
