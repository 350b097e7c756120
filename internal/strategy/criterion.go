package strategy

import (
	"errors"
	"time"

	"MarketScreener/internal/model"
)

var (
	// ErrNoMatch means the series was evaluated and did not satisfy the criterion.
	ErrNoMatch = errors.New("criterion not met")
	// ErrIndeterminate means the indicator had no reading at the evaluation point.
	ErrIndeterminate = errors.New("indicator value not available")
)

// Kind identifies a screen.
type Kind string

const (
	KindMovingAverageBreakout Kind = "ma_breakout"
	KindRSICap                Kind = "rsi_cap"
)

// Signal is the bar on which a criterion matched.
type Signal struct {
	Index         int
	Date          time.Time
	Price         float64
	Indicator     float64
	IndicatorName string
}

// Criterion is a screening policy evaluated against one price series.
type Criterion interface {
	Kind() Kind
	// MinBars is the number of bars required before evaluating.
	MinBars() int
	// Indicators computes the readings the criterion consumes.
	Indicators(series *model.PriceSeries) (model.IndicatorSet, error)
	// Evaluate returns the matching signal, ErrNoMatch or ErrIndeterminate.
	Evaluate(series *model.PriceSeries, set model.IndicatorSet) (Signal, error)
}
