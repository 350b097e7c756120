package strategy

import (
	"fmt"
	"strings"

	"MarketScreener/internal/calculator"
	"MarketScreener/internal/model"
)

const (
	DefaultRSIPeriod    = 14
	DefaultRSIThreshold = 30.0
)

// Direction is the side of the threshold that matches.
type Direction int

const (
	DirectionBelow Direction = iota
	DirectionAbove
)

func (d Direction) String() string {
	if d == DirectionAbove {
		return "above"
	}
	return "below"
}

// ParseDirection converts a config value into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "below":
		return DirectionBelow, nil
	case "above":
		return DirectionAbove, nil
	default:
		return DirectionBelow, fmt.Errorf("unknown direction %q", s)
	}
}

// RSIThreshold matches when the latest RSI reading is strictly beyond Threshold.
type RSIThreshold struct {
	Period    int
	Threshold float64
	Direction Direction
}

func (c RSIThreshold) Kind() Kind { return KindRSICap }

func (c RSIThreshold) MinBars() int { return c.Period + 1 }

func (c RSIThreshold) Indicators(series *model.PriceSeries) (model.IndicatorSet, error) {
	rsi, err := calculator.RSI(series.Closes(), c.Period)
	if err != nil {
		return model.IndicatorSet{}, fmt.Errorf("rsi: %w", err)
	}
	return model.IndicatorSet{RSI: rsi}, nil
}

func (c RSIThreshold) Evaluate(series *model.PriceSeries, set model.IndicatorSet) (Signal, error) {
	if len(set.RSI) != series.Len() {
		return Signal{}, calculator.ErrLengthMismatch
	}
	i, v := model.LatestPresent(set.RSI)
	if !v.OK {
		return Signal{}, ErrIndeterminate
	}
	hit := v.Below(c.Threshold)
	if c.Direction == DirectionAbove {
		hit = v.Above(c.Threshold)
	}
	if !hit {
		return Signal{}, ErrNoMatch
	}
	bar := series.Bars[i]
	return Signal{
		Index:         i,
		Date:          bar.Date,
		Price:         bar.Close,
		Indicator:     v.V,
		IndicatorName: "RSI",
	}, nil
}
