package strategy

import (
	"fmt"

	"MarketScreener/internal/calculator"
	"MarketScreener/internal/model"
)

// DefaultMAWindow is the MA20 breakout window.
const DefaultMAWindow = 20

// MovingAverageCrossover matches a close crossing above its moving average.
type MovingAverageCrossover struct {
	Window             int
	Mode               calculator.ScanMode
	RequireRisingClose bool
}

func (c MovingAverageCrossover) Kind() Kind { return KindMovingAverageBreakout }

func (c MovingAverageCrossover) MinBars() int { return c.Window + 1 }

// IndicatorName returns the column label of the reference average, e.g. "MA20".
func (c MovingAverageCrossover) IndicatorName() string { return fmt.Sprintf("MA%d", c.Window) }

func (c MovingAverageCrossover) Indicators(series *model.PriceSeries) (model.IndicatorSet, error) {
	ma, err := calculator.CalculateMA(series, c.Window)
	if err != nil {
		return model.IndicatorSet{}, fmt.Errorf("moving average: %w", err)
	}
	return model.IndicatorSet{MovingAverage: ma}, nil
}

func (c MovingAverageCrossover) Evaluate(series *model.PriceSeries, set model.IndicatorSet) (Signal, error) {
	scanner := calculator.Scanner{Mode: c.Mode, RequireRisingClose: c.RequireRisingClose}
	cross, ok, err := scanner.Scan(series, set.MovingAverage)
	if err != nil {
		return Signal{}, err
	}
	if !ok {
		return Signal{}, ErrNoMatch
	}
	return Signal{
		Index:         cross.Index,
		Date:          cross.Date,
		Price:         cross.Close,
		Indicator:     cross.Reference,
		IndicatorName: c.IndicatorName(),
	}, nil
}
