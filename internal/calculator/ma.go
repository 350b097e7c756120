package calculator

import (
	"errors"

	"MarketScreener/internal/model"
)

var (
	// ErrInvalidPeriod is returned for a non-positive window or period.
	ErrInvalidPeriod = errors.New("period must be positive")
	// ErrNotEnoughData is returned when a single reading cannot be computed.
	ErrNotEnoughData = errors.New("not enough data")
)

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if len(prices) < period {
		return 0, ErrNotEnoughData
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// MovingAverage returns, for each index i, the mean of closes[i-window+1..i].
// The first window-1 entries are absent.
func MovingAverage(closes []float64, window int) ([]model.Value, error) {
	if window <= 0 {
		return nil, ErrInvalidPeriod
	}
	out := make([]model.Value, len(closes))
	for i := window - 1; i < len(closes); i++ {
		sma, err := CalculateSMA(closes[:i+1], window)
		if err != nil {
			return nil, err
		}
		out[i] = model.Present(sma)
	}
	return out, nil
}

// CalculateMA returns the moving-average series of the given bars.
func CalculateMA(series *model.PriceSeries, window int) ([]model.Value, error) {
	return MovingAverage(series.Closes(), window)
}
