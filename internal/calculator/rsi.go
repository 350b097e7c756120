package calculator

import "MarketScreener/internal/model"

// RSI computes the relative strength index for every bar.
//
// Average gain and loss are exponentially weighted with alpha = 1/period and
// bias-adjusted weights, so early readings are not pulled towards zero. A
// reading becomes available once period price changes have been observed.
// When the average loss is zero the RSI is 100.
func RSI(closes []float64, period int) ([]model.Value, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	out := make([]model.Value, len(closes))
	decay := 1 - 1/float64(period)

	var gainSum, lossSum, weight float64
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		gainSum = gain + decay*gainSum
		lossSum = loss + decay*lossSum
		weight = 1 + decay*weight

		if i < period {
			continue
		}
		avgGain := gainSum / weight
		avgLoss := lossSum / weight
		if avgLoss == 0 {
			out[i] = model.Present(100)
			continue
		}
		rs := avgGain / avgLoss
		out[i] = model.Present(100 - 100/(1+rs))
	}
	return out, nil
}
