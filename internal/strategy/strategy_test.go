package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketScreener/internal/calculator"
	"MarketScreener/internal/model"
)

var day0 = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func makeSeries(closes ...float64) *model.PriceSeries {
	s := &model.PriceSeries{Instrument: "A"}
	for i, c := range closes {
		s.Bars = append(s.Bars, model.Bar{Date: day0.AddDate(0, 0, i), Close: c})
	}
	return s
}

func breakoutCloses() []float64 {
	var closes []float64
	for i := 0; i < 19; i++ {
		closes = append(closes, 100)
	}
	for i := 0; i < 9; i++ {
		closes = append(closes, 90)
	}
	for i := 0; i < 11; i++ {
		closes = append(closes, 130)
	}
	return closes
}

func evaluate(t *testing.T, c Criterion, series *model.PriceSeries) (Signal, error) {
	t.Helper()
	set, err := c.Indicators(series)
	require.NoError(t, err)
	return c.Evaluate(series, set)
}

func TestMovingAverageCrossover_Historical(t *testing.T) {
	c := MovingAverageCrossover{Window: 20, Mode: calculator.ScanHistorical}
	assert.Equal(t, 21, c.MinBars())
	assert.Equal(t, KindMovingAverageBreakout, c.Kind())

	sig, err := evaluate(t, c, makeSeries(breakoutCloses()...))
	require.NoError(t, err)
	assert.Equal(t, day0.AddDate(0, 0, 28), sig.Date)
	assert.Equal(t, 130.0, sig.Price)
	assert.InDelta(t, 97.0, sig.Indicator, 1e-9)
	assert.Equal(t, "MA20", sig.IndicatorName)
}

func TestMovingAverageCrossover_LatestMissesStaleBreakout(t *testing.T) {
	c := MovingAverageCrossover{Window: 20, Mode: calculator.ScanLatest}
	_, err := evaluate(t, c, makeSeries(breakoutCloses()...))
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestMovingAverageCrossover_NeverCrosses(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	_, err := evaluate(t, MovingAverageCrossover{Window: 20}, makeSeries(closes...))
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestRSIThreshold(t *testing.T) {
	falling := make([]float64, 30)
	rising := make([]float64, 30)
	for i := range falling {
		falling[i] = 100 - float64(i)
		rising[i] = 100 + float64(i)
	}

	tests := []struct {
		name      string
		criterion RSIThreshold
		closes    []float64
		wantErr   error
	}{
		{"falling below 30 matches", RSIThreshold{Period: 14, Threshold: 30}, falling, nil},
		{"rising below 30 does not match", RSIThreshold{Period: 14, Threshold: 30}, rising, ErrNoMatch},
		{"rising above 70 matches", RSIThreshold{Period: 14, Threshold: 70, Direction: DirectionAbove}, rising, nil},
		{"too short is indeterminate", RSIThreshold{Period: 14, Threshold: 30}, falling[:10], ErrIndeterminate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := evaluate(t, tt.criterion, makeSeries(tt.closes...))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "RSI", sig.IndicatorName)
			assert.Equal(t, len(tt.closes)-1, sig.Index)
			assert.Equal(t, tt.closes[len(tt.closes)-1], sig.Price)
		})
	}
}

func TestRSIThreshold_ExactThresholdIsNoMatch(t *testing.T) {
	c := RSIThreshold{Period: 14, Threshold: 100}
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	_, err := evaluate(t, c, makeSeries(closes...))
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestCapFilter(t *testing.T) {
	snap := &model.CapSnapshot{Caps: map[model.Instrument]float64{"A": 600e9, "B": 400e9}}
	f := &CapFilter{Floor: 500e9}

	assert.True(t, f.Passes("A", snap))
	assert.False(t, f.Passes("B", snap))
	assert.False(t, f.Passes("C", snap))
	assert.False(t, f.Passes("A", nil))

	var none *CapFilter
	assert.True(t, none.Passes("C", nil))
}

func TestCapFilter_FloorIsInclusive(t *testing.T) {
	snap := &model.CapSnapshot{Caps: map[model.Instrument]float64{"A": 500e9}}
	assert.True(t, (&CapFilter{Floor: 500e9}).Passes("A", snap))
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("above")
	require.NoError(t, err)
	assert.Equal(t, DirectionAbove, d)

	d, err = ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, DirectionBelow, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}
