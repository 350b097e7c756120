package collector

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"MarketScreener/internal/model"
)

// ErrUnknownInstrument is returned by MemorySource.ResolveName for unlisted symbols.
var ErrUnknownInstrument = errors.New("unknown instrument")

// MemorySource serves fixed data for development and testing.
type MemorySource struct {
	Universe map[string][]model.Instrument
	Series   map[model.Instrument][]model.Bar
	Caps     map[model.Instrument]float64
	Names    map[model.Instrument]string

	UniverseErr error
	CapErr      error
	PriceErr    map[model.Instrument]error
	// PricePanic makes FetchPriceSeries panic for the listed instruments.
	PricePanic map[model.Instrument]bool

	UniverseCalls atomic.Int64
	PriceCalls    atomic.Int64
	CapCalls      atomic.Int64
}

func (m *MemorySource) Name() string { return "memory" }

func (m *MemorySource) ListUniverse(_ context.Context, market string, _ time.Time) ([]model.Instrument, error) {
	m.UniverseCalls.Add(1)
	if m.UniverseErr != nil {
		return nil, m.UniverseErr
	}
	return append([]model.Instrument(nil), m.Universe[market]...), nil
}

func (m *MemorySource) FetchPriceSeries(ctx context.Context, instr model.Instrument, start, end time.Time) (*model.PriceSeries, error) {
	m.PriceCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.PricePanic[instr] {
		panic(fmt.Sprintf("memory source: forced panic for %s", instr))
	}
	if err := m.PriceErr[instr]; err != nil {
		return nil, err
	}
	series := &model.PriceSeries{Instrument: instr}
	for _, b := range m.Series[instr] {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		series.Bars = append(series.Bars, b)
	}
	return series, nil
}

func (m *MemorySource) FetchCapSnapshot(_ context.Context, asOf time.Time) (*model.CapSnapshot, error) {
	m.CapCalls.Add(1)
	if m.CapErr != nil {
		return nil, m.CapErr
	}
	caps := make(map[model.Instrument]float64, len(m.Caps))
	for k, v := range m.Caps {
		caps[k] = v
	}
	return &model.CapSnapshot{AsOf: asOf, Caps: caps}, nil
}

func (m *MemorySource) ResolveName(_ context.Context, instr model.Instrument) (string, error) {
	name, ok := m.Names[instr]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownInstrument, instr)
	}
	return name, nil
}

// GenerateBars builds count daily bars ending on end, drifting linearly from
// basePrice by step per bar. Weekends are skipped.
func GenerateBars(end time.Time, basePrice, step float64, count int) []model.Bar {
	bars := make([]model.Bar, count)
	d := model.TruncateDay(end)
	for i := count - 1; i >= 0; i-- {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, -1)
		}
		p := basePrice + step*float64(i)
		bars[i] = model.Bar{
			Date:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
		d = d.AddDate(0, 0, -1)
	}
	return bars
}

// NewDemoSource returns a small synthetic KOSPI/KOSDAQ universe ending on end,
// with one breakout, one oversold large cap and a few non-matching series.
func NewDemoSource(end time.Time) *MemorySource {
	const n = 70
	breakout := GenerateBars(end, 60000, -100, n)
	breakout[n-1].Close = 62000
	return &MemorySource{
		Universe: map[string][]model.Instrument{
			"KOSPI":  {"005930", "000660", "035420", "051910"},
			"KOSDAQ": {"247540", "086520"},
		},
		Series: map[model.Instrument][]model.Bar{
			"005930": breakout,
			"000660": GenerateBars(end, 180000, -800, n),
			"035420": GenerateBars(end, 150000, 300, n),
			"051910": GenerateBars(end, 400000, -1500, n),
			"247540": GenerateBars(end, 90000, 50, 12),
			"086520": GenerateBars(end, 500000, -2000, n),
		},
		Caps: map[model.Instrument]float64{
			"005930": 430e12,
			"000660": 125e12,
			"035420": 30e12,
			"051910": 28e12,
			"247540": 9e12,
			"086520": 11e12,
		},
		Names: map[model.Instrument]string{
			"005930": "Samsung Electronics",
			"000660": "SK hynix",
			"035420": "NAVER",
			"051910": "LG Chem",
			"247540": "Ecopro BM",
			"086520": "Ecopro",
		},
	}
}
