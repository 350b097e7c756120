package collector

import (
	"context"
	"time"

	"MarketScreener/internal/model"
)

// UniverseLister lists the instruments of a market segment as of a trading date.
type UniverseLister interface {
	ListUniverse(ctx context.Context, market string, asOf time.Time) ([]model.Instrument, error)
}

// PriceFetcher returns daily bars of one instrument between start and end inclusive.
// An unknown instrument yields an empty series, not an error.
type PriceFetcher interface {
	FetchPriceSeries(ctx context.Context, instr model.Instrument, start, end time.Time) (*model.PriceSeries, error)
}

// CapFetcher returns the market capitalization snapshot for a trading date.
type CapFetcher interface {
	FetchCapSnapshot(ctx context.Context, asOf time.Time) (*model.CapSnapshot, error)
}

// NameResolver returns the display name of an instrument.
type NameResolver interface {
	ResolveName(ctx context.Context, instr model.Instrument) (string, error)
}

// MarketRecorder is implemented by price fetchers whose symbols depend on
// the market an instrument is listed in.
type MarketRecorder interface {
	RecordMarket(market string, instrs []model.Instrument)
}

// Source bundles every market-data capability the screener consumes.
type Source interface {
	UniverseLister
	PriceFetcher
	CapFetcher
	NameResolver
	Name() string
}

// Composite assembles a Source from separate providers, e.g. Yahoo prices
// combined with exchange listings from the REST provider.
type Composite struct {
	Universe UniverseLister
	Prices   PriceFetcher
	Caps     CapFetcher
	Names    NameResolver
	Label    string
}

func (c *Composite) Name() string { return c.Label }

// ListUniverse lists market and passes the listing on to a MarketRecorder price fetcher.
func (c *Composite) ListUniverse(ctx context.Context, market string, asOf time.Time) ([]model.Instrument, error) {
	instrs, err := c.Universe.ListUniverse(ctx, market, asOf)
	if err != nil {
		return nil, err
	}
	if rec, ok := c.Prices.(MarketRecorder); ok {
		rec.RecordMarket(market, instrs)
	}
	return instrs, nil
}

func (c *Composite) FetchPriceSeries(ctx context.Context, instr model.Instrument, start, end time.Time) (*model.PriceSeries, error) {
	return c.Prices.FetchPriceSeries(ctx, instr, start, end)
}

func (c *Composite) FetchCapSnapshot(ctx context.Context, asOf time.Time) (*model.CapSnapshot, error) {
	return c.Caps.FetchCapSnapshot(ctx, asOf)
}

func (c *Composite) ResolveName(ctx context.Context, instr model.Instrument) (string, error) {
	return c.Names.ResolveName(ctx, instr)
}
