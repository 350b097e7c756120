package screener

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/shopspring/decimal"

	"MarketScreener/internal/collector"
	"MarketScreener/internal/model"
)

const (
	// DefaultCurrency labels the capitalization column.
	DefaultCurrency = "KRW"
	dateFormat      = "2006-01-02"
)

var billion = decimal.New(1, 9)

// Table is the tabular result of one screen.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Records returns the header followed by the rows.
func (t Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, append([]string(nil), t.Columns...))
	for _, r := range t.Rows {
		out = append(out, append([]string(nil), r...))
	}
	return out
}

// Aggregator turns screening results into a Table.
type Aggregator struct {
	Names    collector.NameResolver
	Currency string
	logger   log.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(names collector.NameResolver, currency string, logger log.Logger) *Aggregator {
	if currency == "" {
		currency = DefaultCurrency
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Aggregator{Names: names, Currency: currency, logger: logger}
}

// MovingAverageTable projects breakout results in the order given.
func (a *Aggregator) MovingAverageTable(ctx context.Context, results []model.ScreeningResult, indicatorName string) Table {
	t := Table{Columns: []string{"Ticker", "Name", "Date", "Price", indicatorName}}
	for _, r := range results {
		t.Rows = append(t.Rows, []string{
			string(r.Instrument),
			a.name(ctx, r.Instrument),
			r.Date.Format(dateFormat),
			formatPrice(r.Price),
			round2(r.Indicator).StringFixed(2),
		})
	}
	return t
}

// RSICapTable sorts by capitalization descending, ties by ticker, and
// rescales capitalization to billions.
func (a *Aggregator) RSICapTable(ctx context.Context, results []model.ScreeningResult) Table {
	sorted := append([]model.ScreeningResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ci, cj := sorted[i].MarketCap, sorted[j].MarketCap
		if ci.OK != cj.OK {
			return ci.OK
		}
		if ci.V != cj.V {
			return ci.V > cj.V
		}
		return sorted[i].Instrument < sorted[j].Instrument
	})

	t := Table{Columns: []string{"Ticker", "Name", "RSI", "Price", fmt.Sprintf("MarketCap (Billion %s)", a.Currency)}}
	for _, r := range sorted {
		capCell := ""
		if r.MarketCap.OK {
			capCell = decimal.NewFromFloat(r.MarketCap.V).Div(billion).Round(2).StringFixed(2)
		}
		t.Rows = append(t.Rows, []string{
			string(r.Instrument),
			a.name(ctx, r.Instrument),
			round2(r.Indicator).StringFixed(2),
			formatPrice(r.Price),
			capCell,
		})
	}
	return t
}

func (a *Aggregator) name(ctx context.Context, instr model.Instrument) string {
	if a.Names == nil {
		return ""
	}
	name, err := a.Names.ResolveName(ctx, instr)
	if err != nil {
		level.Warn(a.logger).Log("msg", "name resolution failed", "instrument", instr, "err", err)
		return ""
	}
	return name
}

func round2(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

func formatPrice(p float64) string {
	return decimal.NewFromFloat(p).String()
}
