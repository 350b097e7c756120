package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"MarketScreener/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// DefaultYahooSuffixes maps market segments to Yahoo symbol suffixes.
var DefaultYahooSuffixes = map[string]string{
	"KOSPI":  ".KS",
	"KOSDAQ": ".KQ",
}

// YahooSource implements PriceFetcher using the Yahoo Finance chart API.
// Exchange codes are suffixed by market; see RecordMarket.
type YahooSource struct {
	Client   *http.Client
	BaseURL  string
	Suffixes map[string]string

	mu      sync.RWMutex
	markets map[model.Instrument]string
}

// NewYahooSource creates a new Yahoo Finance price source. A nil suffixes
// map selects DefaultYahooSuffixes.
func NewYahooSource(proxyURL string, suffixes map[string]string) *YahooSource {
	if len(suffixes) == 0 {
		suffixes = DefaultYahooSuffixes
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooSource{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		BaseURL:  yahooBaseURL,
		Suffixes: suffixes,
		markets:  make(map[model.Instrument]string),
	}
}

func (y *YahooSource) Name() string { return "yahoo" }

// RecordMarket remembers the market of each listed instrument so that its
// prices are requested under the right suffix.
func (y *YahooSource) RecordMarket(market string, instrs []model.Instrument) {
	if _, ok := y.Suffixes[market]; !ok {
		return
	}
	y.mu.Lock()
	defer y.mu.Unlock()
	if y.markets == nil {
		y.markets = make(map[model.Instrument]string)
	}
	for _, in := range instrs {
		y.markets[in] = market
	}
}

// symbols returns the Yahoo symbols to try for instr: the one of its recorded
// market, otherwise every configured suffix in order.
func (y *YahooSource) symbols(instr model.Instrument) []string {
	y.mu.RLock()
	market, ok := y.markets[instr]
	y.mu.RUnlock()
	if ok {
		return []string{string(instr) + y.Suffixes[market]}
	}

	seen := make(map[string]bool)
	var suffixes []string
	for _, sfx := range y.Suffixes {
		if !seen[sfx] {
			seen[sfx] = true
			suffixes = append(suffixes, sfx)
		}
	}
	sort.Strings(suffixes)
	out := make([]string, 0, len(suffixes))
	for _, sfx := range suffixes {
		out = append(out, string(instr)+sfx)
	}
	return out
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(vals []*float64, i int) (float64, bool) {
	if i >= len(vals) || vals[i] == nil {
		return 0, false
	}
	return *vals[i], true
}

func (y *YahooSource) FetchPriceSeries(ctx context.Context, instr model.Instrument, start, end time.Time) (*model.PriceSeries, error) {
	for _, sym := range y.symbols(instr) {
		series, err := y.fetchChart(ctx, instr, sym, start, end)
		if err != nil {
			return nil, err
		}
		if series != nil {
			return series, nil
		}
	}
	return &model.PriceSeries{Instrument: instr}, nil
}

// fetchChart returns a nil series when Yahoo does not know sym.
func (y *YahooSource) fetchChart(ctx context.Context, instr model.Instrument, sym string, start, end time.Time) (*model.PriceSeries, error) {
	q := url.Values{
		"interval": {"1d"},
		"period1":  {strconv.FormatInt(start.Unix(), 10)},
		// period2 is exclusive
		"period2": {strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10)},
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s",
		y.BaseURL, url.PathEscape(sym), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	// Yahoo answers unknown symbols with 404 and a chart error.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	series := &model.PriceSeries{Instrument: instr}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return series, nil
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c, ok := at(quote.Close, i)
		if !ok {
			continue // holidays and halted sessions
		}
		o, _ := at(quote.Open, i)
		h, _ := at(quote.High, i)
		l, _ := at(quote.Low, i)
		v, _ := at(quote.Volume, i)
		bars = append(bars, model.Bar{
			Date:   model.TruncateDay(time.Unix(ts, 0).UTC()),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: v,
		})
	}
	series.Bars = normalizeBars(bars)
	return series, nil
}
