package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"MarketScreener/internal/model"
)

const (
	// DefaultRateLimit is the default number of provider requests per second.
	DefaultRateLimit = 20
	dateLayout       = "20060102"
)

// RESTSource implements Source against the market-data REST API.
type RESTSource struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	limiter *rate.Limiter
}

// RESTOption configures a RESTSource.
type RESTOption func(*RESTSource)

// WithRateLimit caps the request rate; zero or negative disables limiting.
func WithRateLimit(requestsPerSecond int) RESTOption {
	return func(s *RESTSource) {
		if requestsPerSecond <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewRESTSource creates a new provider client with optional proxy support.
func NewRESTSource(baseURL, apiKey, proxyURL string, opts ...RESTOption) *RESTSource {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	s := &RESTSource{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RESTSource) Name() string { return "rest" }

// restBar is the JSON shape of a daily bar.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

type restCap struct {
	Symbol    string  `json:"symbol"`
	MarketCap float64 `json:"market_cap"`
}

func (s *RESTSource) ListUniverse(ctx context.Context, market string, asOf time.Time) ([]model.Instrument, error) {
	q := url.Values{"market": {market}, "date": {asOf.Format(dateLayout)}}
	var symbols []string
	if err := s.get(ctx, "/api/v1/universe", q, &symbols); err != nil {
		return nil, fmt.Errorf("list universe %s: %w", market, err)
	}
	out := make([]model.Instrument, len(symbols))
	for i, sym := range symbols {
		out[i] = model.Instrument(sym)
	}
	return out, nil
}

func (s *RESTSource) FetchPriceSeries(ctx context.Context, instr model.Instrument, start, end time.Time) (*model.PriceSeries, error) {
	q := url.Values{
		"symbol": {string(instr)},
		"start":  {start.Format(dateLayout)},
		"end":    {end.Format(dateLayout)},
	}
	var raw []restBar
	if err := s.get(ctx, "/api/v1/bars/daily", q, &raw); err != nil {
		return nil, fmt.Errorf("fetch bars %s: %w", instr, err)
	}
	bars := make([]model.Bar, 0, len(raw))
	for _, rb := range raw {
		bars = append(bars, model.Bar{
			Date:   model.TruncateDay(time.Unix(rb.Timestamp, 0).UTC()),
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		})
	}
	return &model.PriceSeries{Instrument: instr, Bars: normalizeBars(bars)}, nil
}

func (s *RESTSource) FetchCapSnapshot(ctx context.Context, asOf time.Time) (*model.CapSnapshot, error) {
	var raw []restCap
	if err := s.get(ctx, "/api/v1/market-cap", url.Values{"date": {asOf.Format(dateLayout)}}, &raw); err != nil {
		return nil, fmt.Errorf("fetch market cap: %w", err)
	}
	caps := make(map[model.Instrument]float64, len(raw))
	for _, rc := range raw {
		caps[model.Instrument(rc.Symbol)] = rc.MarketCap
	}
	return &model.CapSnapshot{AsOf: model.TruncateDay(asOf), Caps: caps}, nil
}

func (s *RESTSource) ResolveName(ctx context.Context, instr model.Instrument) (string, error) {
	var result struct {
		Name string `json:"name"`
	}
	if err := s.get(ctx, "/api/v1/name", url.Values{"symbol": {string(instr)}}, &result); err != nil {
		return "", fmt.Errorf("resolve name %s: %w", instr, err)
	}
	return result.Name, nil
}

func (s *RESTSource) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	endpoint := s.BaseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// normalizeBars sorts bars chronologically and keeps the last bar of each date.
func normalizeBars(bars []model.Bar) []model.Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
