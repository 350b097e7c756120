package main

import (
	"fmt"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"

	"MarketScreener/internal/calculator"
	"MarketScreener/internal/collector"
	"MarketScreener/internal/config"
	"MarketScreener/internal/exporter"
	"MarketScreener/internal/model"
	"MarketScreener/internal/pool"
	"MarketScreener/internal/screener"
	"MarketScreener/internal/strategy"
)

const metricsNamespace = "market_screener"

// buildSource assembles the market-data collaborators for the configured provider.
func buildSource(cfg *config.Config, now time.Time) collector.Source {
	switch cfg.DataSource.Provider {
	case "demo":
		return collector.NewDemoSource(now)
	case "yahoo":
		rest := newREST(cfg)
		return &collector.Composite{
			Universe: rest,
			Prices:   collector.NewYahooSource(cfg.Proxy, cfg.DataSource.YahooSuffixes),
			Caps:     rest,
			Names:    rest,
			Label:    "rest+yahoo",
		}
	default:
		return newREST(cfg)
	}
}

func newREST(cfg *config.Config) *collector.RESTSource {
	return collector.NewRESTSource(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy,
		collector.WithRateLimit(cfg.DataSource.RateLimit))
}

// screenerConfig converts the file configuration. alert selects the daily-alert scan mode.
func screenerConfig(cfg *config.Config, alert bool) (screener.Config, error) {
	sc := screener.DefaultConfig()
	if cfg.Screening.Workers > 0 {
		sc.Workers = cfg.Screening.Workers
	}
	sc.TaskTimeout = cfg.Screening.TaskTimeout
	sc.Currency = cfg.Screening.Currency
	sc.BusinessDayProbe = cfg.Screening.BusinessDayProbe

	mode, err := collector.ParseSnapshotMode(cfg.Screening.SnapshotMode)
	if err != nil {
		return sc, err
	}
	sc.SnapshotMode = mode

	scan := cfg.MABreakout.ScanMode
	if alert {
		scan = cfg.MABreakout.AlertScanMode
	}
	if sc.MAScanMode, err = calculator.ParseScanMode(scan); err != nil {
		return sc, err
	}
	sc.MAWindow = cfg.MABreakout.Window
	sc.RequireRisingClose = cfg.MABreakout.RequireRisingClose
	sc.MACapFloor = cfg.MACapFloor()

	sc.RSIPeriod = cfg.RSICap.Period
	if sc.RSIDirection, err = strategy.ParseDirection(cfg.RSICap.Direction); err != nil {
		return sc, err
	}
	return sc, nil
}

// commandConfig is the configuration of an interactive run. latest forces the
// last-bar scan regardless of the configured modes.
func commandConfig(cfg *config.Config, latest bool) (screener.Config, error) {
	sc, err := screenerConfig(cfg, false)
	if err != nil {
		return sc, err
	}
	if latest {
		sc.MAScanMode = calculator.ScanLatest
	}
	return sc, nil
}

type serviceMetrics struct {
	runCount    metrics.Counter
	runDuration metrics.Histogram
	outcomes    metrics.Counter
}

func newServiceMetrics() *serviceMetrics {
	return &serviceMetrics{
		runCount: kitprometheus.NewCounterFrom(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "screen",
			Name:      "runs_total",
			Help:      "Screening runs by method and status.",
		}, []string{"method", "status"}),
		runDuration: kitprometheus.NewHistogramFrom(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "screen",
			Name:      "run_duration_seconds",
			Help:      "Screening run duration.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"method", "status"}),
		outcomes: kitprometheus.NewCounterFrom(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "task",
			Name:      "outcomes_total",
			Help:      "Per-instrument task outcomes.",
		}, []string{"outcome"}),
	}
}

// newService builds the screening service wrapped with logging and, when m
// is non-nil, instrumenting middleware.
func newService(cfg *config.Config, sc screener.Config, src collector.Source, obs pool.Observer, m *serviceMetrics, logger log.Logger) screener.Service {
	opts := []screener.Option{screener.WithObserver(obs)}
	if m != nil {
		opts = append(opts, screener.WithOutcomeCounter(m.outcomes))
	}
	svc := screener.NewService(sc, src, cfg.Screening.Markets, logger, opts...)
	svc = screener.NewLoggingMiddleware(logger, svc)
	if m != nil {
		svc = screener.NewInstrumentingMiddleware(m.runCount, m.runDuration, svc)
	}
	return svc
}

func newWriter(cfg *config.Config, logger log.Logger) (*exporter.Writer, error) {
	format, err := exporter.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	return exporter.NewWriter(cfg.Output.Dir, format, logger), nil
}

func lookback(cfg *config.Config, days int) model.DateRange {
	if days <= 0 {
		days = cfg.Screening.LookbackDays
	}
	return model.LookbackRange(time.Now(), days)
}

func printTable(t screener.Table) {
	for _, r := range t.Records() {
		for i, cell := range r {
			if i > 0 {
				fmt.Print("\t")
			}
			fmt.Print(cell)
		}
		fmt.Println()
	}
}
