package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/kit/log/level"
	"github.com/spf13/cobra"

	"MarketScreener/internal/exporter"
	"MarketScreener/internal/pool"
	"MarketScreener/internal/screener"
)

type screenFlags struct {
	days     int
	latest   bool
	noExport bool
	quiet    bool
}

func (f *screenFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.days, "days", 0, "lookback in calendar days (default from config)")
	cmd.Flags().BoolVar(&f.noExport, "no-export", false, "print the table without writing a file")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "hide the progress line")
}

func (a *app) maCommand() *cobra.Command {
	var f screenFlags
	cmd := &cobra.Command{
		Use:   "ma",
		Short: "Find stocks whose close crossed above the moving average",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runScreen(cmd.Context(), &f, f.latest, exporter.MovingAverageFile, func(ctx context.Context, svc screener.Service) (screener.Report, error) {
				return svc.RunMovingAverageBreakout(ctx, lookback(a.cfg, f.days))
			})
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&f.latest, "latest", false, "only report crossovers on the most recent bar")
	return cmd
}

func (a *app) rsiCommand() *cobra.Command {
	var (
		f         screenFlags
		threshold float64
		capFloor  float64
	)
	cmd := &cobra.Command{
		Use:   "rsi",
		Short: "Find large caps whose RSI is below the threshold",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("threshold") {
				threshold = a.cfg.RSICap.Threshold
			}
			if !cmd.Flags().Changed("cap-floor") {
				capFloor = a.cfg.RSICapFloor()
			}
			if threshold <= 0 || threshold >= 100 {
				return fmt.Errorf("threshold must be between 0 and 100, got %v", threshold)
			}
			return a.runScreen(cmd.Context(), &f, false, exporter.RSICapFile, func(ctx context.Context, svc screener.Service) (screener.Report, error) {
				return svc.RunRSICap(ctx, lookback(a.cfg, f.days), threshold, capFloor)
			})
		},
	}
	f.register(cmd)
	cmd.Flags().Float64Var(&threshold, "threshold", 30, "RSI threshold")
	cmd.Flags().Float64Var(&capFloor, "cap-floor", 500e9, "minimum market capitalization")
	return cmd
}

func (a *app) runScreen(parent context.Context, f *screenFlags, latest bool, file string, run func(context.Context, screener.Service) (screener.Report, error)) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sc, err := commandConfig(a.cfg, latest)
	if err != nil {
		return err
	}
	var obs pool.Observer = pool.Nop
	if !f.quiet {
		obs = screener.NewTerminalProgress(os.Stderr, "Screening")
	}
	svc := newService(a.cfg, sc, buildSource(a.cfg, time.Now()), obs, nil, a.logger)

	report, err := run(ctx, svc)
	if err != nil {
		return err
	}
	if report.Status == screener.StatusEmpty {
		fmt.Println("No instruments matched.")
		return nil
	}
	printTable(report.Table)
	if f.noExport {
		return nil
	}
	w, err := newWriter(a.cfg, a.logger)
	if err != nil {
		return err
	}
	path, err := w.Write(file, report.Table.Records())
	if err != nil {
		return err
	}
	_ = level.Info(a.logger).Log("msg", "saved", "path", path, "rows", report.Table.Len())
	return nil
}
