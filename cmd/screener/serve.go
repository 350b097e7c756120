package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-kit/kit/log/level"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"MarketScreener/internal/notifier"
	"MarketScreener/internal/pool"
	"MarketScreener/internal/recorder"
	"MarketScreener/internal/scheduler"
)

func (a *app) serveCommand() *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled screens, Telegram commands and the metrics endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("run-on-start") && os.Getenv("RUN_ON_START") == "true" {
				runOnStart = true
			}
			return a.serve(runOnStart)
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "run both screens once at startup")
	return cmd
}

func (a *app) serve(runOnStart bool) error {
	cfg, logger := a.cfg, a.logger

	sc, err := screenerConfig(cfg, true)
	if err != nil {
		return err
	}
	m := newServiceMetrics()
	svc := newService(cfg, sc, buildSource(cfg, time.Now()), pool.Nop, m, logger)

	w, err := newWriter(cfg, logger)
	if err != nil {
		return err
	}

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0755); err != nil {
			return err
		}
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			_ = level.Warn(logger).Log("msg", "init sqlite recorder failed, using noop", "err", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		tn     *notifier.TelegramNotifier
		sender notifier.Sender
	)
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
		sender = tn
	}

	sched := scheduler.NewScheduler(ctx, svc, w, sender, rec, scheduler.Options{
		LookbackDays: cfg.Screening.LookbackDays,
		RSIThreshold: cfg.RSICap.Threshold,
		RSICapFloor:  cfg.RSICapFloor(),
		MaxRows:      cfg.Telegram.MaxRows,
	}, logger)
	if err := sched.RegisterAll(cfg.Schedule.MACron, cfg.Schedule.RSICron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		_ = level.Info(logger).Log("msg", "telegram polling started")
	}

	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			_ = level.Info(logger).Log("msg", "metrics listening", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				_ = level.Error(logger).Log("msg", "metrics server", "err", err)
			}
		}()
	}

	if runOnStart {
		go func() {
			sched.RunMovingAverage(ctx)
			sched.RunRSICap(ctx, cfg.RSICap.Threshold)
		}()
	}

	_ = level.Info(logger).Log("msg", "screener is running, press Ctrl+C to stop")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	_ = level.Info(logger).Log("msg", "shutdown signal received, stopping")
	cancel()
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}
	return nil
}
