package main

import (
	"fmt"
	"os"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/spf13/cobra"

	"MarketScreener/internal/config"
)

var serviceVersion = "dev"

type app struct {
	cfgPath string
	cfg     *config.Config
	logger  log.Logger
}

func main() {
	a := &app{}
	root := &cobra.Command{
		Use:           "screener",
		Short:         "Screen KOSPI/KOSDAQ stocks for MA breakouts and oversold large caps",
		Version:       serviceVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", defaultPath, "path to the YAML config file")

	root.AddCommand(a.maCommand(), a.rsiCommand(), a.serveCommand())

	if err := root.Execute(); err != nil {
		if a.logger != nil {
			_ = level.Error(a.logger).Log("msg", "command failed", "err", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func (a *app) init() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	a.logger = level.NewFilter(logger, levelOption(cfg.Logging.Level))
	_ = level.Info(a.logger).Log("msg", "initializing", "version", serviceVersion, "provider", cfg.DataSource.Provider)
	return nil
}

func levelOption(name string) level.Option {
	switch name {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}
