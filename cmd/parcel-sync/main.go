package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/ParcelSync/config"
	"github.com/BearBump/ParcelSync/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type cliFlags struct {
	configPath string
	dryRun     bool
	daysBack   int
	maxPerRun  int
	maxAgeDays int
	history    string
	logLevel   string
}

func newRootCmd(env config.Env, f syncFactories) *cobra.Command {
	var fl cliFlags

	cmd := &cobra.Command{
		Use:           "parcel-sync",
		Short:         "Push tracking numbers from eBay purchases to Parcel",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, fl, env)
			if err != nil {
				return err
			}

			log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			sum, err := RunSync(cmd.Context(), cfg, config.DiscoverAccounts(env), f, log)
			if err != nil {
				log.Error("sync run failed", zap.String("run_id", sum.RunID), zap.Error(err))
				return err
			}
			log.Info("sync run finished",
				zap.String("run_id", sum.RunID),
				zap.Int("accounts", len(sum.Accounts)),
				zap.Int("added", sum.Added),
				zap.Bool("saved", sum.Saved),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&fl.configPath, "config", env.Get("CONFIG_PATH"), "optional YAML config file")
	cmd.Flags().BoolVar(&fl.dryRun, "dry-run", false, "log intended registrations without calling Parcel or writing history")
	cmd.Flags().IntVar(&fl.daysBack, "days-back", 0, "order lookback window in days (default 90)")
	cmd.Flags().IntVar(&fl.maxPerRun, "max-per-run", 0, "Parcel submissions per account per run (default 20)")
	cmd.Flags().IntVar(&fl.maxAgeDays, "max-age-days", 0, "skip orders older than this many days (default 45)")
	cmd.Flags().StringVar(&fl.history, "history", "", "history file path (default tracking_history.json)")
	cmd.Flags().StringVar(&fl.logLevel, "log-level", "", "debug, info, warn or error")
	return cmd
}

// buildConfig layers YAML, then environment, then explicitly set flags.
func buildConfig(cmd *cobra.Command, fl cliFlags, env config.Env) (*config.Config, error) {
	cfg, err := config.LoadConfig(fl.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(env); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("dry-run") {
		cfg.Sync.DryRun = fl.dryRun
	}
	if flags.Changed("days-back") {
		cfg.Sync.DaysBack = fl.daysBack
	}
	if flags.Changed("max-per-run") {
		cfg.Sync.MaxPerRun = fl.maxPerRun
	}
	if flags.Changed("max-age-days") {
		cfg.Sync.MaxAgeDays = fl.maxAgeDays
	}
	if flags.Changed("history") {
		cfg.Sync.HistoryPath = fl.history
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = fl.logLevel
	}
	return cfg.WithDefaults(), nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(config.EnvFromOS(), defaultSyncFactories()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "parcel-sync:", err)
		os.Exit(1)
	}
}
