package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/ParcelSync/internal/integrations/parcel/emulator"
	"github.com/BearBump/ParcelSync/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	var (
		addr        string
		apiKey      string
		unsupported []string
		limitAfter  int
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:   "parcel-emulator",
		Short: "Serve a local Parcel add-delivery API for dry runs and tests",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New(logger.Config{Level: logLevel})
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			srv := emulator.New(apiKey).
				WithUnsupportedCarriers(unsupported...).
				WithRateLimitAfter(limitAfter)

			return runEmulatorHTTPServer(cmd.Context(), emulatorHTTPOpts{
				httpAddr: addr,
				server:   srv,
				onListen: func(a string) {
					log.Info("parcel emulator listening", zap.String("addr", a))
				},
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":9000", "listen address")
	cmd.Flags().StringVar(&apiKey, "api-key", os.Getenv("PARCEL_API_KEY"), "required api-key header (empty accepts any)")
	cmd.Flags().StringSliceVar(&unsupported, "unsupported-carrier", nil, "carrier codes answered with 'Unsupported carrier'")
	cmd.Flags().IntVar(&limitAfter, "rate-limit-after", 0, "answer 429 after this many add-delivery calls (0 disables)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	return cmd
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
