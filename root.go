package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/gtfsrt-aggregator/internal/config"
	"github.com/tonimelisma/gtfsrt-aggregator/internal/pipeline"
)

// version is set at build time via ldflags.
var version = "dev"

// flagLogLevel is the only CLI flag; the TOML file carries everything else.
var flagLogLevel string

// shutdownGracePeriod bounds how long Stop waits for in-flight ticks: the
// feed client's maximum request timeout plus storage I/O margin.
const shutdownGracePeriod = 90 * time.Second

// errMissingConfigArg is the usage error for a missing config path. The
// message text is part of the CLI contract.
var errMissingConfigArg = errors.New("the following arguments are required: toml_path")

// newRootCmd builds the root (and only) command. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "gtfsrt-aggregator <toml_path>",
		Short:   "GTFS-Realtime feed aggregator",
		Long:    "Continuously fetches GTFS-Realtime feeds, persists snapshots as Parquet, and compacts them into time-bucketed aggregates.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errMissingConfigArg
			}

			if len(args) > 1 {
				return fmt.Errorf("expected exactly one argument, got %d", len(args))
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0])
		},
	}

	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info",
		"log level (debug, info, warn, error)")

	return cmd
}

// run loads the config, assembles the pipeline, and blocks until SIGINT or
// SIGTERM, then drains in-flight ticks bounded by the grace period.
// Config and scheduler lifecycle errors are the only runtime conditions
// that surface as a nonzero exit.
func run(ctx context.Context, configPath string) error {
	logger := buildLogger()

	cfg, err := config.Load(configPath, logger)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	pipe, err := pipeline.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("assembling pipeline: %w", err)
	}

	pipe.Start()

	logger.Info("pipeline running", slog.String("config", configPath))

	sigCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	<-sigCtx.Done()

	logger.Info("shutdown signal received, draining")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer stopCancel()

	if err := pipe.Stop(stopCtx); err != nil {
		return fmt.Errorf("stopping pipeline: %w", err)
	}

	return nil
}

// buildLogger creates an slog.Logger from the --log-level flag: a text
// handler on an interactive stderr, JSON otherwise.
func buildLogger() *slog.Logger {
	var level slog.Level

	switch flagLogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
