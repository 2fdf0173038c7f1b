// Package main is the console entry point of the athlete hub.
//
// Every invocation hydrates the hub from the configured store, runs one
// subcommand and exits:
//
//	hub task add -title "Essay" -due 2025-01-10 -priority high
//	hub session add -title Track -date 2025-01-06 -time 07:00 -repeat weekly -count 8
//	hub sync
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/athlete-hub/athlete-hub/config"
	"github.com/athlete-hub/athlete-hub/internal/app"
	"github.com/athlete-hub/athlete-hub/internal/interface/cli"
	"github.com/athlete-hub/athlete-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := 0
	if err := run(ctx, os.Args[1:]); err != nil {
		switch {
		case errors.Is(err, cli.ErrHelp), errors.Is(err, flag.ErrHelp):
			code = 2
		default:
			cli.PrintError(os.Stderr, err)
			code = 1
		}
	}
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Debug("starting",
		"env", cfg.App.Environment,
		"store", cfg.Store.Driver,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. WIRING AND HYDRATION
	// ─────────────────────────────────────────────────────────────────────────
	hub, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to start hub: %w", err)
	}
	defer func() {
		if err := hub.Close(); err != nil {
			log.Error("close failed", "error", err)
		}
	}()

	if cfg.Features.RenderChanges {
		detach := cli.NewRenderer(os.Stdout).Attach(hub.State)
		defer detach()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. COMMAND
	// ─────────────────────────────────────────────────────────────────────────
	return cli.NewCommandLine(hub, os.Stdout).Run(ctx, args)
}

func setupLogger(cfg *config.Config) *slog.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Format = logger.ParseFormat(cfg.Observability.LogFormat)
	if cfg.App.Environment == config.EnvProduction {
		opts.Format = logger.FormatJSON
	}
	opts.Attrs = []slog.Attr{
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
	}
	return logger.New(opts)
}
