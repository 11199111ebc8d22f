// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sport-tournaments/auth-service/internal/auth"
	authpg "github.com/sport-tournaments/auth-service/internal/auth/postgres"
	"github.com/sport-tournaments/auth-service/internal/config"
	"github.com/sport-tournaments/auth-service/internal/logging"
	"github.com/sport-tournaments/auth-service/internal/observability"
	"github.com/sport-tournaments/auth-service/internal/store"
)

// NewSweepCmd creates the sweep subcommand.
func NewSweepCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Purge expired sessions",
		Long: `Run the expired-session sweeper. By default it runs continuously at the
configured interval alongside an observability server; --once performs a
single sweep and exits.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd.Context(), cmd, once)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "perform a single sweep and exit")
	cmd.Flags().Duration("sweep.interval", config.DefaultSweepInterval, "interval between sweeps")
	cmd.Flags().String("observability.addr", config.DefaultObservabilityAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log.format", config.DefaultLogFormat, "log format (json or text)")

	return cmd
}

func runSweep(ctx context.Context, cmd *cobra.Command, once bool) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(false); err != nil {
		return err
	}

	logging.SetDefault("authd-sweeper", version, cfg.Log.Format)

	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	slog.Info("connected to database")

	sessions := authpg.NewSessionRepository(pool)
	sweeper, err := auth.NewSweeper(sessions, cfg.Sweep.Interval, slog.Default())
	if err != nil {
		return err
	}

	if once {
		deleted, err := sweeper.SweepOnce(ctx)
		if err != nil {
			return err
		}
		cmd.Printf("Swept %d expired session(s)\n", deleted)
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer *observability.Server
	if cfg.Observability.Addr != "" {
		obsServer = observability.NewServer(cfg.Observability.Addr, func() bool {
			return pool.Ping(ctx) == nil
		})
		auth.RegisterMetrics(obsServer.Registry())

		obsErrChan, err := obsServer.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	go sweeper.Run(ctx)

	slog.Info("sweeper running", "interval", cfg.Sweep.Interval)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	cancel()

	if obsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors watches a server error channel and cancels the run
// context when the server fails.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
		// Context cancelled, exit monitoring
	}
}
