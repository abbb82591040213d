package handlers

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"contentops/internal/config"
	"contentops/internal/logger"
)

// NewWorkerCmd creates the worker command, a standalone scheduled article executor
func NewWorkerCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Publish scheduled articles",
		Long: `Run the scheduled article executor without the HTTP API.

Due rows in ai_article_schedules are claimed atomically, so any number of
workers (and servers started with --scheduler) can share one database
without publishing the same schedule twice.

Examples:
  # Poll until interrupted
  contentops worker

  # Process due schedules once and exit (e.g. from cron)
  contentops worker --once`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return runWorker(cmd.Context(), cfg, once)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Process due schedules once and exit")

	return cmd
}

func runWorker(ctx context.Context, cfg *config.Config, once bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, db)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer a.Close()

	executor := a.executor()
	if once {
		n, err := executor.RunOnce(ctx)
		if err != nil {
			return fmt.Errorf("scheduled run failed: %w", err)
		}
		fmt.Printf("Processed %d scheduled article(s)\n", n)
		return nil
	}

	logger.Info("Worker started", "interval", cfg.Scheduler.Interval, "batch", cfg.Scheduler.Batch)
	return executor.Run(ctx)
}
