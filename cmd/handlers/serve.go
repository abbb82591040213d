package handlers

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"contentops/internal/config"
	"contentops/internal/logger"
	"contentops/internal/server"
)

// evictionInterval controls how often idle rate-limit keys are dropped.
const evictionInterval = 5 * time.Minute

// NewServeCmd creates the serve command for starting the HTTP server
func NewServeCmd() *cobra.Command {
	var (
		port          int
		host          string
		withScheduler bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the contentops HTTP API.

The server provides:
  • AI chat, article generation, topic search and cover image endpoints
  • Ebook and playbook lead capture with webhook delivery
  • The contact form endpoint
  • Admin endpoints for leads and scheduled articles
  • A /health endpoint

When scheduler.enabled is set (or --scheduler is passed) the scheduled
article executor runs in the same process.

Examples:
  # Start server on the configured port
  contentops serve

  # Start on a custom port with the scheduler
  contentops serve --port 3000 --scheduler`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("scheduler") {
				cfg.Scheduler.Enabled = withScheduler
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")
	cmd.Flags().BoolVar(&withScheduler, "scheduler", false, "Run the scheduled article executor (default from config)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Connecting to database", "driver", cfg.Database.Driver)
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

	deps := a.serverDeps()
	srv := server.New(cfg.Server, deps)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(fmt.Sprintf("Server listening on http://%s:%d", cfg.Server.Host, cfg.Server.Port))
		return srv.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Server shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if deps.Limiter != nil {
		g.Go(func() error {
			deps.Limiter.RunEviction(gctx, evictionInterval)
			return nil
		})
	}

	if cfg.Scheduler.Enabled {
		executor := a.executor()
		g.Go(func() error {
			log.Info("Scheduled article executor started", "interval", cfg.Scheduler.Interval)
			return executor.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("Server stopped successfully")
	return nil
}
