// Package scheduler publishes scheduled articles when they fall due.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"contentops/internal/article"
	"contentops/internal/core"
	"contentops/internal/logger"
	"contentops/internal/observability"
	"contentops/internal/persistence"
)

// Defaults applied to zero Config values.
const (
	DefaultInterval = time.Minute
	DefaultLease    = 15 * time.Minute
	DefaultBatch    = 5
)

// Publisher runs the article workflow end to end.
type Publisher interface {
	Publish(ctx context.Context, req article.Request) (*article.Result, error)
}

// Config controls the executor loop.
type Config struct {
	Interval time.Duration // Time between sweeps
	Lease    time.Duration // How long a claim blocks other executors
	Batch    int           // Rows processed per sweep
}

// Executor claims due schedules and publishes them. Several executors may
// share a database: each row is claimed by one of them at a time and
// finished exactly once.
type Executor struct {
	schedules persistence.ScheduleRepository
	publisher Publisher
	tracker   observability.Tracker
	cfg       Config
	now       func() time.Time
	log       *slog.Logger
}

// NewExecutor creates an executor. tracker may be nil.
func NewExecutor(schedules persistence.ScheduleRepository, publisher Publisher, tracker observability.Tracker, cfg Config) *Executor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Lease <= 0 {
		cfg.Lease = DefaultLease
	}
	if cfg.Batch <= 0 {
		cfg.Batch = DefaultBatch
	}
	if tracker == nil {
		tracker = observability.Disabled()
	}
	return &Executor{
		schedules: schedules,
		publisher: publisher,
		tracker:   tracker,
		cfg:       cfg,
		now:       time.Now,
		log:       logger.Get(),
	}
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (e *Executor) Run(ctx context.Context) error {
	e.log.Info("Scheduler started", "interval", e.cfg.Interval, "lease", e.cfg.Lease, "batch", e.cfg.Batch)

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := e.RunOnce(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Scheduler sweep failed", err)
		}

		select {
		case <-ctx.Done():
			e.log.Info("Scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce claims and processes up to Batch due schedules, returning how many ran.
func (e *Executor) RunOnce(ctx context.Context) (int, error) {
	processed := 0
	for processed < e.cfg.Batch {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}

		s, err := e.schedules.ClaimDue(ctx, e.now(), e.cfg.Lease)
		if errors.Is(err, persistence.ErrNotFound) {
			return processed, nil
		}
		if err != nil {
			return processed, err
		}

		e.process(ctx, s)
		processed++
	}
	return processed, nil
}

func (e *Executor) process(ctx context.Context, s *core.ScheduledPost) {
	log := e.log.With("schedule_id", s.ID, "category", s.TopicCategory)
	log.Info("Publishing scheduled article", "scheduled_time", s.ScheduledTime)

	status := core.ScheduleCompleted
	var postID *string
	var errMsg string

	result, err := e.publisher.Publish(ctx, article.Request{Category: s.TopicCategory})
	if err != nil {
		status = core.ScheduleFailed
		errMsg = err.Error()
		log.Error("Scheduled article failed", "error", errMsg)
	} else {
		postID = &result.PostID
		log.Info("Scheduled article published", "post_id", result.PostID, "slug", result.Article.Slug)
		if err := e.tracker.TrackArticlePublished(ctx, result.PostID, result.Article.Slug, "schedule"); err != nil {
			log.Warn("Failed to track article", "error", err)
		}
	}

	if err := e.schedules.Finish(ctx, s.ID, status, postID, errMsg); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			log.Warn("Schedule was finished elsewhere, lease likely expired")
			return
		}
		log.Error("Failed to finish schedule", "error", err.Error())
		return
	}
	if err := e.tracker.TrackScheduleFinished(ctx, s.ID, string(status)); err != nil {
		log.Warn("Failed to track schedule", "error", err)
	}
}
