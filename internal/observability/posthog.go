// Package observability reports product events (articles published, leads
// captured) to PostHog.
package observability

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/posthog/posthog-go"

	"contentops/internal/config"
	"contentops/internal/logger"
)

// systemID is the distinct id used for server-side events with no visitor.
const systemID = "contentops"

// Event names
const (
	EventArticlePublished = "article_published"
	EventArticleGenerated = "article_generated"
	EventLeadCaptured     = "lead_captured"
	EventContactSubmitted = "contact_submitted"
	EventScheduleFinished = "schedule_finished"
)

// EventProperties contains properties for an event
type EventProperties map[string]interface{}

// Tracker records product events. *PostHogClient is the only implementation;
// a disabled client drops everything.
type Tracker interface {
	TrackArticlePublished(ctx context.Context, postID, slug, source string) error
	TrackArticleGenerated(ctx context.Context, slug string, fellBack bool) error
	TrackLeadCaptured(ctx context.Context, formType string, webhookSent, databaseSaved bool) error
	TrackContactSubmitted(ctx context.Context, service string, emailSent bool) error
	TrackScheduleFinished(ctx context.Context, scheduleID, status string) error
}

// PostHogClient wraps the PostHog SDK for product analytics
type PostHogClient struct {
	client  posthog.Client
	enabled bool
	log     *slog.Logger
}

// NewPostHogClient creates a client. A disabled configuration yields a no-op client.
func NewPostHogClient(cfg config.Analytics) (*PostHogClient, error) {
	if !cfg.Enabled {
		return Disabled(), nil
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("PostHog enabled but missing API key")
	}

	pc := posthog.Config{}
	if cfg.Host != "" {
		pc.Endpoint = cfg.Host
	}
	client, err := posthog.NewWithConfig(cfg.APIKey, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostHog client: %w", err)
	}

	return &PostHogClient{
		client:  client,
		enabled: true,
		log:     logger.Get(),
	}, nil
}

// Disabled returns a client that records nothing.
func Disabled() *PostHogClient {
	return &PostHogClient{log: logger.Get()}
}

// IsEnabled returns whether PostHog tracking is enabled
func (p *PostHogClient) IsEnabled() bool {
	return p.enabled
}

// Capture enqueues an event. Delivery happens in the SDK's background batcher.
func (p *PostHogClient) Capture(ctx context.Context, distinctID string, event string, properties EventProperties) error {
	if !p.enabled {
		return nil
	}

	props := posthog.NewProperties()
	for k, v := range properties {
		props.Set(k, v)
	}

	if err := p.client.Enqueue(posthog.Capture{
		DistinctId: distinctID,
		Event:      event,
		Properties: props,
	}); err != nil {
		p.log.Warn("Failed to enqueue analytics event", "event", event, "error", err.Error())
		return err
	}
	return nil
}

// TrackArticlePublished tracks a post going live. source is "chat", "api" or "schedule".
func (p *PostHogClient) TrackArticlePublished(ctx context.Context, postID, slug, source string) error {
	return p.Capture(ctx, systemID, EventArticlePublished, EventProperties{
		"post_id": postID,
		"slug":    slug,
		"source":  source,
	})
}

// TrackArticleGenerated tracks a draft that was generated without publishing
func (p *PostHogClient) TrackArticleGenerated(ctx context.Context, slug string, fellBack bool) error {
	return p.Capture(ctx, systemID, EventArticleGenerated, EventProperties{
		"slug":      slug,
		"fell_back": fellBack,
	})
}

// TrackLeadCaptured tracks a lead form submission. No personal data is sent.
func (p *PostHogClient) TrackLeadCaptured(ctx context.Context, formType string, webhookSent, databaseSaved bool) error {
	return p.Capture(ctx, systemID, EventLeadCaptured, EventProperties{
		"form_type":      formType,
		"webhook_sent":   webhookSent,
		"database_saved": databaseSaved,
	})
}

// TrackContactSubmitted tracks a contact form submission
func (p *PostHogClient) TrackContactSubmitted(ctx context.Context, service string, emailSent bool) error {
	return p.Capture(ctx, systemID, EventContactSubmitted, EventProperties{
		"service":    service,
		"email_sent": emailSent,
	})
}

// TrackScheduleFinished tracks a scheduled post reaching a terminal status
func (p *PostHogClient) TrackScheduleFinished(ctx context.Context, scheduleID, status string) error {
	return p.Capture(ctx, systemID, EventScheduleFinished, EventProperties{
		"schedule_id": scheduleID,
		"status":      status,
	})
}

// Shutdown flushes pending events and stops the batcher
func (p *PostHogClient) Shutdown(ctx context.Context) error {
	if !p.enabled {
		return nil
	}
	return p.client.Close()
}
