// Package persistence provides database abstraction interfaces for posts, schedules, leads and form captures
package persistence

import (
	"context"
	"time"

	"contentops/internal/core"
)

// PostRepository handles blog post persistence operations
type PostRepository interface {
	// Create inserts a new post, assigning ID and timestamps. A taken slug yields ErrDuplicate.
	Create(ctx context.Context, post *core.Post) error

	// Get retrieves a post by ID
	Get(ctx context.Context, id string) (*core.Post, error)

	// GetBySlug retrieves a post by its slug
	GetBySlug(ctx context.Context, slug string) (*core.Post, error)

	// List retrieves the most recent posts
	List(ctx context.Context, limit int) ([]core.Post, error)
}

// ScheduleRepository handles scheduled article persistence operations
type ScheduleRepository interface {
	// Create inserts a new pending schedule
	Create(ctx context.Context, schedule *core.ScheduledPost) error

	// Get retrieves a schedule by ID
	Get(ctx context.Context, id string) (*core.ScheduledPost, error)

	// List retrieves schedules ordered by scheduled time, newest first
	List(ctx context.Context, limit int) ([]core.ScheduledPost, error)

	// ClaimDue atomically leases the oldest due pending row whose lease is
	// absent or older than now-lease. Returns ErrNotFound when nothing is due.
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration) (*core.ScheduledPost, error)

	// Finish moves a pending row to completed or failed. It succeeds at most
	// once per row; later calls return ErrNotFound.
	Finish(ctx context.Context, id string, status core.ScheduleStatus, postID *string, errMsg string) error
}

// LeadRepository handles playbook lead persistence operations
type LeadRepository interface {
	// Upsert inserts the lead or overwrites the row with the same email
	Upsert(ctx context.Context, lead *core.Lead) error

	// Insert adds a new lead. An existing email yields ErrDuplicate.
	Insert(ctx context.Context, lead *core.Lead) error

	// GetByEmail retrieves a lead by email
	GetByEmail(ctx context.Context, email string) (*core.Lead, error)

	// Recent retrieves the newest leads
	Recent(ctx context.Context, limit int) ([]core.Lead, error)
}

// LeadFormRepository stores raw lead form captures
type LeadFormRepository interface {
	Create(ctx context.Context, capture *core.LeadFormCapture) error
}

// ContactRepository stores contact form submissions
type ContactRepository interface {
	Create(ctx context.Context, submission *core.ContactSubmission) error
}

// Database provides access to all repositories
type Database interface {
	Posts() PostRepository
	Schedules() ScheduleRepository
	Leads() LeadRepository
	LeadForms() LeadFormRepository
	Contacts() ContactRepository

	// Ping checks database connectivity
	Ping(ctx context.Context) error

	// Close closes the database connection
	Close() error
}
