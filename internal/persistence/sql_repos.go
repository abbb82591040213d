package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"contentops/internal/core"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// --- posts ---

var postColumns = []string{
	"id", "title", "slug", "excerpt", "content", "cover_image",
	"author", "published", "external_url", "created_at", "updated_at",
}

// postRepo implements PostRepository
type postRepo struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func (r *postRepo) Create(ctx context.Context, post *core.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := nowUTC()
	post.CreatedAt, post.UpdatedAt = now, now

	query, args, err := r.sb.Insert("posts").
		Columns(postColumns...).
		Values(post.ID, post.Title, post.Slug, post.Excerpt, post.Content, post.CoverImage,
			post.Author, post.Published, nullString(post.ExternalURL), post.CreatedAt, post.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("post slug %q: %w", post.Slug, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

func (r *postRepo) Get(ctx context.Context, id string) (*core.Post, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

func (r *postRepo) GetBySlug(ctx context.Context, slug string) (*core.Post, error) {
	return r.getOne(ctx, sq.Eq{"slug": slug})
}

func (r *postRepo) getOne(ctx context.Context, where sq.Eq) (*core.Post, error) {
	query, args, err := r.sb.Select(postColumns...).From("posts").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}
	post, err := scanPost(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return post, nil
}

func (r *postRepo) List(ctx context.Context, limit int) ([]core.Post, error) {
	query, args, err := r.sb.Select(postColumns...).From("posts").
		OrderBy("created_at DESC").Limit(uint64(limitOrDefault(limit))).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []core.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

func scanPost(row rowScanner) (*core.Post, error) {
	var post core.Post
	var externalURL sql.NullString
	err := row.Scan(&post.ID, &post.Title, &post.Slug, &post.Excerpt, &post.Content, &post.CoverImage,
		&post.Author, &post.Published, &externalURL, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	post.ExternalURL = externalURL.String
	return &post, nil
}

// --- schedules ---

var scheduleColumns = []string{
	"id", "topic_category", "scheduled_time", "status", "post_id",
	"claimed_at", "last_error", "created_at", "updated_at",
}

// scheduleRepo implements ScheduleRepository
type scheduleRepo struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func (r *scheduleRepo) Create(ctx context.Context, s *core.ScheduledPost) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := nowUTC()
	s.Status = core.SchedulePending
	s.CreatedAt, s.UpdatedAt = now, now
	s.ScheduledTime = s.ScheduledTime.UTC().Truncate(time.Microsecond)

	query, args, err := r.sb.Insert("ai_article_schedules").
		Columns("id", "topic_category", "scheduled_time", "status", "created_at", "updated_at").
		Values(s.ID, string(s.TopicCategory), s.ScheduledTime, string(s.Status), s.CreatedAt, s.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert schedule: %w", err)
	}
	return nil
}

func (r *scheduleRepo) Get(ctx context.Context, id string) (*core.ScheduledPost, error) {
	query, args, err := r.sb.Select(scheduleColumns...).From("ai_article_schedules").
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}
	s, err := scanSchedule(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *scheduleRepo) List(ctx context.Context, limit int) ([]core.ScheduledPost, error) {
	query, args, err := r.sb.Select(scheduleColumns...).From("ai_article_schedules").
		OrderBy("scheduled_time DESC").Limit(uint64(limitOrDefault(limit))).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []core.ScheduledPost
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}

// ClaimDue is a single compare-and-swap UPDATE. The outer WHERE repeats the
// pending and lease checks so a concurrent claimer that lost the race updates nothing.
func (r *scheduleRepo) ClaimDue(ctx context.Context, now time.Time, lease time.Duration) (*core.ScheduledPost, error) {
	now = now.UTC().Truncate(time.Microsecond)
	cutoff := now.Add(-lease)
	claimable := sq.And{
		sq.Eq{"status": string(core.SchedulePending)},
		sq.Or{sq.Eq{"claimed_at": nil}, sq.Lt{"claimed_at": cutoff}},
	}

	sub, subArgs, err := sq.Select("id").From("ai_article_schedules").
		Where(claimable).
		Where(sq.LtOrEq{"scheduled_time": now}).
		OrderBy("scheduled_time ASC").Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build claim subquery: %w", err)
	}

	query, args, err := r.sb.Update("ai_article_schedules").
		Set("claimed_at", now).
		Set("updated_at", now).
		Where(sq.Expr("id = ("+sub+")", subArgs...)).
		Where(claimable).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build claim: %w", err)
	}

	var id string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to claim schedule: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *scheduleRepo) Finish(ctx context.Context, id string, status core.ScheduleStatus, postID *string, errMsg string) error {
	if status != core.ScheduleCompleted && status != core.ScheduleFailed {
		return fmt.Errorf("invalid terminal status: %s", status)
	}

	var post sql.NullString
	if postID != nil {
		post = nullString(*postID)
	}

	query, args, err := r.sb.Update("ai_article_schedules").
		Set("status", string(status)).
		Set("post_id", post).
		Set("last_error", nullString(errMsg)).
		Set("updated_at", nowUTC()).
		Where(sq.Eq{"id": id, "status": string(core.SchedulePending)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to finish schedule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("schedule %s is not pending: %w", id, ErrNotFound)
	}
	return nil
}

func scanSchedule(row rowScanner) (*core.ScheduledPost, error) {
	var s core.ScheduledPost
	var category, status string
	var postID, lastError sql.NullString
	var claimedAt sql.NullTime
	err := row.Scan(&s.ID, &category, &s.ScheduledTime, &status, &postID,
		&claimedAt, &lastError, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.TopicCategory = core.Category(category)
	s.Status = core.ScheduleStatus(status)
	if postID.Valid {
		s.PostID = &postID.String
	}
	if claimedAt.Valid {
		t := claimedAt.Time
		s.ClaimedAt = &t
	}
	s.Error = lastError.String
	return &s, nil
}

// --- leads ---

var leadColumns = []string{
	"id", "full_name", "email", "company", "role", "company_size",
	"phone", "source", "status", "notes", "created_at", "updated_at",
}

// leadRepo implements LeadRepository over playbook_leads
type leadRepo struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func (r *leadRepo) insertBuilder(lead *core.Lead) sq.InsertBuilder {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.Status == "" {
		lead.Status = core.LeadStatusNew
	}
	now := nowUTC()
	lead.CreatedAt, lead.UpdatedAt = now, now

	return r.sb.Insert("playbook_leads").
		Columns(leadColumns...).
		Values(lead.ID, lead.FullName, lead.Email, lead.Company, lead.Role, lead.CompanySize,
			nullString(lead.Phone), lead.Source, lead.Status, nullString(lead.Notes), lead.CreatedAt, lead.UpdatedAt)
}

// Upsert relies on the unique email index; the database resolves concurrent writers.
func (r *leadRepo) Upsert(ctx context.Context, lead *core.Lead) error {
	query, args, err := r.insertBuilder(lead).
		Suffix(`ON CONFLICT (email) DO UPDATE SET
			full_name = excluded.full_name,
			company = excluded.company,
			role = excluded.role,
			company_size = excluded.company_size,
			phone = excluded.phone,
			source = excluded.source,
			notes = excluded.notes,
			updated_at = excluded.updated_at
		RETURNING id`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&lead.ID); err != nil {
		return fmt.Errorf("failed to upsert lead: %w", err)
	}
	return nil
}

func (r *leadRepo) Insert(ctx context.Context, lead *core.Lead) error {
	query, args, err := r.insertBuilder(lead).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("lead %s: %w", lead.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

func (r *leadRepo) GetByEmail(ctx context.Context, email string) (*core.Lead, error) {
	query, args, err := r.sb.Select(leadColumns...).From("playbook_leads").
		Where(sq.Eq{"email": email}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}
	lead, err := scanLead(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return lead, nil
}

func (r *leadRepo) Recent(ctx context.Context, limit int) ([]core.Lead, error) {
	query, args, err := r.sb.Select(leadColumns...).From("playbook_leads").
		OrderBy("created_at DESC").Limit(uint64(limitOrDefault(limit))).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	leads := []core.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, rows.Err()
}

func scanLead(row rowScanner) (*core.Lead, error) {
	var lead core.Lead
	var phone, notes sql.NullString
	err := row.Scan(&lead.ID, &lead.FullName, &lead.Email, &lead.Company, &lead.Role, &lead.CompanySize,
		&phone, &lead.Source, &lead.Status, &notes, &lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		return nil, err
	}
	lead.Phone = phone.String
	lead.Notes = notes.String
	return &lead, nil
}

// --- captures ---

// leadFormRepo implements LeadFormRepository
type leadFormRepo struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func (r *leadFormRepo) Create(ctx context.Context, c *core.LeadFormCapture) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = nowUTC()
	if len(c.Payload) == 0 {
		c.Payload = []byte("{}")
	}

	query, args, err := r.sb.Insert("lead_forms").
		Columns("id", "form_type", "email", "payload", "created_at").
		Values(c.ID, c.FormType, c.Email, string(c.Payload), c.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert lead form: %w", err)
	}
	return nil
}

// contactRepo implements ContactRepository
type contactRepo struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func (r *contactRepo) Create(ctx context.Context, s *core.ContactSubmission) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = nowUTC()

	query, args, err := r.sb.Insert("contact_submissions").
		Columns("id", "name", "email", "company", "phone", "service", "message", "created_at").
		Values(s.ID, s.Name, s.Email, nullString(s.Company), nullString(s.Phone), nullString(s.Service), s.Message, s.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert contact submission: %w", err)
	}
	return nil
}

func limitOrDefault(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
