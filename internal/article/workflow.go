// Package article turns a topic (or just a category) into a published blog post:
// topic resolution, draft generation, slug derivation, cover image and persistence.
package article

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"contentops/internal/core"
	"contentops/internal/imagesearch"
	"contentops/internal/llm"
	"contentops/internal/logger"
	"contentops/internal/persistence"
	"contentops/internal/prompts"
)

// ErrNoRepository is returned by Publish when the workflow has no post store.
var ErrNoRepository = errors.New("post repository is not configured")

const (
	topicMaxTokens = 60
	draftMaxTokens = 4000
)

// Request selects what to write. An empty Topic is resolved from Category.
type Request struct {
	Topic    string
	Category core.Category
}

// Result is the output of a workflow run.
type Result struct {
	Topic    string
	Article  core.GeneratedArticle
	PostID   string // Set by Publish
	FellBack bool   // The draft was not valid JSON and the raw text was used as content
}

// Summary is a one-line, user-facing description of the result.
func (r *Result) Summary() string {
	if r.PostID == "" {
		return fmt.Sprintf("Drafted %q (/blog/%s).", r.Article.Title, r.Article.Slug)
	}
	return fmt.Sprintf("Published %q at /blog/%s.", r.Article.Title, r.Article.Slug)
}

// Workflow composes the completion API, image search and post storage.
type Workflow struct {
	llm        llm.Completer
	covers     *imagesearch.CoverFinder
	posts      persistence.PostRepository
	categories Categories
	tracer     trace.Tracer
	log        *slog.Logger
}

// Option customizes a Workflow.
type Option func(*Workflow)

// WithCategories replaces the embedded keyword table.
func WithCategories(c Categories) Option {
	return func(w *Workflow) { w.categories = c }
}

// NewWorkflow creates a workflow. covers and posts may be nil: without covers
// articles get no image, without posts only Generate is available.
func NewWorkflow(completer llm.Completer, covers *imagesearch.CoverFinder, posts persistence.PostRepository, opts ...Option) (*Workflow, error) {
	w := &Workflow{
		llm:    completer,
		covers: covers,
		posts:  posts,
		tracer: otel.Tracer("contentops/article"),
		log:    logger.Get(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.categories == nil {
		cats, err := DefaultCategories()
		if err != nil {
			return nil, err
		}
		w.categories = cats
	}
	return w, nil
}

// ResolveTopic returns topic unchanged when set, otherwise asks the model for
// one seeded by the category's keyword cluster.
func (w *Workflow) ResolveTopic(ctx context.Context, topic string, category core.Category) (string, error) {
	if t := strings.TrimSpace(topic); t != "" {
		return t, nil
	}

	prompt := prompts.TopicResolutionPrompt(category, w.categories.Keywords(category))
	raw, err := llm.Prompt(ctx, w.llm, prompt, topicMaxTokens)
	if err != nil {
		return "", fmt.Errorf("failed to resolve topic: %w", err)
	}

	resolved := prompts.CleanTopic(raw)
	if resolved == "" {
		return prompts.DefaultTopic, nil
	}
	return resolved, nil
}

// Generate runs topic resolution, drafting, slug derivation and cover image
// selection. Only the first two steps can fail.
func (w *Workflow) Generate(ctx context.Context, req Request) (*Result, error) {
	ctx, span := w.tracer.Start(ctx, "article.generate",
		trace.WithAttributes(attribute.String("article.category", string(req.Category))))
	defer span.End()

	result, err := w.generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("article.slug", result.Article.Slug),
		attribute.Bool("article.fell_back", result.FellBack),
	)
	return result, nil
}

func (w *Workflow) generate(ctx context.Context, req Request) (*Result, error) {
	category := req.Category
	if !category.Valid() {
		category = core.CategoryBoth
	}

	topic, err := w.ResolveTopic(ctx, req.Topic, category)
	if err != nil {
		return nil, err
	}

	raw, err := w.llm.Complete(ctx, llm.Request{
		Messages:  []core.ChatMessage{{Role: core.RoleUser, Content: prompts.ArticleDraftPrompt(topic, category)}},
		MaxTokens: draftMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate draft: %w", err)
	}

	draft, fellBack := prompts.ParseArticleDraft(raw, topic)
	if fellBack {
		w.log.Warn("Draft was not valid JSON, using raw text", "topic", topic, "chars", len(raw))
	}
	draft.Slug = Slugify(draft.Title)
	draft.CoverImage = w.coverImage(ctx, draft.Title)

	return &Result{Topic: topic, Article: draft, FellBack: fellBack}, nil
}

// coverImage never fails the workflow; any problem yields "".
func (w *Workflow) coverImage(ctx context.Context, title string) string {
	if w.covers == nil {
		return ""
	}
	img, err := w.covers.Find(ctx, title, imagesearch.WorkflowPool)
	if err != nil {
		if errors.Is(err, imagesearch.ErrNoResults) {
			w.log.Info("No cover image found", "title", title)
		} else {
			w.log.Warn("Cover image search failed", "title", title, "error", err.Error())
		}
		return ""
	}
	return img.URL
}

// Publish runs Generate and stores the article as a published post.
// A slug collision is retried once with a random suffix.
func (w *Workflow) Publish(ctx context.Context, req Request) (*Result, error) {
	if w.posts == nil {
		return nil, ErrNoRepository
	}

	result, err := w.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	ctx, span := w.tracer.Start(ctx, "article.publish",
		trace.WithAttributes(attribute.String("article.slug", result.Article.Slug)))
	defer span.End()

	if result.Article.Slug == "" {
		result.Article.Slug = withSuffix("post", shortID())
	}

	post := core.NewPost(result.Article)
	err = w.posts.Create(ctx, &post)
	if errors.Is(err, persistence.ErrDuplicate) {
		post.ID = ""
		post.Slug = withSuffix(result.Article.Slug, shortID())
		w.log.Info("Slug taken, retrying with suffix", "slug", result.Article.Slug, "retry_slug", post.Slug)
		err = w.posts.Create(ctx, &post)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to save post: %w", err)
	}

	result.Article.Slug = post.Slug
	result.PostID = post.ID
	span.SetAttributes(attribute.String("article.post_id", post.ID))
	w.log.Info("Article published", "post_id", post.ID, "slug", post.Slug, "title", post.Title)
	return result, nil
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
