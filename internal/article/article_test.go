package article

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"contentops/internal/core"
	"contentops/internal/imagesearch"
	"contentops/internal/persistence"
	"contentops/internal/prompts"
	"contentops/test/mocks"
)

var slugShape = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  AI & Customs: 2025 Outlook!  ", "ai-customs-2025-outlook"},
		{"---", ""},
		{"", ""},
		{"Café déjà vu", "caf-d-j-vu"},
		{"already-a-slug", "already-a-slug"},
		{"Multiple   spaces__and--dashes", "multiple-spaces-and-dashes"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSlugify_Properties(t *testing.T) {
	inputs := []string{
		"How AI is transforming logistics operations",
		strings.Repeat("word ", 30),
		"The 10 Best Ways to Automate Customs Brokerage With Large Language Models in 2025",
		strings.Repeat("a", 59) + " b",
		"!!!",
		"日本語のタイトル",
		"Ends with punctuation ...",
	}
	for _, in := range inputs {
		slug := Slugify(in)
		if len(slug) > core.MaxSlugLength {
			t.Errorf("Slugify(%q) length %d exceeds %d", in, len(slug), core.MaxSlugLength)
		}
		if slug != "" && !slugShape.MatchString(slug) {
			t.Errorf("Slugify(%q) = %q does not match slug shape", in, slug)
		}
		if again := Slugify(slug); again != slug {
			t.Errorf("Slugify not idempotent: %q -> %q", slug, again)
		}
	}
}

func TestWithSuffix(t *testing.T) {
	long := Slugify(strings.Repeat("logistics ", 10))
	got := withSuffix(long, "abcd1234")
	if len(got) > core.MaxSlugLength || !strings.HasSuffix(got, "-abcd1234") || !slugShape.MatchString(got) {
		t.Errorf("withSuffix = %q", got)
	}
	if got := withSuffix("", "abcd1234"); got != "abcd1234" {
		t.Errorf("withSuffix(empty) = %q", got)
	}
}

func TestParseCategories(t *testing.T) {
	cats, err := DefaultCategories()
	if err != nil {
		t.Fatalf("DefaultCategories: %v", err)
	}
	for _, c := range []core.Category{core.CategoryLogistics, core.CategoryAI, core.CategoryBoth} {
		if len(cats.Keywords(c)) == 0 {
			t.Errorf("category %s has no keywords", c)
		}
	}
	if got := cats.Keywords("unknown"); len(got) == 0 {
		t.Error("unknown category should fall back to both")
	}

	if _, err := ParseCategories([]byte("logistics: [a]\nai: [b]\n")); err == nil {
		t.Error("expected error for missing category")
	}
	if _, err := ParseCategories([]byte("logistics: [a]\nai: [b]\nboth: [c]\nretail: [d]\n")); err == nil {
		t.Error("expected error for unknown category")
	}
}

// fakePosts is an in-memory PostRepository enforcing unique slugs.
type fakePosts struct {
	bySlug map[string]core.Post
	err    error
	seq    int
}

func newFakePosts() *fakePosts { return &fakePosts{bySlug: make(map[string]core.Post)} }

func (f *fakePosts) Create(ctx context.Context, post *core.Post) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.bySlug[post.Slug]; ok {
		return fmt.Errorf("post slug %q: %w", post.Slug, persistence.ErrDuplicate)
	}
	f.seq++
	post.ID = fmt.Sprintf("post-%d", f.seq)
	f.bySlug[post.Slug] = *post
	return nil
}

func (f *fakePosts) Get(ctx context.Context, id string) (*core.Post, error) {
	for _, p := range f.bySlug {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, persistence.ErrNotFound
}

func (f *fakePosts) GetBySlug(ctx context.Context, slug string) (*core.Post, error) {
	if p, ok := f.bySlug[slug]; ok {
		return &p, nil
	}
	return nil, persistence.ErrNotFound
}

func (f *fakePosts) List(ctx context.Context, limit int) ([]core.Post, error) {
	var posts []core.Post
	for _, p := range f.bySlug {
		posts = append(posts, p)
	}
	return posts, nil
}

const draftJSON = `Sure! Here is your article:
{"title": "AI Customs Automation in Practice", "excerpt": "How brokers cut clearance time.", "content": "## Why now\n\nBrokers are drowning in paperwork."}
Let me know if you need changes.`

func newTestWorkflow(t *testing.T, completer *mocks.MockCompleter, images *mocks.MockImageSearcher, posts persistence.PostRepository) *Workflow {
	t.Helper()
	var covers *imagesearch.CoverFinder
	if images != nil {
		covers = imagesearch.NewCoverFinder(images)
	}
	w, err := NewWorkflow(completer, covers, posts)
	if err != nil {
		t.Fatalf("NewWorkflow: %v", err)
	}
	return w
}

func TestGenerate_WithTopic(t *testing.T) {
	completer := mocks.NewMockCompleter("").SetResponse("AI customs automation", draftJSON)
	images := &mocks.MockImageSearcher{Results: map[string][]imagesearch.Image{
		"customs automation practice": {{URL: "https://img.example/1.jpg"}},
	}}
	w := newTestWorkflow(t, completer, images, nil)

	result, err := w.Generate(context.Background(), Request{Topic: "AI customs automation", Category: core.CategoryBoth})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if result.Article.Title != "AI Customs Automation in Practice" {
		t.Errorf("title = %q", result.Article.Title)
	}
	if result.Article.Slug != "ai-customs-automation-in-practice" {
		t.Errorf("slug = %q", result.Article.Slug)
	}
	if result.Article.CoverImage != "https://img.example/1.jpg" {
		t.Errorf("cover = %q", result.Article.CoverImage)
	}
	if result.FellBack {
		t.Error("expected parsed draft, got fallback")
	}
	if completer.CallCount() != 1 {
		t.Errorf("expected 1 completion call with explicit topic, got %d", completer.CallCount())
	}
}

func TestGenerate_ResolvesTopic(t *testing.T) {
	completer := mocks.NewMockCompleter("").
		SetResponse("Suggest one specific", "1. \"Predictive ETAs for ocean freight\"").
		SetResponse("Predictive ETAs for ocean freight", draftJSON)
	w := newTestWorkflow(t, completer, nil, nil)

	result, err := w.Generate(context.Background(), Request{Category: core.CategoryLogistics})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Topic != "Predictive ETAs for ocean freight" {
		t.Errorf("topic = %q", result.Topic)
	}
	if completer.CallCount() != 2 {
		t.Errorf("expected 2 completion calls, got %d", completer.CallCount())
	}

	topicPrompt := completer.Requests()[0].Messages[0].Content
	if !strings.Contains(topicPrompt, "freight forwarding") {
		t.Errorf("topic prompt not seeded with logistics keywords: %q", topicPrompt)
	}
}

func TestGenerate_ProseFallback(t *testing.T) {
	completer := mocks.NewMockCompleter("Here are some thoughts on freight, but no JSON at all.")
	w := newTestWorkflow(t, completer, nil, nil)

	result, err := w.Generate(context.Background(), Request{Topic: "Freight visibility"})
	if err != nil {
		t.Fatalf("Generate should degrade, not fail: %v", err)
	}
	if !result.FellBack {
		t.Error("expected fallback")
	}
	if result.Article.Title != "Freight visibility" || result.Article.Content != "Here are some thoughts on freight, but no JSON at all." {
		t.Errorf("unexpected fallback article: %+v", result.Article)
	}
	if result.Article.CoverImage != "" {
		t.Errorf("cover = %q, want empty without image search", result.Article.CoverImage)
	}
}

func TestGenerate_CompletionFailureAborts(t *testing.T) {
	completer := mocks.NewMockCompleter("")
	completer.Err = mocks.ErrMock
	w := newTestWorkflow(t, completer, nil, newFakePosts())

	if _, err := w.Generate(context.Background(), Request{Topic: "x"}); !errors.Is(err, mocks.ErrMock) {
		t.Errorf("Generate error = %v, want ErrMock", err)
	}
	if _, err := w.Publish(context.Background(), Request{}); !errors.Is(err, mocks.ErrMock) {
		t.Errorf("Publish error = %v, want ErrMock", err)
	}
}

func TestGenerate_ImageFailureDoesNotAbort(t *testing.T) {
	completer := mocks.NewMockCompleter(draftJSON)
	images := &mocks.MockImageSearcher{Err: imagesearch.ErrRateLimited}
	w := newTestWorkflow(t, completer, images, nil)

	result, err := w.Generate(context.Background(), Request{Topic: "AI customs automation"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Article.CoverImage != "" {
		t.Errorf("cover = %q, want empty", result.Article.CoverImage)
	}
}

func TestGenerate_EmptyTopicResolutionUsesDefault(t *testing.T) {
	completer := mocks.NewMockCompleter(draftJSON).SetResponse("Suggest one specific", "  \"\"  ")
	w := newTestWorkflow(t, completer, nil, nil)

	result, err := w.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Topic != prompts.DefaultTopic {
		t.Errorf("topic = %q, want default", result.Topic)
	}
}

func TestPublish(t *testing.T) {
	posts := newFakePosts()
	w := newTestWorkflow(t, mocks.NewMockCompleter(draftJSON), nil, posts)

	result, err := w.Publish(context.Background(), Request{Topic: "AI customs automation"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if result.PostID == "" {
		t.Fatal("expected post id")
	}

	stored, err := posts.GetBySlug(context.Background(), result.Article.Slug)
	if err != nil {
		t.Fatalf("post not stored: %v", err)
	}
	if !stored.Published || stored.Author != core.DefaultAuthor {
		t.Errorf("stored post = %+v", stored)
	}
	if !strings.Contains(result.Summary(), "Published") {
		t.Errorf("summary = %q", result.Summary())
	}
}

func TestPublish_SlugCollisionRetriesWithSuffix(t *testing.T) {
	posts := newFakePosts()
	w := newTestWorkflow(t, mocks.NewMockCompleter(draftJSON), nil, posts)

	first, err := w.Publish(context.Background(), Request{Topic: "AI customs automation"})
	if err != nil {
		t.Fatalf("first Publish: %v", err)
	}
	second, err := w.Publish(context.Background(), Request{Topic: "AI customs automation"})
	if err != nil {
		t.Fatalf("second Publish: %v", err)
	}

	if first.Article.Slug == second.Article.Slug {
		t.Fatalf("expected distinct slugs, both %q", first.Article.Slug)
	}
	if !strings.HasPrefix(second.Article.Slug, first.Article.Slug+"-") || !slugShape.MatchString(second.Article.Slug) {
		t.Errorf("retry slug = %q", second.Article.Slug)
	}
}

func TestPublish_StoreFailurePropagates(t *testing.T) {
	posts := newFakePosts()
	posts.err = errors.New("connection refused")
	w := newTestWorkflow(t, mocks.NewMockCompleter(draftJSON), nil, posts)

	if _, err := w.Publish(context.Background(), Request{Topic: "AI"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestPublish_NoRepository(t *testing.T) {
	w := newTestWorkflow(t, mocks.NewMockCompleter(draftJSON), nil, nil)
	if _, err := w.Publish(context.Background(), Request{Topic: "AI"}); !errors.Is(err, ErrNoRepository) {
		t.Errorf("error = %v, want ErrNoRepository", err)
	}
}
