package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentops/internal/article"
	"contentops/internal/config"
	"contentops/internal/contact"
	"contentops/internal/core"
	"contentops/internal/imagesearch"
	"contentops/internal/leads"
	"contentops/internal/llm"
	"contentops/internal/persistence"
	"contentops/internal/ratelimit"
	"contentops/internal/router"
	"contentops/internal/webhook"
)

const adminKey = "s3cret"

func newTestDB(t *testing.T) *persistence.SQLDB {
	t.Helper()
	db, err := persistence.NewSQLiteDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, persistence.NewMigrationManager(db).Migrate(context.Background()))
	return db
}

type fakeChat struct {
	reply router.Reply
	err   error
}

func (f fakeChat) Handle(ctx context.Context, messages []core.ChatMessage) (router.Reply, error) {
	if len(messages) == 0 {
		return router.Reply{}, router.ErrNoMessages
	}
	return f.reply, f.err
}

type fakeArticles struct {
	result    *article.Result
	err       error
	published bool
}

func (f *fakeArticles) Generate(ctx context.Context, req article.Request) (*article.Result, error) {
	return f.result, f.err
}

func (f *fakeArticles) Publish(ctx context.Context, req article.Request) (*article.Result, error) {
	f.published = true
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	res.PostID = "post-1"
	return &res, nil
}

type fakeTopics struct {
	results []core.TopicCandidate
	err     error
}

func (f fakeTopics) Search(ctx context.Context, query string, category core.Category) ([]core.TopicCandidate, error) {
	return f.results, f.err
}

type fakeCovers struct {
	img imagesearch.Image
	err error
}

func (f fakeCovers) Find(ctx context.Context, title string, pool int) (imagesearch.Image, error) {
	return f.img, f.err
}

type fakeContact struct {
	err error
}

func (f fakeContact) Submit(ctx context.Context, form contact.Form) (contact.Result, error) {
	if f.err != nil {
		return contact.Result{}, f.err
	}
	if err := form.Normalize().Validate(); err != nil {
		return contact.Result{}, err
	}
	return contact.Result{ID: "c-1", EmailSent: false}, nil
}

type fakeLeads struct {
	err error
}

func (f fakeLeads) CaptureEbook(ctx context.Context, sub leads.Submission) (leads.Outcome, error) {
	return leads.Outcome{}, f.err
}

func (f fakeLeads) CapturePlaybook(ctx context.Context, sub leads.Submission) (leads.Outcome, error) {
	return leads.Outcome{}, f.err
}

func (f fakeLeads) Recent(ctx context.Context, limit int) ([]core.Lead, error) {
	return nil, f.err
}

func do(t *testing.T, s *Server, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	db := newTestDB(t)
	s := New(config.Server{}, Deps{DB: db, Webhook: webhook.NewClient(webhook.Config{})})

	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["database"])
	assert.Equal(t, "not_configured", checks["webhook"])

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestHealth_DoesNotCallWebhook(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	s := New(config.Server{}, Deps{Webhook: webhook.NewClient(webhook.Config{URL: hook.URL})})
	for i := 0; i < 3; i++ {
		rec := do(t, s, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, rec.Code)
		checks := decode(t, rec)["checks"].(map[string]interface{})
		assert.Equal(t, "configured", checks["webhook"])
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls, "health checks must not reach the lead webhook")
}

func TestChat(t *testing.T) {
	t.Run("publish action", func(t *testing.T) {
		s := New(config.Server{}, Deps{Chat: fakeChat{reply: router.Reply{
			Message: "Published",
			Action:  core.ArticlePublished("AI Customs", "ai-customs", "p1"),
		}}})
		rec := do(t, s, http.MethodPost, "/api/ai/chat", `{"messages":[{"role":"user","content":"publish article about AI customs automation"}]}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		action := body["actionResult"].(map[string]interface{})
		assert.Equal(t, "article_published", action["type"])
		assert.Equal(t, "ai-customs", action["slug"])
	})

	t.Run("upstream error stays 200", func(t *testing.T) {
		s := New(config.Server{}, Deps{Chat: fakeChat{err: errors.New("upstream 502")}})
		rec := do(t, s, http.MethodPost, "/api/ai/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "upstream 502", decode(t, rec)["error"])
	})

	t.Run("missing key is 500", func(t *testing.T) {
		s := New(config.Server{}, Deps{Chat: fakeChat{err: llm.ErrMissingAPIKey}})
		rec := do(t, s, http.MethodPost, "/api/ai/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, decode(t, rec)["error"], "check your configuration")
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		s := New(config.Server{}, Deps{Chat: fakeChat{}})
		rec := do(t, s, http.MethodPost, "/api/ai/chat", `{"messages":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, false, decode(t, rec)["success"])
	})

	t.Run("no messages is 400", func(t *testing.T) {
		s := New(config.Server{}, Deps{Chat: fakeChat{}})
		rec := do(t, s, http.MethodPost, "/api/ai/chat", `{"messages":[]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGenerateArticle(t *testing.T) {
	result := &article.Result{
		Topic:   "Customs automation",
		Article: core.GeneratedArticle{Title: "Customs Automation", Slug: "customs-automation", Content: "# Hi"},
	}

	t.Run("draft only", func(t *testing.T) {
		articles := &fakeArticles{result: result}
		s := New(config.Server{}, Deps{Articles: articles})
		rec := do(t, s, http.MethodPost, "/api/ai/generate-article", `{"topic":"Customs automation","category":"ai"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "customs-automation", body["article"].(map[string]interface{})["slug"])
		assert.Nil(t, body["postId"])
		assert.False(t, articles.published)
	})

	t.Run("publish", func(t *testing.T) {
		articles := &fakeArticles{result: result}
		s := New(config.Server{}, Deps{Articles: articles})
		rec := do(t, s, http.MethodPost, "/api/ai/generate-article", `{"publish":true}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "post-1", decode(t, rec)["postId"])
		assert.True(t, articles.published)
	})

	t.Run("failure", func(t *testing.T) {
		s := New(config.Server{}, Deps{Articles: &fakeArticles{err: errors.New("completion failed")}})
		rec := do(t, s, http.MethodPost, "/api/ai/generate-article", `{}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "completion failed", body["error"])
	})
}

func TestSearchTopics(t *testing.T) {
	s := New(config.Server{}, Deps{Topics: fakeTopics{results: []core.TopicCandidate{{Title: "Drones", Snippet: "s", Source: "x"}}}})
	rec := do(t, s, http.MethodPost, "/api/ai/search-topics", `{"query":"drones"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["results"], 1)

	s = New(config.Server{}, Deps{Topics: fakeTopics{err: errors.New("down")}})
	rec = do(t, s, http.MethodPost, "/api/ai/search-topics", `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, []interface{}{}, body["results"])
}

func TestCoverImage(t *testing.T) {
	img := imagesearch.Image{URL: "https://img/large.jpg", PreviewURL: "https://img/small.jpg", Photographer: "ann", PageURL: "https://pixabay/1"}
	s := New(config.Server{}, Deps{Covers: fakeCovers{img: img}})
	rec := do(t, s, http.MethodPost, "/api/ai/cover-image", `{"title":"Customs Automation"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "https://img/large.jpg", body["imageUrl"])
	assert.Equal(t, "https://pixabay/1", body["pixabayUrl"])

	s = New(config.Server{}, Deps{Covers: fakeCovers{err: imagesearch.ErrNoResults}})
	rec = do(t, s, http.MethodPost, "/api/ai/cover-image", `{"title":"Nothing"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotContains(t, body, "imageUrl")

	rec = do(t, s, http.MethodPost, "/api/ai/cover-image", `{"title":" "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s = New(config.Server{}, Deps{Covers: fakeCovers{err: imagesearch.ErrMissingAPIKey}})
	rec = do(t, s, http.MethodPost, "/api/ai/cover-image", `{"title":"Customs"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

const janeDoe = `{"fullName":"Jane Doe","email":"jane@acme.com","company":"Acme","role":"Ops","companySize":"50-200"}`

func TestEbookLead_EndToEnd(t *testing.T) {
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	db := newTestDB(t)
	client := webhook.NewClient(webhook.Config{URL: hook.URL, RetryDelay: time.Millisecond})
	s := New(config.Server{}, Deps{
		DB:      db,
		Leads:   leads.NewService(db.Leads(), db.LeadForms(), client),
		Webhook: client,
	})

	rec := do(t, s, http.MethodPost, "/api/ebook-lead", janeDoe)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["webhookSent"])
	assert.Equal(t, true, body["databaseSaved"])

	rec = do(t, s, http.MethodPost, "/api/ebook-lead", `{"fullName":"Jane Doe","email":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/ebook-lead", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	probe := decode(t, rec)
	assert.Equal(t, true, probe["configured"])
	assert.Equal(t, true, probe["reachable"])
}

func TestPlaybookLeads(t *testing.T) {
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	db := newTestDB(t)
	client := webhook.NewClient(webhook.Config{URL: hook.URL, RetryDelay: time.Millisecond})
	s := New(config.Server{}, Deps{
		DB:          db,
		Leads:       leads.NewService(db.Leads(), db.LeadForms(), client),
		Limiter:     ratelimit.New(time.Minute, 5),
		AdminAPIKey: adminKey,
	})

	rec := do(t, s, http.MethodPost, "/api/playbook-leads", janeDoe)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/playbook-leads", janeDoe)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/playbook-leads", "", "Authorization", "Bearer "+adminKey)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["total"])

	s = New(config.Server{}, Deps{Leads: fakeLeads{err: errors.New("db down")}})
	rec = do(t, s, http.MethodPost, "/api/playbook-leads", janeDoe)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPlaybookLeads_RateLimited(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}

	s := New(config.Server{}, Deps{
		Leads:   fakeLeads{err: leads.ErrInvalidLead},
		Limiter: ratelimit.New(time.Minute, 5, ratelimit.WithClock(clock)),
	})

	for i := 0; i < 5; i++ {
		rec := do(t, s, http.MethodPost, "/api/playbook-leads", `{}`, "X-Forwarded-For", "203.0.113.7")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "request %d", i+1)
	}

	rec := do(t, s, http.MethodPost, "/api/playbook-leads", `{}`, "X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	rec = do(t, s, http.MethodPost, "/api/playbook-leads", `{}`, "X-Forwarded-For", "198.51.100.1")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "other clients are unaffected")

	advance(61 * time.Second)
	rec = do(t, s, http.MethodPost, "/api/playbook-leads", `{}`, "X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminAuth(t *testing.T) {
	db := newTestDB(t)

	s := New(config.Server{}, Deps{DB: db})
	rec := do(t, s, http.MethodGet, "/api/ai/schedules", "", "Authorization", "Bearer anything")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	s = New(config.Server{}, Deps{DB: db, AdminAPIKey: adminKey})
	rec = do(t, s, http.MethodGet, "/api/ai/schedules", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/ai/schedules", "", "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/ai/schedules", "", "Authorization", "Bearer "+adminKey)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSchedules(t *testing.T) {
	db := newTestDB(t)
	s := New(config.Server{}, Deps{DB: db, AdminAPIKey: adminKey})
	auth := []string{"Authorization", "Bearer " + adminKey}

	rec := do(t, s, http.MethodPost, "/api/ai/schedules",
		`{"topic_category":"logistics","scheduled_time":"2026-03-01T09:00:00Z"}`, auth...)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	schedule := decode(t, rec)["schedule"].(map[string]interface{})
	assert.Equal(t, "pending", schedule["status"])
	assert.Equal(t, "logistics", schedule["topic_category"])
	assert.NotEmpty(t, schedule["id"])

	rec = do(t, s, http.MethodPost, "/api/ai/schedules",
		`{"topic_category":"fintech","scheduled_time":"2026-03-01T09:00:00Z"}`, auth...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/ai/schedules",
		`{"topic_category":"ai","scheduled_time":"tomorrow"}`, auth...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/ai/schedules?limit=10", "", auth...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	rec = do(t, s, http.MethodGet, "/api/ai/schedules?limit=zero", "", auth...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContact(t *testing.T) {
	s := New(config.Server{}, Deps{Contact: fakeContact{}})

	rec := do(t, s, http.MethodPost, "/api/contact", `{"name":"Ann","email":"ann@example.com","message":"Need a quote"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c-1", decode(t, rec)["id"])

	rec = do(t, s, http.MethodPost, "/api/contact", `{"name":"Ann","email":"ann","message":"Need a quote"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s = New(config.Server{}, Deps{Contact: fakeContact{err: errors.New("db down")}})
	rec = do(t, s, http.MethodPost, "/api/contact", `{"name":"Ann","email":"ann@example.com","message":"Need a quote"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUnconfiguredServices(t *testing.T) {
	s := New(config.Server{}, Deps{})
	for _, path := range []string{"/api/ai/chat", "/api/ai/generate-article", "/api/ebook-lead", "/api/contact"} {
		rec := do(t, s, http.MethodPost, path, `{}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}
