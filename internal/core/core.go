package core

import (
	"encoding/json"
	"strings"
	"time"
)

// Chat roles accepted from clients.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is one turn of a chat conversation. It lives only in the request body.
type ChatMessage struct {
	Role    string `json:"role"`    // user or assistant
	Content string `json:"content"` // Message text
}

// ActionType tags the variant carried by an ActionResult.
type ActionType string

const (
	ActionSearchResults    ActionType = "search_results"
	ActionArticlePublished ActionType = "article_published"
)

// ActionResult tells the caller which UI side effect a chat reply triggered.
// A nil *ActionResult means the reply carries no action.
type ActionResult struct {
	Type    ActionType       `json:"type"`
	Results []TopicCandidate `json:"results,omitempty"` // search_results
	Title   string           `json:"title,omitempty"`   // article_published
	Slug    string           `json:"slug,omitempty"`    // article_published
	PostID  string           `json:"postId,omitempty"`  // article_published
}

// SearchResults builds a search_results action.
func SearchResults(results []TopicCandidate) *ActionResult {
	if results == nil {
		results = []TopicCandidate{}
	}
	return &ActionResult{Type: ActionSearchResults, Results: results}
}

// MarshalJSON emits only the fields of the active variant.
func (a ActionResult) MarshalJSON() ([]byte, error) {
	if a.Type == ActionSearchResults {
		results := a.Results
		if results == nil {
			results = []TopicCandidate{}
		}
		return json.Marshal(struct {
			Type    ActionType       `json:"type"`
			Results []TopicCandidate `json:"results"`
		}{a.Type, results})
	}
	type plain ActionResult
	return json.Marshal(plain(a))
}

// ArticlePublished builds an article_published action.
func ArticlePublished(title, slug, postID string) *ActionResult {
	return &ActionResult{Type: ActionArticlePublished, Title: title, Slug: slug, PostID: postID}
}

// TopicCandidate is a suggested article topic. Never persisted.
type TopicCandidate struct {
	Title     string   `json:"title"`
	Snippet   string   `json:"snippet"`
	Source    string   `json:"source"`
	Relevance *float64 `json:"relevance,omitempty"`
}

// Category selects the keyword cluster used to seed topic resolution.
type Category string

const (
	CategoryLogistics Category = "logistics"
	CategoryAI        Category = "ai"
	CategoryBoth      Category = "both"
)

// ParseCategory normalizes user input. Empty or unknown values map to CategoryBoth.
func ParseCategory(s string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryLogistics:
		return CategoryLogistics
	case CategoryAI:
		return CategoryAI
	default:
		return CategoryBoth
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c == CategoryLogistics || c == CategoryAI || c == CategoryBoth
}

// Length limits applied to generated articles.
const (
	MaxTitleLength   = 70
	MaxSlugLength    = 60
	MaxExcerptLength = 200
)

// DefaultAuthor is stamped on every AI-generated post.
const DefaultAuthor = "Structure AI"

// GeneratedArticle is the immutable output of the article workflow.
type GeneratedArticle struct {
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	Excerpt    string `json:"excerpt"`
	Content    string `json:"content"`     // Markdown
	CoverImage string `json:"cover_image"` // URL or empty
}

// Post is a published blog post row.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Excerpt     string    `json:"excerpt"`
	Content     string    `json:"content"`
	CoverImage  string    `json:"cover_image"`
	Author      string    `json:"author"`
	Published   bool      `json:"published"`
	ExternalURL string    `json:"external_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewPost turns a generated article into a published post.
func NewPost(a GeneratedArticle) Post {
	return Post{
		Title:      a.Title,
		Slug:       a.Slug,
		Excerpt:    a.Excerpt,
		Content:    a.Content,
		CoverImage: a.CoverImage,
		Author:     DefaultAuthor,
		Published:  true,
	}
}

// ScheduleStatus is the lifecycle state of a scheduled post.
// A row moves pending -> completed|failed exactly once.
type ScheduleStatus string

const (
	SchedulePending   ScheduleStatus = "pending"
	ScheduleCompleted ScheduleStatus = "completed"
	ScheduleFailed    ScheduleStatus = "failed"
)

// ScheduledPost is a durable request to publish an article at a given time.
type ScheduledPost struct {
	ID            string         `json:"id"`
	TopicCategory Category       `json:"topic_category"`
	ScheduledTime time.Time      `json:"scheduled_time"`
	Status        ScheduleStatus `json:"status"`
	PostID        *string        `json:"post_id,omitempty"`
	ClaimedAt     *time.Time     `json:"claimed_at,omitempty"` // Executor lease
	Error         string         `json:"error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Lead sources, also used as the webhook formType.
const (
	LeadSourceEbook    = "ebook"
	LeadSourcePlaybook = "playbook"
)

// LeadStatusNew is the status of every freshly captured lead.
const LeadStatusNew = "new"

// Lead is a captured marketing lead. Email is the upsert key.
type Lead struct {
	ID          string    `json:"id,omitempty"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	Company     string    `json:"company"`
	Role        string    `json:"role"`
	CompanySize string    `json:"companySize"`
	Phone       string    `json:"phone,omitempty"`
	Source      string    `json:"source,omitempty"`
	Status      string    `json:"status,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// LeadFormCapture is an append-only raw record of a validated form submission.
type LeadFormCapture struct {
	ID        string          `json:"id"`
	FormType  string          `json:"form_type"`
	Email     string          `json:"email"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// ContactSubmission is a quote request from the contact form.
type ContactSubmission struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Service   string    `json:"service,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
