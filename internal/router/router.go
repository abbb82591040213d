// Package router answers chat turns: it classifies the newest user message
// and either publishes an article, searches for topics or chats.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"contentops/internal/article"
	"contentops/internal/core"
	"contentops/internal/llm"
	"contentops/internal/logger"
	"contentops/internal/prompts"
)

// ErrNoMessages is returned when a chat request carries no user message.
var ErrNoMessages = errors.New("at least one user message is required")

// Publisher runs the article workflow end to end.
type Publisher interface {
	Publish(ctx context.Context, req article.Request) (*article.Result, error)
}

// TopicSearcher suggests topic candidates.
type TopicSearcher interface {
	Search(ctx context.Context, query string, category core.Category) ([]core.TopicCandidate, error)
}

// Reply is the answer to one chat turn. Error carries an upstream failure
// that was turned into a friendly Message.
type Reply struct {
	Message string             `json:"message"`
	Action  *core.ActionResult `json:"actionResult,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// Router dispatches chat turns by intent.
type Router struct {
	publisher Publisher
	topics    TopicSearcher
	llm       llm.Completer
	log       *slog.Logger
}

// New creates a Router.
func New(publisher Publisher, topics TopicSearcher, completer llm.Completer) *Router {
	return &Router{
		publisher: publisher,
		topics:    topics,
		llm:       completer,
		log:       logger.Get(),
	}
}

// Handle answers the conversation. Upstream failures are reported inside the
// Reply; the returned error is reserved for ErrNoMessages and missing
// credentials (llm.ErrMissingAPIKey), which callers treat as non-recoverable.
func (r *Router) Handle(ctx context.Context, messages []core.ChatMessage) (Reply, error) {
	if lastUserMessage(messages) == "" {
		return Reply{}, ErrNoMessages
	}

	intent := Classify(messages)
	r.log.Debug("Classified chat intent", "intent", intent.Kind.String(), "topic", intent.Topic)

	var (
		reply Reply
		err   error
	)
	switch intent.Kind {
	case IntentPublish:
		reply, err = r.publish(ctx, intent.Topic)
	case IntentSearch:
		reply, err = r.search(ctx, intent.Query)
	default:
		reply, err = r.chat(ctx, messages)
	}

	if errors.Is(err, llm.ErrMissingAPIKey) {
		return Reply{}, err
	}
	if err != nil {
		logger.Error("Chat turn failed", err, "intent", intent.Kind.String())
		reply.Error = err.Error()
	}
	return reply, nil
}

func (r *Router) publish(ctx context.Context, topic string) (Reply, error) {
	result, err := r.publisher.Publish(ctx, article.Request{Topic: topic, Category: core.CategoryBoth})
	if err != nil {
		return Reply{
			Message: fmt.Sprintf("I couldn't publish an article about %q: %v. Please check your configuration and try again.", topic, err),
		}, err
	}

	return Reply{
		Message: fmt.Sprintf("Done! I published %q. It's live at /blog/%s.\n\n%s",
			result.Article.Title, result.Article.Slug, result.Article.Excerpt),
		Action: core.ArticlePublished(result.Article.Title, result.Article.Slug, result.PostID),
	}, nil
}

func (r *Router) search(ctx context.Context, query string) (Reply, error) {
	results, err := r.topics.Search(ctx, query, core.CategoryBoth)
	if err != nil {
		return Reply{
			Message: fmt.Sprintf("I couldn't search for topics right now: %v. Please check your configuration and try again.", err),
			Action:  core.SearchResults([]core.TopicCandidate{}),
		}, err
	}
	return Reply{
		Message: summarizeTopics(results),
		Action:  core.SearchResults(results),
	}, nil
}

func summarizeTopics(results []core.TopicCandidate) string {
	if len(results) == 0 {
		return "I couldn't find any trending topics this time. Try a more specific search."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here are %d topic ideas:\n", len(results))
	for i, c := range results {
		fmt.Fprintf(&b, "\n%d. %s", i+1, c.Title)
		if c.Snippet != "" {
			fmt.Fprintf(&b, ": %s", c.Snippet)
		}
		if c.Source != "" {
			fmt.Fprintf(&b, " (%s)", c.Source)
		}
	}
	b.WriteString("\n\nSay \"publish an article about <topic>\" to write one.")
	return b.String()
}

func (r *Router) chat(ctx context.Context, messages []core.ChatMessage) (Reply, error) {
	history := make([]core.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == core.RoleUser || m.Role == core.RoleAssistant {
			history = append(history, m)
		}
	}

	text, err := r.llm.Complete(ctx, llm.Request{System: prompts.ChatPersona, Messages: history})
	if err != nil {
		return Reply{
			Message: fmt.Sprintf("Sorry, I couldn't reach the AI service: %v. Please check your configuration and try again.", err),
		}, err
	}
	return Reply{Message: strings.TrimSpace(text)}, nil
}
