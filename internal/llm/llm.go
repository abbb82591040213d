package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"contentops/internal/config"
	"contentops/internal/core"
)

// ErrMissingAPIKey is returned by Complete when no credential is configured
// for the selected provider. The HTTP layer maps it to a 500 with setup hints.
var ErrMissingAPIKey = errors.New("completion API key is not configured")

// ErrEmptyResponse is returned when the provider answers with no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Request is a single completion call.
type Request struct {
	System      string             // Optional system prompt
	Messages    []core.ChatMessage // Oldest first
	MaxTokens   int                // 0 means provider default
	Temperature *float64           // nil means client default
}

// Completer is implemented by every completion backend.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Model() string
}

// Prompt sends a single user prompt and returns the trimmed reply.
func Prompt(ctx context.Context, c Completer, prompt string, maxTokens int) (string, error) {
	text, err := c.Complete(ctx, Request{
		Messages:  []core.ChatMessage{{Role: core.RoleUser, Content: prompt}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// NewFromConfig builds the configured provider wrapped with tracing.
// Missing credentials do not fail construction; Complete reports them per call.
func NewFromConfig(cfg config.AI) (Completer, error) {
	var c Completer
	switch cfg.Provider {
	case "", "openai":
		c = NewOpenAIClient(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Model,
			withDefault(cfg.OpenAI.Timeout, 60*time.Second), cfg.OpenAI.Temperature)
	case "gemini":
		gc, err := NewGeminiClient(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model,
			withDefault(cfg.Gemini.Timeout, 60*time.Second))
		if err != nil {
			return nil, err
		}
		c = gc
	default:
		return nil, fmt.Errorf("unknown AI provider: %s", cfg.Provider)
	}
	return NewTracedClient(c), nil
}

func withDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
