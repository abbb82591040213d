package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"contentops/internal/core"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-flash-lite-latest"

// GeminiClient completes prompts through the Gemini API.
type GeminiClient struct {
	modelName string
	timeout   time.Duration
	gClient   *genai.Client // nil when no API key is configured
}

// NewGeminiClient creates a Gemini-backed Completer.
func NewGeminiClient(ctx context.Context, apiKey, modelName string, timeout time.Duration) (*GeminiClient, error) {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	c := &GeminiClient{modelName: modelName, timeout: timeout}
	if apiKey == "" {
		return c, nil
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	c.gClient = gClient
	return c, nil
}

// Model returns the Gemini model name.
func (c *GeminiClient) Model() string {
	return c.modelName
}

// Complete maps the request onto GenerateContent. Assistant turns become "model" turns.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.gClient == nil {
		return "", ErrMissingAPIKey
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := "user"
		if m.Role == core.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: m.Content}},
			Role:  role,
		})
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.7)),
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
