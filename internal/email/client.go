package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no API key or recipient is configured
var ErrNotConfigured = errors.New("email delivery is not configured")

// Message is one outbound email
type Message struct {
	To      []string
	Subject string
	HTML    string
	ReplyTo string
}

// Sender delivers email messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ResendClient sends mail through the Resend HTTP API
type ResendClient struct {
	apiKey     string
	baseURL    string
	from       string
	httpClient *http.Client
}

// NewResendClient creates a new email API client
func NewResendClient(apiKey, baseURL, fromName, fromAddress string, timeout time.Duration) *ResendClient {
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	from := fromAddress
	if fromName != "" {
		from = fmt.Sprintf("%s <%s>", fromName, fromAddress)
	}
	return &ResendClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		from:       from,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// Send posts the message to the /emails endpoint
func (c *ResendClient) Send(ctx context.Context, msg Message) error {
	if c.apiKey == "" || len(msg.To) == 0 {
		return ErrNotConfigured
	}

	reqBody, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("email API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
