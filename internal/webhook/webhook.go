// Package webhook delivers lead payloads to the downstream automation webhook.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"contentops/internal/core"
	"contentops/internal/logger"
)

// Delivery defaults.
const (
	DefaultMaxRetries     = 3
	DefaultRetryDelay     = time.Second
	DefaultAttemptTimeout = 10 * time.Second
)

// ErrNotConfigured is reported when no webhook URL is set.
var ErrNotConfigured = errors.New("lead webhook URL is not configured")

// Payload is the JSON document the webhook receives.
type Payload struct {
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	Company     string    `json:"company"`
	Role        string    `json:"role"`
	CompanySize string    `json:"companySize"`
	Phone       string    `json:"phone"`
	Source      string    `json:"source"`
	Timestamp   time.Time `json:"timestamp"`
	FormType    string    `json:"formType"`
}

// NewPayload normalizes a lead for delivery.
func NewPayload(lead core.Lead, formType string, now time.Time) Payload {
	return Payload{
		FullName:    lead.FullName,
		Email:       lead.Email,
		Company:     lead.Company,
		Role:        lead.Role,
		CompanySize: lead.CompanySize,
		Phone:       lead.Phone,
		Source:      lead.Source,
		Timestamp:   now.UTC(),
		FormType:    formType,
	}
}

// Attempt records one POST to the webhook.
type Attempt struct {
	Number     int    `json:"attempt"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// Report is the outcome of a logical delivery.
type Report struct {
	Success  bool      `json:"success"`
	Attempts []Attempt `json:"attempts"`
	Error    string    `json:"error,omitempty"`
}

// Config controls delivery. Zero values take the package defaults.
type Config struct {
	URL            string
	MaxRetries     int
	RetryDelay     time.Duration
	AttemptTimeout time.Duration
}

// Client posts payloads to a single webhook URL.
type Client struct {
	url            string
	maxRetries     int
	retryDelay     time.Duration
	attemptTimeout time.Duration
	httpClient     *http.Client
	timer          backoff.Timer // nil uses a real timer
	tracer         trace.Tracer
}

// NewClient creates a webhook client.
func NewClient(cfg Config) *Client {
	c := &Client{
		url:            cfg.URL,
		maxRetries:     cfg.MaxRetries,
		retryDelay:     cfg.RetryDelay,
		attemptTimeout: cfg.AttemptTimeout,
		httpClient:     &http.Client{},
		tracer:         otel.Tracer("contentops/webhook"),
	}
	if c.maxRetries <= 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.retryDelay <= 0 {
		c.retryDelay = DefaultRetryDelay
	}
	if c.attemptTimeout <= 0 {
		c.attemptTimeout = DefaultAttemptTimeout
	}
	return c
}

// Configured reports whether a URL is set.
func (c *Client) Configured() bool {
	return c.url != ""
}

// statusError is a non-2xx webhook response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("webhook returned status %d: %s", e.code, e.body)
}

// Deliver posts the payload up to maxRetries times. A 2xx ends delivery, a 4xx
// stops without retrying, and 5xx or transport errors wait retryDelay*attempt
// before the next try. Deliver never returns an error; the report says what happened.
func (c *Client) Deliver(ctx context.Context, payload Payload) Report {
	return c.deliver(ctx, payload, c.maxRetries, "webhook.deliver")
}

// DeliverOnce makes a single attempt with no retry. It backs the emergency path.
func (c *Client) DeliverOnce(ctx context.Context, payload Payload) Report {
	return c.deliver(ctx, payload, 1, "webhook.deliver_once")
}

func (c *Client) deliver(ctx context.Context, payload Payload, maxAttempts int, spanName string) Report {
	report := Report{Attempts: []Attempt{}}
	if !c.Configured() {
		report.Error = ErrNotConfigured.Error()
		return report
	}

	ctx, span := c.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("lead.form_type", payload.FormType),
		attribute.Int("webhook.max_attempts", maxAttempts),
	))
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		report.Error = fmt.Sprintf("failed to marshal payload: %v", err)
		span.SetStatus(codes.Error, report.Error)
		return report
	}

	operation := func() error {
		attempt := Attempt{Number: len(report.Attempts) + 1}
		start := time.Now()
		code, err := c.post(ctx, body)
		attempt.DurationMs = time.Since(start).Milliseconds()
		attempt.StatusCode = code
		if err != nil {
			attempt.Error = err.Error()
		}
		report.Attempts = append(report.Attempts, attempt)

		if err == nil {
			logger.Info("webhook delivered", "attempt", attempt.Number, "status", code, "form_type", payload.FormType)
			return nil
		}
		logger.Warn("webhook attempt failed", "attempt", attempt.Number, "max_attempts", maxAttempts, "status", code, "error", err.Error())

		if code >= 400 && code < 500 {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(&linearBackOff{step: c.retryDelay}, uint64(maxAttempts-1)), ctx)
	err = backoff.RetryNotifyWithTimer(operation, policy, nil, c.timer)

	span.SetAttributes(attribute.Int("webhook.attempts", len(report.Attempts)))
	if err != nil {
		report.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report
	}

	report.Success = true
	return report
}

// post sends one request bounded by the per-attempt timeout and returns the status code.
func (c *Client) post(ctx context.Context, body []byte) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resp.StatusCode, &statusError{code: resp.StatusCode, body: string(respBody)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// linearBackOff waits step, 2*step, 3*step, ...
type linearBackOff struct {
	step time.Duration
	n    int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return b.step * time.Duration(b.n)
}

func (b *linearBackOff) Reset() {
	b.n = 0
}

// ProbeResult describes webhook reachability.
type ProbeResult struct {
	Configured bool   `json:"configured"`
	Reachable  bool   `json:"reachable"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Probe issues a GET to the webhook URL. Any response below 500 counts as reachable.
func (c *Client) Probe(ctx context.Context) ProbeResult {
	result := ProbeResult{Configured: c.Configured()}
	if !result.Configured {
		result.Error = ErrNotConfigured.Error()
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	result.Reachable = resp.StatusCode < 500
	return result
}
