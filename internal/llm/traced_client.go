package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"contentops/internal/logger"
)

// TracedClient wraps a Completer with an OpenTelemetry span and a debug log per call.
type TracedClient struct {
	client Completer
	tracer trace.Tracer
}

// NewTracedClient wraps c using the global tracer provider.
func NewTracedClient(c Completer) *TracedClient {
	return &TracedClient{
		client: c,
		tracer: otel.Tracer("contentops/llm"),
	}
}

// Unwrap returns the underlying client.
func (tc *TracedClient) Unwrap() Completer {
	return tc.client
}

// Model returns the underlying model name.
func (tc *TracedClient) Model() string {
	return tc.client.Model()
}

// Complete runs the wrapped completion inside an "llm.complete" span.
func (tc *TracedClient) Complete(ctx context.Context, req Request) (string, error) {
	ctx, span := tc.tracer.Start(ctx, "llm.complete",
		trace.WithAttributes(
			attribute.String("llm.model", tc.client.Model()),
			attribute.Int("llm.messages", len(req.Messages)),
			attribute.Int("llm.max_tokens", req.MaxTokens),
		),
	)
	defer span.End()

	start := time.Now()
	text, err := tc.client.Complete(ctx, req)
	latency := time.Since(start)

	span.SetAttributes(
		attribute.Int64("llm.latency_ms", latency.Milliseconds()),
		attribute.Int("llm.completion_chars", len(text)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Debug("completion failed", "model", tc.client.Model(), "latency", latency, "error", err.Error())
		return "", err
	}

	logger.Debug("completion finished", "model", tc.client.Model(), "latency", latency, "chars", len(text))
	return text, nil
}
