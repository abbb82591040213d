// Package mocks provides hand-written fakes for the external service adapters.
package mocks

import (
	"context"
	"errors"
	"strings"
	"sync"

	"contentops/internal/email"
	"contentops/internal/imagesearch"
	"contentops/internal/llm"
)

// MockCompleter implements llm.Completer. Responses are matched by substring
// against the last message, checked in insertion order.
type MockCompleter struct {
	CompleteFunc func(ctx context.Context, req llm.Request) (string, error)
	Fallback     string
	Err          error

	mu       sync.Mutex
	keys     []string
	replies  map[string]string
	requests []llm.Request
}

// NewMockCompleter returns a completer answering fallback when no key matches.
func NewMockCompleter(fallback string) *MockCompleter {
	return &MockCompleter{Fallback: fallback, replies: make(map[string]string)}
}

// SetResponse answers reply whenever the prompt contains key.
func (m *MockCompleter) SetResponse(key, reply string) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replies == nil {
		m.replies = make(map[string]string)
	}
	if _, ok := m.replies[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.replies[key] = reply
	return m
}

func (m *MockCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	if m.Err != nil {
		return "", m.Err
	}

	var prompt string
	if n := len(req.Messages); n > 0 {
		prompt = req.Messages[n-1].Content
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range m.keys {
		if strings.Contains(prompt, key) {
			return m.replies[key], nil
		}
	}
	return m.Fallback, nil
}

func (m *MockCompleter) Model() string { return "mock-model" }

// Requests returns every request received so far.
func (m *MockCompleter) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Request(nil), m.requests...)
}

// CallCount returns the number of Complete calls.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// MockImageSearcher implements imagesearch.Searcher with per-query results.
type MockImageSearcher struct {
	Results map[string][]imagesearch.Image
	Err     error

	mu      sync.Mutex
	queries []string
}

func (m *MockImageSearcher) Search(ctx context.Context, query string) ([]imagesearch.Image, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return m.Results[query], nil
}

// Queries returns the queries searched so far.
func (m *MockImageSearcher) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// MockEmailSender implements email.Sender and records sent messages.
type MockEmailSender struct {
	Err error

	mu   sync.Mutex
	sent []email.Message
}

func (m *MockEmailSender) Send(ctx context.Context, msg email.Message) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns the messages delivered so far.
func (m *MockEmailSender) Sent() []email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]email.Message(nil), m.sent...)
}

// ErrMock is a generic upstream failure for tests.
var ErrMock = errors.New("mock upstream failure")
