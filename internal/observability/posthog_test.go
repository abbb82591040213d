package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"contentops/internal/config"
)

func TestNewPostHogClient_Disabled(t *testing.T) {
	client, err := NewPostHogClient(config.Analytics{Enabled: false})
	if err != nil {
		t.Fatalf("NewPostHogClient: %v", err)
	}
	if client.IsEnabled() {
		t.Error("client should be disabled")
	}
	if err := client.TrackLeadCaptured(context.Background(), "ebook", true, true); err != nil {
		t.Errorf("disabled client returned error: %v", err)
	}
	if err := client.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestNewPostHogClient_MissingKey(t *testing.T) {
	if _, err := NewPostHogClient(config.Analytics{Enabled: true}); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestPostHogClient_SendsEvents(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewPostHogClient(config.Analytics{Enabled: true, APIKey: "phc_test", Host: server.URL})
	if err != nil {
		t.Fatalf("NewPostHogClient: %v", err)
	}
	if err := client.TrackArticlePublished(context.Background(), "p-1", "ai-in-freight", "chat"); err != nil {
		t.Fatalf("TrackArticlePublished: %v", err)
	}
	if err := client.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	joined := strings.Join(bodies, "\n")
	if !strings.Contains(joined, EventArticlePublished) || !strings.Contains(joined, "ai-in-freight") {
		t.Errorf("event not delivered, got %q", joined)
	}
}
