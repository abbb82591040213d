package topics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"contentops/internal/article"
	"contentops/internal/core"
	"contentops/test/mocks"
)

func newSearcher(t *testing.T, m *mocks.MockCompleter) *Searcher {
	t.Helper()
	cats, err := article.DefaultCategories()
	if err != nil {
		t.Fatal(err)
	}
	return NewSearcher(m, cats)
}

func TestSearch(t *testing.T) {
	m := mocks.NewMockCompleter(`Here you go:
[
  {"title": "Customs AI agents", "snippet": "Brokers automate entries.", "source": "JOC"},
  {"title": "", "snippet": "dropped", "source": "x"},
  {"title": "Predictive ETAs", "snippet": "Carriers share better data.", "source": "FreightWaves"}
]`)
	s := newSearcher(t, m)

	got, err := s.Search(context.Background(), "customs", core.CategoryAI)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	want := []core.TopicCandidate{
		{Title: "Customs AI agents", Snippet: "Brokers automate entries.", Source: "JOC"},
		{Title: "Predictive ETAs", Snippet: "Carriers share better data.", Source: "FreightWaves"},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(core.TopicCandidate{}, "Relevance")); diff != "" {
		t.Errorf("Search mismatch (-want +got):\n%s", diff)
	}
	for _, c := range got {
		if c.Relevance == nil {
			t.Errorf("expected relevance on %q", c.Title)
		}
	}
	if *got[0].Relevance <= *got[1].Relevance {
		t.Errorf("expected the customs candidate to rank higher for query %q", "customs")
	}

	prompt := m.Requests()[0].Messages[0].Content
	if !strings.Contains(prompt, "customs") || !strings.Contains(prompt, "document automation") {
		t.Errorf("prompt missing query or AI keywords: %q", prompt)
	}
}

func TestSearch_CapsCandidates(t *testing.T) {
	var items []string
	for i := 1; i <= 7; i++ {
		items = append(items, fmt.Sprintf(`{"title": "Topic %d", "snippet": "s", "source": "src"}`, i))
	}
	s := newSearcher(t, mocks.NewMockCompleter("["+strings.Join(items, ",")+"]"))

	got, err := s.Search(context.Background(), "freight", core.CategoryLogistics)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != maxCandidates {
		t.Fatalf("got %d candidates, want %d", len(got), maxCandidates)
	}
	if got[0].Title != "Topic 1" || got[4].Title != "Topic 5" {
		t.Errorf("expected the first five in model order, got %q..%q", got[0].Title, got[4].Title)
	}
}

func TestSearch_UnparseableReply(t *testing.T) {
	s := newSearcher(t, mocks.NewMockCompleter("I could not find anything trending."))

	got, err := s.Search(context.Background(), "", core.CategoryBoth)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", got)
	}
}

func TestSearch_UpstreamFailure(t *testing.T) {
	m := mocks.NewMockCompleter("")
	m.Err = mocks.ErrMock
	s := newSearcher(t, m)

	got, err := s.Search(context.Background(), "anything", "bogus")
	if !errors.Is(err, mocks.ErrMock) {
		t.Errorf("error = %v, want ErrMock", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", got)
	}
}
