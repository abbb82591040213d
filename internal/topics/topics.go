// Package topics suggests trending article topics through the completion API.
package topics

import (
	"context"
	"fmt"
	"log/slog"

	"contentops/internal/article"
	"contentops/internal/core"
	"contentops/internal/llm"
	"contentops/internal/logger"
	"contentops/internal/prompts"
	"contentops/internal/relevance"
)

const searchMaxTokens = 1200

// maxCandidates caps the list returned to callers.
const maxCandidates = 5

// Searcher asks the model for topic candidates.
type Searcher struct {
	llm        llm.Completer
	categories article.Categories
	scorer     *relevance.KeywordScorer
	log        *slog.Logger
}

// NewSearcher creates a Searcher seeded with the keyword table.
func NewSearcher(completer llm.Completer, categories article.Categories) *Searcher {
	return &Searcher{
		llm:        completer,
		categories: categories,
		scorer:     relevance.NewKeywordScorer(),
		log:        logger.Get(),
	}
}

// Search returns up to five topic candidates in the model's order, each
// annotated with a keyword relevance score. The slice is never nil: an
// upstream failure returns an empty list with the error, and a reply that
// does not parse returns an empty list with no error.
func (s *Searcher) Search(ctx context.Context, query string, category core.Category) ([]core.TopicCandidate, error) {
	if !category.Valid() {
		category = core.CategoryBoth
	}

	cluster := s.categories.Keywords(category)
	prompt := prompts.TopicSearchPrompt(query, category, cluster)
	raw, err := llm.Prompt(ctx, s.llm, prompt, searchMaxTokens)
	if err != nil {
		return []core.TopicCandidate{}, fmt.Errorf("failed to search topics: %w", err)
	}

	results := prompts.ParseTopicCandidates(raw)
	if len(results) == 0 {
		s.log.Warn("Topic search returned no parseable candidates", "query", query, "chars", len(raw))
		return results, nil
	}
	if len(results) > maxCandidates {
		results = results[:maxCandidates]
	}

	s.scorer.Annotate(results, query, cluster)
	return results, nil
}
