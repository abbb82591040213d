// Package relevance scores topic candidates against a query and a keyword cluster.
package relevance

import (
	"math"
	"regexp"
	"strings"

	"contentops/internal/core"
)

var (
	nonWord    = regexp.MustCompile(`[^\w\s-]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Weights balance title and snippet matches. They should sum to 1.
type Weights struct {
	Title   float64
	Snippet float64
}

// DefaultWeights favors the title, which is what readers see first.
var DefaultWeights = Weights{Title: 0.6, Snippet: 0.4}

// KeywordScorer implements fast keyword-based relevance scoring
type KeywordScorer struct {
	weights   Weights
	stopWords map[string]bool
}

// NewKeywordScorer creates a scorer with DefaultWeights.
func NewKeywordScorer() *KeywordScorer {
	return &KeywordScorer{
		weights:   DefaultWeights,
		stopWords: commonStopWords(),
	}
}

// Score returns a value in [0, 1]. Query words and cluster phrases are both
// matched; with no usable keywords every candidate scores 0.5.
func (ks *KeywordScorer) Score(c core.TopicCandidate, query string, cluster []string) float64 {
	keywords := ks.keywords(query, cluster)
	if len(keywords) == 0 {
		return 0.5
	}

	title := normalize(c.Title)
	snippet := normalize(c.Snippet)

	score := textRelevance(title, keywords)*ks.weights.Title + textRelevance(snippet, keywords)*ks.weights.Snippet
	return math.Max(0, math.Min(1, score))
}

// Annotate sets Relevance on every candidate, rounded to two decimals.
func (ks *KeywordScorer) Annotate(candidates []core.TopicCandidate, query string, cluster []string) {
	for i := range candidates {
		v := math.Round(ks.Score(candidates[i], query, cluster)*100) / 100
		candidates[i].Relevance = &v
	}
}

// keywords merges the query words with the cluster phrases, dropping
// duplicates, stop words and anything shorter than three characters.
func (ks *KeywordScorer) keywords(query string, cluster []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(k string) {
		k = normalize(k)
		if len(k) > 2 && !ks.stopWords[k] && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}

	for _, word := range strings.Fields(nonWord.ReplaceAllString(query, " ")) {
		add(word)
	}
	for _, phrase := range cluster {
		add(phrase)
	}
	return out
}

// textRelevance combines keyword coverage with match frequency.
func textRelevance(text string, keywords []string) float64 {
	if text == "" || len(keywords) == 0 {
		return 0
	}

	total, unique := 0, 0
	for _, k := range keywords {
		if n := strings.Count(text, k); n > 0 {
			unique++
			total += n
		}
	}
	if unique == 0 {
		return 0
	}

	coverage := float64(unique) / float64(len(keywords))
	// Diminishing returns for repeats
	frequency := math.Log(float64(total)+1) / math.Log(float64(len(keywords)*3)+1)

	return math.Min(1, coverage*0.7+frequency*0.3)
}

func normalize(text string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(strings.ToLower(text), " "))
}

func commonStopWords() map[string]bool {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
		"has", "in", "is", "it", "its", "of", "on", "that", "the",
		"to", "was", "were", "will", "with", "this", "but", "they",
		"have", "had", "what", "which", "do", "how", "their", "if",
		"up", "out", "many", "then", "them", "these", "so", "some",
		"would", "make", "like", "into", "about", "trending", "topics",
	}
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
