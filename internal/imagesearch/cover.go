package imagesearch

import (
	"context"
	"math/rand/v2"
	"strings"
	"unicode"
)

// FallbackQuery is searched once when the title keywords find nothing.
const FallbackQuery = "logistics technology business"

// Pick sizes used by the two call sites.
const (
	WorkflowPool = 5
	EndpointPool = 10
)

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true,
	"by": true, "for": true, "from": true, "how": true, "in": true, "into": true, "is": true,
	"it": true, "its": true, "of": true, "on": true, "or": true, "the": true, "this": true,
	"to": true, "what": true, "when": true, "why": true, "with": true, "your": true, "you": true,
	"will": true, "can": true, "guide": true, "ultimate": true,
}

// Keywords derives up to three search terms from a title, punctuation stripped.
func Keywords(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, strings.ToLower(title))

	var terms []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) < 2 || stopWords[word] {
			continue
		}
		terms = append(terms, word)
		if len(terms) == 3 {
			break
		}
	}
	return strings.Join(terms, " ")
}

// CoverFinder picks a cover photo for a title with one generic fallback search.
type CoverFinder struct {
	searcher Searcher
	intn     func(n int) int
}

// NewCoverFinder creates a finder backed by s.
func NewCoverFinder(s Searcher) *CoverFinder {
	return &CoverFinder{searcher: s, intn: rand.IntN}
}

// Find searches by title keywords, then FallbackQuery if nothing matched, and
// picks uniformly among the first pool hits. ErrNoResults means both searches were empty.
func (f *CoverFinder) Find(ctx context.Context, title string, pool int) (Image, error) {
	images, err := f.search(ctx, Keywords(title))
	if err != nil {
		return Image{}, err
	}
	if len(images) == 0 {
		images, err = f.search(ctx, FallbackQuery)
		if err != nil {
			return Image{}, err
		}
	}
	if len(images) == 0 {
		return Image{}, ErrNoResults
	}

	if pool <= 0 || pool > len(images) {
		pool = len(images)
	}
	return images[f.intn(pool)], nil
}

func (f *CoverFinder) search(ctx context.Context, query string) ([]Image, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	return f.searcher.Search(ctx, query)
}
