package prompts

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"contentops/internal/core"
)

// ExtractJSONObject returns the first balanced top-level {...} in raw.
func ExtractJSONObject(raw string) (string, bool) {
	return extractBalanced(raw, '{', '}')
}

// ExtractJSONArray returns the first balanced top-level [...] in raw.
func ExtractJSONArray(raw string) (string, bool) {
	return extractBalanced(raw, '[', ']')
}

// extractBalanced scans from each opening delimiter to its matching close,
// skipping delimiters inside JSON strings. The first candidate that is valid
// JSON wins.
func extractBalanced(raw string, open, close byte) (string, bool) {
	for start := strings.IndexByte(raw, open); start >= 0; {
		depth := 0
		inString := false
		escaped := false
		end := -1

	scan:
		for i := start; i < len(raw); i++ {
			c := raw[i]
			switch {
			case escaped:
				escaped = false
			case inString && c == '\\':
				escaped = true
			case c == '"':
				inString = !inString
			case inString:
			case c == open:
				depth++
			case c == close:
				depth--
				if depth == 0 {
					end = i
					break scan
				}
			}
		}

		if end < 0 {
			return "", false
		}
		candidate := raw[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}

		next := strings.IndexByte(raw[start+1:], open)
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

type articleDraft struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Content string `json:"content"`
}

// ParseArticleDraft reads a model response into an article. It never fails:
// when no JSON object can be extracted the raw text becomes the content and
// the topic stands in for title and excerpt. The second return value reports
// whether that fallback was used. Slug and cover image are left empty.
func ParseArticleDraft(raw, topic string) (core.GeneratedArticle, bool) {
	fallback := core.GeneratedArticle{
		Title:   Truncate(topic, core.MaxTitleLength),
		Excerpt: Truncate(topic, core.MaxExcerptLength),
		Content: raw,
	}

	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return fallback, true
	}

	var draft articleDraft
	if err := json.Unmarshal([]byte(obj), &draft); err != nil {
		return fallback, true
	}

	article := core.GeneratedArticle{
		Title:   strings.TrimSpace(draft.Title),
		Excerpt: strings.TrimSpace(draft.Excerpt),
		Content: strings.TrimSpace(draft.Content),
	}
	if article.Title == "" {
		article.Title = topic
	}
	if article.Content == "" {
		article.Content = raw
	}
	if article.Excerpt == "" {
		article.Excerpt = ExcerptFromMarkdown(article.Content, core.MaxExcerptLength)
	}
	if article.Excerpt == "" {
		article.Excerpt = topic
	}
	article.Title = Truncate(article.Title, core.MaxTitleLength)
	article.Excerpt = Truncate(article.Excerpt, core.MaxExcerptLength)
	return article, false
}

// ParseTopicCandidates reads a JSON array of topics from a model response.
// Unparseable output yields an empty, non-nil slice.
func ParseTopicCandidates(raw string) []core.TopicCandidate {
	arr, ok := ExtractJSONArray(raw)
	if !ok {
		return []core.TopicCandidate{}
	}

	var candidates []core.TopicCandidate
	if err := json.Unmarshal([]byte(arr), &candidates); err != nil {
		return []core.TopicCandidate{}
	}

	out := make([]core.TopicCandidate, 0, len(candidates))
	for _, c := range candidates {
		if strings.TrimSpace(c.Title) == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

var listMarker = regexp.MustCompile(`^(\d+[.)]\s+|[-*#]+\s+)`)

// CleanTopic strips the quoting and numbering models like to add around a one-line answer.
func CleanTopic(raw string) string {
	line := strings.TrimSpace(raw)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	line = listMarker.ReplaceAllString(line, "")
	line = strings.Trim(line, "\"'`* ")
	line = strings.TrimPrefix(line, "Topic:")
	return strings.TrimSpace(line)
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}
