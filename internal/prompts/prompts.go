// Package prompts builds the completion prompts used by the content workflows
// and leniently parses what the model sends back.
package prompts

import (
	"fmt"
	"strings"

	"contentops/internal/core"
)

// ChatPersona is the system prompt used for general chat turns.
const ChatPersona = `You are the content assistant for Structure AI, a company that builds AI automation for logistics, freight forwarding and customs brokerage.
Help the marketing team plan, research and write blog content. Be concise and practical.
You can also publish an article ("publish an article about <topic>") or suggest trending topics ("recommend topics").`

// DefaultTopic is used when a publish request names no usable topic.
const DefaultTopic = "How AI is transforming logistics operations"

// TopicResolutionPrompt asks for a single fresh topic seeded by a keyword cluster.
func TopicResolutionPrompt(category core.Category, keywords []string) string {
	return fmt.Sprintf(`Suggest one specific, timely blog article topic for a B2B audience in the %s space.
Draw on these themes: %s.

Respond with ONLY the topic as a single line of plain text. No quotes, no numbering, no explanation.`,
		categoryLabel(category), strings.Join(keywords, ", "))
}

// ArticleDraftPrompt asks for a full article as a strict JSON object.
func ArticleDraftPrompt(topic string, category core.Category) string {
	return fmt.Sprintf(`Write a long-form blog article for Structure AI about: %s

Audience: operations leaders in %s.
Requirements:
- 900 to 1400 words of practical, specific content in Markdown
- Use ## headings, short paragraphs and at least one bulleted list
- End with a short call to action

Respond with ONLY a JSON object in exactly this shape:
{"title": "<headline, max %d characters>", "excerpt": "<summary, max %d characters>", "content": "<markdown body>"}`,
		topic, categoryLabel(category), core.MaxTitleLength, core.MaxExcerptLength)
}

// TopicSearchPrompt asks for five topic suggestions as a JSON array.
func TopicSearchPrompt(query string, category core.Category, keywords []string) string {
	focus := query
	if strings.TrimSpace(focus) == "" {
		focus = "trending topics"
	}
	return fmt.Sprintf(`Find 5 trending, high-interest article topics for a B2B blog in the %s space.
Request: %s
Related themes: %s

Respond with ONLY a JSON array of 5 objects, each shaped like:
{"title": "<topic headline>", "snippet": "<one sentence on why it matters now>", "source": "<publication or trend source>"}`,
		categoryLabel(category), focus, strings.Join(keywords, ", "))
}

func categoryLabel(category core.Category) string {
	switch category {
	case core.CategoryLogistics:
		return "logistics and supply chain"
	case core.CategoryAI:
		return "applied AI and automation"
	default:
		return "logistics and applied AI"
	}
}
