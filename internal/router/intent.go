package router

import (
	"regexp"
	"strings"

	"contentops/internal/core"
	"contentops/internal/prompts"
)

// minTopicLength is the shortest extracted topic kept; shorter ones use prompts.DefaultTopic.
const minTopicLength = 5

// IntentKind identifies what the user asked for.
type IntentKind int

const (
	IntentGeneral IntentKind = iota
	IntentPublish
	IntentSearch
)

func (k IntentKind) String() string {
	switch k {
	case IntentPublish:
		return "publish"
	case IntentSearch:
		return "search"
	default:
		return "general"
	}
}

// Intent is the classification of the last user message. Topic is set for
// IntentPublish, Query for IntentSearch.
type Intent struct {
	Kind  IntentKind
	Topic string
	Query string
}

var (
	publishPattern = regexp.MustCompile(`(?i)\b(?:publish|write|create)\b.*?\b(?:article|post|blog)\b.*?\b(?:about|on|regarding)\b\s+(.+)`)
	barePublish    = regexp.MustCompile(`(?i)\bpublish|\bcreate\s+(?:an?\s+)?article\b`)
	searchPattern  = regexp.MustCompile(`(?i)search|topic|recommend|trending`)
)

// Classify inspects the newest user message. Matchers are tried in order:
// publish, then search, then general chat.
func Classify(messages []core.ChatMessage) Intent {
	text := lastUserMessage(messages)
	if text == "" {
		return Intent{Kind: IntentGeneral}
	}

	if m := publishPattern.FindStringSubmatch(text); m != nil {
		return Intent{Kind: IntentPublish, Topic: normalizeTopic(m[1])}
	}
	if barePublish.MatchString(text) {
		return Intent{Kind: IntentPublish, Topic: prompts.DefaultTopic}
	}
	if searchPattern.MatchString(text) {
		return Intent{Kind: IntentSearch, Query: text}
	}
	return Intent{Kind: IntentGeneral}
}

func lastUserMessage(messages []core.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == core.RoleUser {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}

func normalizeTopic(raw string) string {
	topic := strings.TrimSpace(raw)
	topic = strings.TrimRight(topic, ".!?")
	topic = strings.Trim(topic, "\"'` ")
	if len([]rune(topic)) < minTopicLength {
		return prompts.DefaultTopic
	}
	return topic
}
