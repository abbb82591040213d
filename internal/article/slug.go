package article

import (
	"strings"

	"contentops/internal/core"
)

// Slugify lowercases s, collapses every run of characters outside [a-z0-9]
// into a single hyphen and trims to core.MaxSlugLength. The result is empty
// or matches ^[a-z0-9]+(-[a-z0-9]+)*$, and Slugify(Slugify(s)) == Slugify(s).
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	slug := b.String()
	if len(slug) > core.MaxSlugLength {
		slug = strings.TrimRight(slug[:core.MaxSlugLength], "-")
	}
	return slug
}

// withSuffix appends "-suffix" while keeping the result within core.MaxSlugLength.
func withSuffix(slug, suffix string) string {
	if slug == "" {
		return suffix
	}
	limit := core.MaxSlugLength - len(suffix) - 1
	if len(slug) > limit {
		slug = strings.TrimRight(slug[:limit], "-")
	}
	return slug + "-" + suffix
}
