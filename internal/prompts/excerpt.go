package prompts

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// ExcerptFromMarkdown renders markdown and returns the leading paragraph text,
// whitespace-collapsed and cut to max runes. Headings, code and lists are skipped.
func ExcerptFromMarkdown(md string, max int) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}

	mdParser := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	rendered := markdown.ToHTML([]byte(md), mdParser, renderer)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(rendered)))
	if err != nil {
		return ""
	}

	var b strings.Builder
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return true
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
		return len([]rune(b.String())) < max
	})

	return Truncate(b.String(), max)
}
