package rss

import (
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// ExtractSummary picks the best summary field, strips HTML, collapses
// whitespace and truncates at a word boundary.
func ExtractSummary(item *gofeed.Item, maxLength int) string {
	summary := item.Description
	if summary == "" {
		summary = item.Content
	}

	summary = htmlTagRe.ReplaceAllString(summary, "")
	summary = strings.TrimSpace(whitespaceRe.ReplaceAllString(summary, " "))

	if len(summary) <= maxLength {
		return summary
	}

	cut := summary[:maxLength]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}
