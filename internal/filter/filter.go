// Package filter implements the keyword policy deciding which feed items
// are worth delivering.
package filter

import (
	"strings"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/config"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/domain"
)

// Policy is an immutable keep/drop decision over feed items. Matching is
// case-insensitive substring search against title plus summary. A deny match
// always wins over an allow match; an empty allow list means everything
// passes unless denied.
type Policy struct {
	allow []string
	deny  []string

	tagFilter  bool
	tagInclude []string
	tagExclude []string
}

func NewPolicy(keywords config.KeywordsConfig, tags config.TagFilterConfig) *Policy {
	return &Policy{
		allow:      keywords.Allow,
		deny:       keywords.Deny,
		tagFilter:  tags.Enabled,
		tagInclude: tags.Include,
		tagExclude: tags.Exclude,
	}
}

// ShouldKeep reports whether the item passes the policy. Pure; no I/O.
func (p *Policy) ShouldKeep(item domain.FeedItem) bool {
	text := strings.ToLower(item.Title + " " + item.Summary)

	if matchesAny(text, p.deny) {
		return false
	}
	if len(p.allow) > 0 && !matchesAny(text, p.allow) {
		return false
	}

	if p.tagFilter {
		if len(p.tagExclude) > 0 && hasAnyTag(item.Tags, p.tagExclude) {
			return false
		}
		if len(p.tagInclude) > 0 && !hasAnyTag(item.Tags, p.tagInclude) {
			return false
		}
	}

	return true
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func hasAnyTag(tags, wanted []string) bool {
	for _, t := range tags {
		for _, w := range wanted {
			if t == w {
				return true
			}
		}
	}
	return false
}
