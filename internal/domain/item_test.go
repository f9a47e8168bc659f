package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentity_PrefersGUID(t *testing.T) {
	item := FeedItem{GUID: "guid-1", Link: "https://example.org/a", Title: "A", Source: "BIS"}
	assert.Equal(t, "BIS:guid-1", item.Identity())
}

func TestIdentity_FallsBackToLinkHash(t *testing.T) {
	item := FeedItem{Link: "https://example.org/a", Title: "A", Source: "BIS"}

	id := item.Identity()
	assert.Len(t, id, len("BIS:")+12)

	// Stable across runs for the same link, regardless of title edits.
	edited := item
	edited.Title = "A (updated)"
	assert.Equal(t, id, edited.Identity())
}

func TestIdentity_FallsBackToTitleHash(t *testing.T) {
	item := FeedItem{Title: "A", Source: "BIS"}
	other := FeedItem{Title: "B", Source: "BIS"}

	assert.NotEqual(t, item.Identity(), other.Identity())
	assert.Equal(t, item.Identity(), FeedItem{Title: "A", Source: "BIS"}.Identity())
}

func TestIdentity_SourceScoped(t *testing.T) {
	a := FeedItem{GUID: "same", Source: "BIS"}
	b := FeedItem{GUID: "same", Source: "SEC"}
	assert.NotEqual(t, a.Identity(), b.Identity())
}
