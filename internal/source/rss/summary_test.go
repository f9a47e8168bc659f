package rss

import (
	"strings"
	"testing"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
)

func TestExtractSummary_StripsHTML(t *testing.T) {
	item := &gofeed.Item{Description: "<p>The <b>Basel</b> committee published a report.</p>"}

	got := ExtractSummary(item, 200)
	assert.Equal(t, "The Basel committee published a report.", got)
}

func TestExtractSummary_FallsBackToContent(t *testing.T) {
	item := &gofeed.Item{Content: "Full article body."}

	got := ExtractSummary(item, 200)
	assert.Equal(t, "Full article body.", got)
}

func TestExtractSummary_CollapsesWhitespace(t *testing.T) {
	item := &gofeed.Item{Description: "  stablecoin \n\t guidance   issued  "}

	got := ExtractSummary(item, 200)
	assert.Equal(t, "stablecoin guidance issued", got)
}

func TestExtractSummary_TruncatesAtWordBoundary(t *testing.T) {
	item := &gofeed.Item{Description: strings.Repeat("regulatory ", 40)}

	got := ExtractSummary(item, 50)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), 50+len("..."))
	assert.NotContains(t, strings.TrimSuffix(got, "..."), "regulator ") // no mid-word cut
}

func TestExtractSummary_ShortTextUnchanged(t *testing.T) {
	item := &gofeed.Item{Description: "short"}
	assert.Equal(t, "short", ExtractSummary(item, 200))
}

func TestExtractSummary_Empty(t *testing.T) {
	item := &gofeed.Item{}
	assert.Equal(t, "", ExtractSummary(item, 200))
}
