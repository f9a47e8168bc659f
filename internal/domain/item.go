package domain

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// FeedSource describes one configured feed in its declared order.
type FeedSource struct {
	Name     string   `yaml:"name"`
	FullName string   `yaml:"full_name"`
	URL      string   `yaml:"url"`
	Tags     []string `yaml:"tags"`
	Enabled  bool     `yaml:"enabled"`
}

// FeedItem is a normalized entry produced by the fetch layer.
// Immutable once created.
type FeedItem struct {
	GUID        string // feed-provided identity, may be empty
	Title       string
	Summary     string
	Link        string
	Source      string // short source tag (e.g. "BIS")
	SourceFull  string
	Tags        []string
	PublishedAt time.Time
}

// Identity derives the stable dedup key for an item: the feed-provided GUID
// when present, otherwise a hash of the link, otherwise a hash of the title.
// A title-hash identity is not stable under title edits; such items may be
// re-delivered.
func (i FeedItem) Identity() string {
	if i.GUID != "" {
		return i.Source + ":" + i.GUID
	}
	if i.Link != "" {
		return i.Source + ":" + shortHash(i.Link)
	}
	return i.Source + ":" + shortHash(i.Title)
}

func shortHash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// RenderedItem is a FeedItem plus its localized rendering and the name of
// the translation engine that produced it ("glossary" for the builtin
// fallback, "none" when the text needed no translation).
type RenderedItem struct {
	Item          FeedItem
	TitleZh       string
	SummaryZh     string
	EngineUsed    string
	SerializedLen int // wire-format share of this item, in bytes
}

// MessageBatch is an ordered, immutable group of rendered items bound by the
// byte budget and item cap.
type MessageBatch struct {
	Items     []RenderedItem
	Bytes     int
	Oversized bool // single item over the byte budget; dispatch degrades it
}

// Outcome classifies how a batch send ended.
type Outcome int

const (
	Delivered Outcome = iota
	FailedAfterRetries
	FailedPermanently
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case FailedAfterRetries:
		return "failed_after_retries"
	default:
		return "failed_permanently"
	}
}

// DeliveryReceipt reports the fate of one batch.
type DeliveryReceipt struct {
	Batch    MessageBatch
	Outcome  Outcome
	Attempts int
	Degraded bool // sent in reduced plain-text form
}
