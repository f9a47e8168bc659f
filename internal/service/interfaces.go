package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/domain"
)

// Source fetches one feed's items, newest first.
type Source interface {
	Fetch(ctx context.Context, feed domain.FeedSource) ([]domain.FeedItem, error)
}

// Policy decides which items are worth delivering.
type Policy interface {
	ShouldKeep(item domain.FeedItem) bool
}

// Translator localizes text and names the engine that succeeded. It is
// total: it always returns a usable result.
type Translator interface {
	Translate(ctx context.Context, text string) (string, string)
}

// SeenStore records delivered identities across runs.
type SeenStore interface {
	IsSeen(ctx context.Context, identity string) (bool, error)
	MarkSeen(ctx context.Context, identity string, firstSeen time.Time) error
	Prune(ctx context.Context, retention time.Duration, now time.Time) (int, error)
	Persist(ctx context.Context) error
}

// Dispatcher delivers one batch and reports its fate. It never fails a run;
// failure is expressed through the receipt.
type Dispatcher interface {
	Send(ctx context.Context, batch domain.MessageBatch) domain.DeliveryReceipt
}

// Publisher emits downstream events for delivered items. Optional.
type Publisher interface {
	PublishDelivered(ctx context.Context, item domain.RenderedItem) error
	Close() error
}
