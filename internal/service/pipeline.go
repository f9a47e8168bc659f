package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/batch"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/config"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/domain"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/wecom"
)

// Pipeline wires one run: per feed dedup-check, filter, translate; then one
// ordered batching and dispatch pass across all feeds; then seen-marking,
// prune and persist. A failing feed or batch never aborts the others.
type Pipeline struct {
	source     Source
	policy     Policy
	translator Translator
	store      SeenStore
	dispatcher Dispatcher
	publisher  Publisher
	logger     *slog.Logger
	cfg        *config.Config
	now        func() time.Time
}

func NewPipeline(
	source Source,
	policy Policy,
	translator Translator,
	store SeenStore,
	dispatcher Dispatcher,
	publisher Publisher,
	logger *slog.Logger,
	cfg *config.Config,
) *Pipeline {
	return &Pipeline{
		source:     source,
		policy:     policy,
		translator: translator,
		store:      store,
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger.With("component", "pipeline"),
		cfg:        cfg,
		now:        time.Now,
	}
}

// Run executes one pipeline pass. The returned error is fatal only: a run
// with failed feeds or batches still returns nil, but a store that cannot
// be persisted after deliveries does not.
func (p *Pipeline) Run(ctx context.Context) (*domain.RunStats, error) {
	startTime := p.now()
	stats := &domain.RunStats{}

	retention := time.Duration(p.cfg.State.RetentionDays) * 24 * time.Hour
	pruned, err := p.store.Prune(ctx, retention, startTime)
	if err != nil {
		p.logger.Error("prune failed", "error", err)
	} else if pruned > 0 {
		p.logger.Info("pruned expired records", "removed", pruned)
	}
	stats.PrunedRecords = pruned

	var rendered []domain.RenderedItem
	for _, feed := range p.cfg.EnabledFeeds() {
		feedItems, feedStats := p.processFeed(ctx, feed)
		rendered = append(rendered, feedItems...)
		stats.Feeds = append(stats.Feeds, feedStats)
	}
	stats.Rendered = len(rendered)

	p.logger.Info("items ready for delivery", "count", len(rendered))

	batches := batch.Pack(rendered, p.cfg.Delivery.MaxBytesPerMsg, p.cfg.Delivery.MaxItemsPerMsg)
	stats.Batches = len(batches)

	markTime := p.now()
	for i, b := range batches {
		receipt := p.dispatcher.Send(ctx, b)
		if receipt.Degraded {
			stats.DegradedSends++
		}

		if receipt.Outcome != domain.Delivered {
			// Leave these identities unmarked; the next run retries them.
			stats.FailedBatches++
			p.logger.Error("batch not delivered",
				"batch", i+1,
				"outcome", receipt.Outcome.String(),
				"attempts", receipt.Attempts,
				"items", len(b.Items),
			)
			continue
		}

		stats.Delivered += len(b.Items)
		p.markDelivered(ctx, b.Items, markTime)
	}

	if err := p.store.Persist(ctx); err != nil {
		if stats.Delivered > 0 {
			return stats, fmt.Errorf("persist state after %d deliveries: %w", stats.Delivered, err)
		}
		p.logger.Error("persist state failed", "error", err)
	}

	stats.Duration = p.now().Sub(startTime)

	p.logger.Info("run completed",
		"rendered", stats.Rendered,
		"batches", stats.Batches,
		"delivered", stats.Delivered,
		"failed_batches", stats.FailedBatches,
		"degraded_sends", stats.DegradedSends,
		"pruned", stats.PrunedRecords,
		"duration", stats.Duration,
	)

	return stats, nil
}

// processFeed runs the per-feed stages. Errors are contained here: a feed
// that cannot be fetched reports Failed in its stats and contributes no
// items, without touching the other feeds.
func (p *Pipeline) processFeed(ctx context.Context, feed domain.FeedSource) ([]domain.RenderedItem, domain.FeedStats) {
	feedStats := domain.FeedStats{Feed: feed.Name}
	logger := p.logger.With("feed", feed.Name)

	items, err := p.source.Fetch(ctx, feed)
	if err != nil {
		logger.Error("fetch failed", "error", err)
		feedStats.Failed = true
		return nil, feedStats
	}
	feedStats.Fetched = len(items)

	var kept []domain.FeedItem
	for _, item := range items {
		if len(kept) >= p.cfg.Fetch.MaxEntriesPerFeed {
			break
		}

		if !p.cfg.ForceRun {
			seen, err := p.store.IsSeen(ctx, item.Identity())
			if err != nil {
				logger.Error("seen lookup failed", "identity", item.Identity(), "error", err)
				feedStats.Failed = true
				return nil, feedStats
			}
			if seen {
				feedStats.Seen++
				continue
			}
		}

		if !p.policy.ShouldKeep(item) {
			feedStats.Dropped++
			continue
		}

		kept = append(kept, item)
	}
	feedStats.Kept = len(kept)

	// Recency is the delivery-priority signal within a feed.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].PublishedAt.After(kept[j].PublishedAt)
	})

	rendered := make([]domain.RenderedItem, 0, len(kept))
	for _, item := range kept {
		rendered = append(rendered, p.render(ctx, item))
	}

	logger.Info("feed processed",
		"fetched", feedStats.Fetched,
		"seen", feedStats.Seen,
		"dropped", feedStats.Dropped,
		"kept", feedStats.Kept,
	)

	return rendered, feedStats
}

func (p *Pipeline) render(ctx context.Context, item domain.FeedItem) domain.RenderedItem {
	titleZh, titleEngine := p.translator.Translate(ctx, item.Title)
	summaryZh, summaryEngine := p.translator.Translate(ctx, item.Summary)

	engine := titleEngine
	if engine == "none" {
		engine = summaryEngine
	}

	ri := domain.RenderedItem{
		Item:       item,
		TitleZh:    titleZh,
		SummaryZh:  summaryZh,
		EngineUsed: engine,
	}
	ri.SerializedLen = len(wecom.ItemMarkdown(1, ri))
	return ri
}

func (p *Pipeline) markDelivered(ctx context.Context, items []domain.RenderedItem, at time.Time) {
	for _, item := range items {
		identity := item.Item.Identity()
		if err := p.store.MarkSeen(ctx, identity, at); err != nil {
			p.logger.Error("mark seen failed", "identity", identity, "error", err)
		}

		if p.publisher == nil {
			continue
		}
		if err := p.publisher.PublishDelivered(ctx, item); err != nil {
			p.logger.Error("publish delivery event failed", "identity", identity, "error", err)
		}
	}
}
