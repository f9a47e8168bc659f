// Package rss fetches and normalizes RSS/Atom feeds into domain items.
package rss

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/backoff"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/domain"
)

type Config struct {
	Timeout          time.Duration
	SummaryMaxLength int
	MaxAttempts      int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
}

// Source fetches one feed at a time over HTTP with bounded retries.
type Source struct {
	httpClient       *http.Client
	parser           *gofeed.Parser
	summaryMaxLength int
	maxAttempts      int
	backoff          backoff.Policy
	logger           *slog.Logger
	now              func() time.Time
}

func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		parser:           gofeed.NewParser(),
		summaryMaxLength: cfg.SummaryMaxLength,
		maxAttempts:      cfg.MaxAttempts,
		backoff:          backoff.Policy{Initial: cfg.InitialBackoff, Max: cfg.MaxBackoff},
		logger:           logger.With("component", "rss"),
		now:              time.Now,
	}
}

// Fetch downloads and parses the feed, returning its items newest first.
func (s *Source) Fetch(ctx context.Context, feed domain.FeedSource) ([]domain.FeedItem, error) {
	body, err := s.fetchBody(ctx, feed.URL)
	if err != nil {
		return nil, err
	}

	parsed, err := s.parser.ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]domain.FeedItem, 0, len(parsed.Items))
	for _, raw := range parsed.Items {
		items = append(items, s.transform(raw, feed))
	}

	s.logger.Debug("fetched feed", "feed", feed.Name, "items", len(items))
	return items, nil
}

func (s *Source) fetchBody(ctx context.Context, url string) (string, error) {
	var body string
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		body, err = s.doRequest(ctx, url)
		if err == nil {
			return body, nil
		}

		if attempt == s.maxAttempts {
			break
		}

		delay := s.backoff.Delay(attempt)
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	return "", fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
}

func (s *Source) doRequest(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; CryptoPolicyBot/1.0)")
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml, */*")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	return string(data), nil
}

func (s *Source) transform(raw *gofeed.Item, feed domain.FeedSource) domain.FeedItem {
	return domain.FeedItem{
		GUID:        raw.GUID,
		Title:       raw.Title,
		Summary:     ExtractSummary(raw, s.summaryMaxLength),
		Link:        raw.Link,
		Source:      feed.Name,
		SourceFull:  feed.FullName,
		Tags:        feed.Tags,
		PublishedAt: s.publishedAt(raw),
	}
}

// publishedAt falls back from published to updated to the current time, so
// items without usable dates still sort deterministically within a run.
func (s *Source) publishedAt(raw *gofeed.Item) time.Time {
	if raw.PublishedParsed != nil {
		return *raw.PublishedParsed
	}
	if raw.UpdatedParsed != nil {
		return *raw.UpdatedParsed
	}
	return s.now()
}
