package rss

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/domain"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>BIS press releases</title>
    <item>
      <guid>bis-2025-001</guid>
      <title>Stablecoin oversight report</title>
      <link>https://www.bis.org/press/p250101.htm</link>
      <description>&lt;p&gt;The committee published its report.&lt;/p&gt;</description>
      <pubDate>Mon, 06 Jan 2025 09:00:00 GMT</pubDate>
    </item>
    <item>
      <title>No guid entry</title>
      <link>https://www.bis.org/press/p250102.htm</link>
    </item>
  </channel>
</rss>`

func testSource(t *testing.T) *Source {
	t.Helper()
	return New(Config{
		Timeout:          5 * time.Second,
		SummaryMaxLength: 200,
		MaxAttempts:      3,
		InitialBackoff:   time.Millisecond,
		MaxBackoff:       10 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFetch_NormalizesItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleFeed)
	}))
	defer srv.Close()

	feed := domain.FeedSource{Name: "BIS", FullName: "Bank for International Settlements", URL: srv.URL, Tags: []string{"监管"}}

	items, err := testSource(t).Fetch(context.Background(), feed)
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "bis-2025-001", first.GUID)
	assert.Equal(t, "Stablecoin oversight report", first.Title)
	assert.Equal(t, "The committee published its report.", first.Summary)
	assert.Equal(t, "BIS", first.Source)
	assert.Equal(t, []string{"监管"}, first.Tags)
	assert.Equal(t, time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC), first.PublishedAt.UTC())

	// No published date: the fetch time stands in so in-run sorting stays stable.
	assert.Empty(t, items[1].GUID)
	assert.False(t, items[1].PublishedAt.IsZero())
}

func TestFetch_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, sampleFeed)
	}))
	defer srv.Close()

	items, err := testSource(t).Fetch(context.Background(), domain.FeedSource{Name: "BIS", URL: srv.URL})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testSource(t).Fetch(context.Background(), domain.FeedSource{Name: "BIS", URL: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_ParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not a feed")
	}))
	defer srv.Close()

	_, err := testSource(t).Fetch(context.Background(), domain.FeedSource{Name: "BIS", URL: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse feed")
}
