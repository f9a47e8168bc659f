package wecom

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testClient(url string) *Client {
	return NewClient(Config{
		WebhookURL:     url,
		Timeout:        5 * time.Second,
		MaxBytes:       4096,
		SendsPerMinute: 60000, // keep the gate out of the way in tests
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
	}, testLogger())
}

func testBatch() domain.MessageBatch {
	return domain.MessageBatch{
		Items: []domain.RenderedItem{
			{
				Item: domain.FeedItem{
					Source: "BIS",
					Title:  "Stablecoin report",
					Link:   "https://example.org/report",
					Tags:   []string{"policy"},
				},
				TitleZh:   "稳定币报告",
				SummaryZh: "摘要",
			},
		},
	}
}

func okResponse(w http.ResponseWriter) {
	_ = json.NewEncoder(w).Encode(webhookResponse{ErrCode: 0, ErrMsg: "ok"})
}

func TestSend_TransientFailuresThenSuccess(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		okResponse(w)
	}))
	defer srv.Close()

	receipt := testClient(srv.URL).Send(context.Background(), testBatch())

	assert.Equal(t, domain.Delivered, receipt.Outcome)
	assert.Equal(t, 3, receipt.Attempts)
	assert.Equal(t, 3, requests)
}

func TestSend_PermanentFailureNoRetry(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	receipt := testClient(srv.URL).Send(context.Background(), testBatch())

	assert.Equal(t, domain.FailedPermanently, receipt.Outcome)
	assert.Equal(t, 1, receipt.Attempts)
	assert.Equal(t, 1, requests)
}

func TestSend_APIErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(webhookResponse{ErrCode: 93000, ErrMsg: "invalid webhook url"})
	}))
	defer srv.Close()

	receipt := testClient(srv.URL).Send(context.Background(), testBatch())

	assert.Equal(t, domain.FailedPermanently, receipt.Outcome)
	assert.Equal(t, 1, receipt.Attempts)
}

func TestSend_FlowControlIsRetried(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests < 3 {
			_ = json.NewEncoder(w).Encode(webhookResponse{ErrCode: errcodeRateLimited, ErrMsg: "freq limit"})
			return
		}
		okResponse(w)
	}))
	defer srv.Close()

	receipt := testClient(srv.URL).Send(context.Background(), testBatch())

	assert.Equal(t, domain.Delivered, receipt.Outcome)
	assert.Equal(t, 3, receipt.Attempts)
}

func TestSend_ExhaustedRetries(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	receipt := testClient(srv.URL).Send(context.Background(), testBatch())

	assert.Equal(t, domain.FailedAfterRetries, receipt.Outcome)
	assert.Equal(t, 3, receipt.Attempts)
	assert.Equal(t, 3, requests)
}

func TestSend_SendsMarkdownWithinBudget(t *testing.T) {
	var payload webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		okResponse(w)
	}))
	defer srv.Close()

	receipt := testClient(srv.URL).Send(context.Background(), testBatch())

	require.Equal(t, domain.Delivered, receipt.Outcome)
	assert.False(t, receipt.Degraded)
	assert.Equal(t, "markdown", payload.MsgType)
	require.NotNil(t, payload.Markdown)
	assert.Contains(t, payload.Markdown.Content, "稳定币报告")
}

func TestSend_OversizedBatchDegradesToPlainText(t *testing.T) {
	var payload webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		okResponse(w)
	}))
	defer srv.Close()

	b := testBatch()
	b.Oversized = true

	receipt := testClient(srv.URL).Send(context.Background(), b)

	require.Equal(t, domain.Delivered, receipt.Outcome)
	assert.True(t, receipt.Degraded)
	assert.Equal(t, "text", payload.MsgType)
	require.NotNil(t, payload.Text)
	// The reduced rendering drops summaries and keeps titles and links.
	assert.Contains(t, payload.Text.Content, "https://example.org/report")
	assert.NotContains(t, payload.Text.Content, "摘要")
}

func TestSend_RateGateSpacesConsecutiveSends(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		okResponse(w)
	}))
	defer srv.Close()

	client := NewClient(Config{
		WebhookURL:     srv.URL,
		Timeout:        5 * time.Second,
		MaxBytes:       4096,
		SendsPerMinute: 1200, // one token per 50ms
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
	}, testLogger())

	start := time.Now()
	first := client.Send(context.Background(), testBatch())
	second := client.Send(context.Background(), testBatch())
	elapsed := time.Since(start)

	require.Equal(t, domain.Delivered, first.Outcome)
	require.Equal(t, domain.Delivered, second.Outcome)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestSend_DryRunDeliversWithoutPosting(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		okResponse(w)
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	client.cfg.DryRun = true

	receipt := client.Send(context.Background(), testBatch())

	assert.Equal(t, domain.Delivered, receipt.Outcome)
	assert.Zero(t, requests)
}

func TestSend_CancelledContextAbandonsBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	receipt := testClient(srv.URL).Send(ctx, testBatch())

	assert.Equal(t, domain.FailedAfterRetries, receipt.Outcome)
}
