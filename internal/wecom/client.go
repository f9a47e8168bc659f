// Package wecom delivers message batches to a WeCom group-chat webhook,
// honoring the destination's send-rate ceiling and message size limit.
package wecom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/backoff"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/config"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/domain"
)

// ErrPermanent marks delivery failures that must not be retried: malformed
// payloads and non-rate-limit 4xx or API rejections.
var ErrPermanent = errors.New("permanent delivery failure")

// WeCom API code for webhook flow control.
const errcodeRateLimited = 45009

type Config struct {
	WebhookURL     string
	Timeout        time.Duration
	MaxBytes       int
	SendsPerMinute int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	DryRun         bool
}

// Client sends batches sequentially. Its rate gate is run-wide: every send
// attempt waits on the same limiter, so the aggregate rate never exceeds the
// ceiling regardless of how the caller is structured.
type Client struct {
	cfg        Config
	httpClient *http.Client
	gate       *rate.Limiter
	backoff    backoff.Policy
	logger     *slog.Logger
	now        func() time.Time
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	perMinute := cfg.SendsPerMinute
	if perMinute <= 0 {
		perMinute = 20
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		gate:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		backoff: backoff.Policy{Initial: cfg.InitialBackoff, Max: cfg.MaxBackoff},
		logger:  logger.With("component", "wecom"),
		now:     time.Now,
	}
}

// NewClientFromDelivery builds a Client from the delivery section of the
// application config.
func NewClientFromDelivery(cfg config.DeliveryConfig, dryRun bool, logger *slog.Logger) *Client {
	return NewClient(Config{
		WebhookURL:     cfg.WebhookURL,
		Timeout:        cfg.Timeout,
		MaxBytes:       cfg.MaxBytesPerMsg,
		SendsPerMinute: cfg.SendsPerMinute,
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		MaxBackoff:     cfg.Retry.MaxBackoff,
		DryRun:         dryRun,
	}, logger)
}

// Send delivers one batch and reports its fate. A failed batch never blocks
// the ones after it; the caller decides what to mark seen from the receipt.
func (c *Client) Send(ctx context.Context, b domain.MessageBatch) domain.DeliveryReceipt {
	content, msgType, degraded := c.render(b)

	if c.cfg.DryRun {
		c.logger.Info("dry-run, skipping send",
			"items", len(b.Items),
			"bytes", len(content),
			"type", msgType,
		)
		return domain.DeliveryReceipt{Batch: b, Outcome: domain.Delivered, Degraded: degraded}
	}

	receipt := domain.DeliveryReceipt{Batch: b, Degraded: degraded}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		receipt.Attempts = attempt

		if err := c.gate.Wait(ctx); err != nil {
			receipt.Outcome = domain.FailedAfterRetries
			c.logger.Warn("send abandoned", "error", err)
			return receipt
		}

		lastErr = c.post(ctx, content, msgType)
		if lastErr == nil {
			receipt.Outcome = domain.Delivered
			c.logger.Info("batch delivered",
				"items", len(b.Items),
				"attempts", attempt,
				"degraded", degraded,
			)
			return receipt
		}

		if errors.Is(lastErr, ErrPermanent) {
			receipt.Outcome = domain.FailedPermanently
			c.logger.Error("batch failed permanently", "error", lastErr)
			return receipt
		}

		if attempt == c.cfg.MaxAttempts {
			break
		}

		delay := c.backoff.Delay(attempt)
		c.logger.Warn("send failed, retrying",
			"attempt", attempt,
			"backoff", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			receipt.Outcome = domain.FailedAfterRetries
			return receipt
		case <-time.After(delay):
		}
	}

	receipt.Outcome = domain.FailedAfterRetries
	c.logger.Error("batch failed after retries", "attempts", c.cfg.MaxAttempts, "error", lastErr)
	return receipt
}

// render picks the wire form: markdown normally, the reduced plain-text
// rendering when the batch is oversized or the markdown exceeds the budget.
func (c *Client) render(b domain.MessageBatch) (content, msgType string, degraded bool) {
	now := c.now()
	md := Markdown(b.Items, now)
	if !b.Oversized && len(md) <= c.cfg.MaxBytes {
		return md, "markdown", false
	}

	c.logger.Warn("message over size budget, degrading to plain text",
		"bytes", len(md),
		"budget", c.cfg.MaxBytes,
		"items", len(b.Items),
	)
	return PlainText(b.Items, now), "text", true
}

type webhookPayload struct {
	MsgType  string          `json:"msgtype"`
	Markdown *messageContent `json:"markdown,omitempty"`
	Text     *messageContent `json:"text,omitempty"`
}

type messageContent struct {
	Content string `json:"content"`
}

type webhookResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func (c *Client) post(ctx context.Context, content, msgType string) error {
	payload := webhookPayload{MsgType: msgType}
	switch msgType {
	case "markdown":
		payload.Markdown = &messageContent{Content: content}
	default:
		payload.Text = &messageContent{Content: content}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", ErrPermanent)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", ErrPermanent)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("rate limited: status %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("server error: status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("rejected with status %d: %w", resp.StatusCode, ErrPermanent)
	}

	var apiResp webhookResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	switch apiResp.ErrCode {
	case 0:
		return nil
	case errcodeRateLimited:
		return fmt.Errorf("webhook flow control: %s", apiResp.ErrMsg)
	default:
		return fmt.Errorf("webhook error %d: %s: %w", apiResp.ErrCode, apiResp.ErrMsg, ErrPermanent)
	}
}
