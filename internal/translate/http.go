package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPBackend calls a JSON translation endpoint. Any non-200 response or
// transport error is treated as a transient failure; the engine chain moves
// on to the next backend.
type HTTPBackend struct {
	name       string
	url        string
	targetLang string
	httpClient *http.Client
}

func NewHTTPBackend(name, url, targetLang string, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		name:       name,
		url:        url,
		targetLang: targetLang,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (b *HTTPBackend) Name() string {
	return b.name
}

type translateRequest struct {
	Text   string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

func (b *HTTPBackend) Translate(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(translateRequest{
		Text:   text,
		Source: "en",
		Target: b.targetLang,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "CryptoPolicyBot/1.0")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var apiResp translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return apiResp.TranslatedText, nil
}
