// Package libretranslate is the fallback translation backend: a LibreTranslate
// /translate endpoint taking the source text and the source and target
// language codes.
package libretranslate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"farsisub/internal/language"
)

const defaultHTTPTimeout = 60 * time.Second

// Config holds the endpoint settings.
type Config struct {
	URL            string
	APIKey         string
	SourceLanguage string
	TargetLanguage string
	TimeoutSeconds int
}

// Client calls LibreTranslate.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient constructs a client. Language codes are reduced to ISO 639-1.
func NewClient(cfg Config) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.SourceLanguage = isoOr(cfg.SourceLanguage, "auto")
	cfg.TargetLanguage = isoOr(cfg.TargetLanguage, "fa")
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
}

func isoOr(code, fallback string) string {
	if iso := language.ToISO2(code); iso != "" {
		return iso
	}
	return fallback
}

// Name identifies the backend in logs and metrics.
func (c *Client) Name() string {
	return "libretranslate"
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

// Translate returns the translation of text. The token budget is ignored.
func (c *Client) Translate(ctx context.Context, text string, _ int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("libretranslate: text required")
	}
	if c.cfg.URL == "" {
		return "", errors.New("libretranslate: url not configured")
	}
	encoded, err := json.Marshal(translateRequest{
		Q:      text,
		Source: c.cfg.SourceLanguage,
		Target: c.cfg.TargetLanguage,
		Format: "text",
		APIKey: c.cfg.APIKey,
	})
	if err != nil {
		return "", fmt.Errorf("libretranslate: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("libretranslate: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("libretranslate: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("libretranslate: read body: %w", err)
	}

	var parsed translateResponse
	decodeErr := json.Unmarshal(body, &parsed)
	if resp.StatusCode >= http.StatusMultipleChoices {
		detail := strings.TrimSpace(parsed.Error)
		if detail == "" {
			detail = strings.TrimSpace(string(body))
		}
		return "", fmt.Errorf("libretranslate: http %d: %s", resp.StatusCode, detail)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("libretranslate: decode response: %w", decodeErr)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("libretranslate: %s", parsed.Error)
	}
	translated := strings.TrimSpace(parsed.TranslatedText)
	if translated == "" {
		return "", errors.New("libretranslate: empty translation")
	}
	return translated, nil
}
