// Package openaichat is the alternate primary translation backend built on
// github.com/sashabaranov/go-openai, selected with translation.provider =
// "openai". It works against OpenAI or any compatible base URL.
package openaichat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"farsisub/internal/services/llm"
)

const (
	defaultModel       = openai.GPT4oMini
	defaultHTTPTimeout = 180 * time.Second
)

// Config holds the OpenAI connection settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float64
	TargetLanguage string
	TimeoutSeconds int
}

// Client translates through the chat completions API.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	prompt      string
}

// NewClient builds a client; an empty BaseURL keeps the library default.
func NewClient(cfg Config) *Client {
	clientConfig := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientConfig.BaseURL = strings.TrimRight(base, "/")
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	return &Client{
		api:         openai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: float32(cfg.Temperature),
		prompt:      llm.SystemPrompt(cfg.TargetLanguage),
	}
}

// Name identifies the backend in logs and metrics.
func (c *Client) Name() string {
	return "openai"
}

// Translate sends text with the translator instruction and returns the reply.
func (c *Client) Translate(ctx context.Context, text string, maxTokens int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("openai translate: text required")
	}
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.prompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: c.temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai translate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai translate: empty choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("openai translate: empty content (finish_reason=%q)", resp.Choices[0].FinishReason)
	}
	return content, nil
}
