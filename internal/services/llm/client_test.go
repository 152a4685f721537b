package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func completionHandler(t *testing.T, content string, inspect func(chatCompletionRequest, *http.Request)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if inspect != nil {
			inspect(req, r)
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": content}, "finish_reason": "stop"},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func TestTranslateSendsPromptAndBudget(t *testing.T) {
	var seen chatCompletionRequest
	var auth string
	server := httptest.NewServer(completionHandler(t, "  سلام دنیا  ", func(req chatCompletionRequest, r *http.Request) {
		seen = req
		auth = r.Header.Get("Authorization")
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL, TargetLanguage: "fa"})
	got, err := client.Translate(context.Background(), "hello world", 400)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "سلام دنیا" {
		t.Fatalf("Translate = %q", got)
	}
	if auth != "Bearer secret" {
		t.Fatalf("authorization header = %q", auth)
	}
	if seen.Model != "deepseek-chat" || seen.MaxTokens != 400 || seen.Temperature != 0.3 {
		t.Fatalf("unexpected request %+v", seen)
	}
	if len(seen.Messages) != 2 || seen.Messages[0].Role != "system" || !strings.Contains(seen.Messages[0].Content, "Persian") {
		t.Fatalf("unexpected messages %+v", seen.Messages)
	}
	if seen.Messages[1].Content != "hello world" {
		t.Fatalf("user message = %q", seen.Messages[1].Content)
	}
}

func TestTranslateLegacyTextField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"text":" legacy "}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	got, err := client.Translate(context.Background(), "x", 0)
	if err != nil || got != "legacy" {
		t.Fatalf("Translate = %q, %v", got, err)
	}
}

func TestTranslateDoesNotRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	_, err := client.Translate(context.Background(), "x", 0)
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 status error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestTranslateRetriesWithRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(Config{APIKey: "k", BaseURL: server.URL},
		WithRetryMaxAttempts(3),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	got, err := client.Translate(context.Background(), "x", 0)
	if err != nil || got != "ok" {
		t.Fatalf("Translate = %q, %v", got, err)
	}
	if len(slept) != 1 || slept[0] != 3*time.Second {
		t.Fatalf("expected one 3s Retry-After sleep, got %v", slept)
	}
}

func TestTranslateClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL}, WithRetryMaxAttempts(5), WithSleeper(func(time.Duration) {}))
	if _, err := client.Translate(context.Background(), "x", 0); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected no retries for 401, got %d calls", calls.Load())
	}
}

func TestTranslateEmptyContent(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, "   ", nil))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	_, err := client.Translate(context.Background(), "x", 0)
	var emptyErr *emptyContentError
	if !errors.As(err, &emptyErr) || emptyErr.FinishReason != "stop" {
		t.Fatalf("expected empty content error, got %v", err)
	}
}

func TestTranslateRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	if _, err := client.Translate(context.Background(), "x", 0); err == nil || !strings.Contains(err.Error(), "api key") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("7"); !ok || d != 7*time.Second {
		t.Fatalf("seconds form: %v %v", d, ok)
	}
	if _, ok := parseRetryAfter("-1"); ok {
		t.Fatal("negative must be rejected")
	}
	if _, ok := parseRetryAfter("soon"); ok {
		t.Fatal("garbage must be rejected")
	}
}

func TestSystemPromptTargets(t *testing.T) {
	if !strings.Contains(SystemPrompt("fa"), "Persian") {
		t.Fatal("expected Persian prompt for fa")
	}
	if !strings.Contains(SystemPrompt(""), "Persian") {
		t.Fatal("expected Persian prompt by default")
	}
	if strings.Contains(SystemPrompt("de"), "Persian") {
		t.Fatal("expected non-Persian prompt for de")
	}
}
