// Package llm provides the primary translation backend: a chat completions
// client for DeepSeek (or any OpenAI-compatible endpoint reached over plain
// HTTP).
//
// Each call sends a fixed system instruction asking for fluent, idiomatic
// output in the target language and the source text as the user message,
// bounded by a caller-supplied max_tokens budget.
//
// # Retry Behaviour
//
// By default a request is attempted once. WithRetryMaxAttempts enables
// retries on HTTP 408/429/5xx, empty content and network timeouts with
// exponential backoff (base 1s, max 10s), honouring Retry-After. Context
// cancellation aborts retries immediately.
package llm
