package translate

import (
	"fmt"
	"strings"
)

// Item is a text-bearing element of a list input.
type Item struct {
	Text string `json:"text"`
}

// Document is an object input carrying fullText, text, or segments.
type Document struct {
	FullText string `json:"fullText,omitempty"`
	Text     string `json:"text,omitempty"`
	Segments []Item `json:"segments,omitempty"`
}

// NormalizeInput flattens input into a single string. Lists and segment
// collections are joined in order with single spaces, skipping empty items.
func NormalizeInput(input any) string {
	switch v := input.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []string:
		return joinNonEmpty(v)
	case []Item:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, item.Text)
		}
		return joinNonEmpty(parts)
	case Document:
		return normalizeDocument(v)
	case *Document:
		if v == nil {
			return ""
		}
		return normalizeDocument(*v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, NormalizeInput(item))
		}
		return joinNonEmpty(parts)
	case []map[string]any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, normalizeMap(item))
		}
		return joinNonEmpty(parts)
	case []map[string]string:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, item["text"])
		}
		return joinNonEmpty(parts)
	case map[string]any:
		return normalizeMap(v)
	case map[string]string:
		if text := strings.TrimSpace(v["fullText"]); text != "" {
			return text
		}
		return strings.TrimSpace(v["text"])
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func normalizeDocument(doc Document) string {
	if text := strings.TrimSpace(doc.FullText); text != "" {
		return text
	}
	if text := strings.TrimSpace(doc.Text); text != "" {
		return text
	}
	return NormalizeInput(doc.Segments)
}

func normalizeMap(obj map[string]any) string {
	for _, key := range []string{"fullText", "text"} {
		if s, ok := obj[key].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	if segments, ok := obj["segments"].([]any); ok {
		return NormalizeInput(segments)
	}
	return ""
}

func joinNonEmpty(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, " ")
}
