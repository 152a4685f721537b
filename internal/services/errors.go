package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrQuotaExceeded       = errors.New("daily quota exceeded")
	ErrDownloadFailed      = errors.New("download failed")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrTranslationFailed   = errors.New("translation failed")
	ErrLedgerUnavailable   = errors.New("usage ledger unavailable")
	ErrTimeout             = errors.New("timeout")
	ErrConfiguration       = errors.New("configuration error")
	ErrUnknown             = errors.New("unknown failure")
)

// Kind names the failure class of an error for logs, metrics and API payloads.
type Kind string

const (
	KindNone                Kind = ""
	KindInvalidRequest      Kind = "invalid_request"
	KindQuotaExceeded       Kind = "quota_exceeded"
	KindDownloadFailed      Kind = "download_failed"
	KindTranscriptionFailed Kind = "transcription_failed"
	KindTranslationFailed   Kind = "translation_failed"
	KindLedgerUnavailable   Kind = "ledger_unavailable"
	KindTimeout             Kind = "timeout"
	KindConfiguration       Kind = "configuration"
	KindUnknown             Kind = "unknown"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrUnknown
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ClassifyKind reports the failure class carried by err. Timeout wins over the
// stage marker so a download that ran out of time reports as a timeout.
func ClassifyKind(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrQuotaExceeded):
		return KindQuotaExceeded
	case errors.Is(err, ErrLedgerUnavailable):
		return KindLedgerUnavailable
	case errors.Is(err, ErrDownloadFailed):
		return KindDownloadFailed
	case errors.Is(err, ErrTranscriptionFailed):
		return KindTranscriptionFailed
	case errors.Is(err, ErrTranslationFailed):
		return KindTranslationFailed
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindUnknown
	}
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch ClassifyKind(err) {
	case KindNone:
		return http.StatusOK
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindQuotaExceeded:
		return http.StatusForbidden
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindLedgerUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// TimeoutOr returns a timeout-marked error when ctx hit its deadline, and the
// marker-wrapped error otherwise.
func TimeoutOr(ctx context.Context, marker error, stage, operation, message string, err error) error {
	if ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Wrap(ErrTimeout, stage, operation, message, err)
	}
	return Wrap(marker, stage, operation, message, err)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
