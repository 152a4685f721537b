package preload

import (
	"context"
	"math"

	"farsisub/internal/store"
	"farsisub/internal/transcript"
	"farsisub/internal/translate"
)

// State is a pipeline step.
type State string

const (
	StateReceived     State = "received"
	StateQuotaCheck   State = "quota_check"
	StateDownloading  State = "downloading"
	StateTranscribing State = "transcribing"
	StateTranslating  State = "translating"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

// Acquirer fetches a normalized audio file for a video.
type Acquirer interface {
	Acquire(ctx context.Context, videoURL, userID string) (string, error)
}

// Transcriber turns an audio file into timed segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]transcript.Segment, error)
}

// Translator is the quota-aware translation gateway.
type Translator interface {
	Translate(ctx context.Context, userID string, input any, estimatedSeconds int64) (translate.Result, error)
}

// DownloadRecorder stores the download audit trail.
type DownloadRecorder interface {
	RecordDownload(ctx context.Context, d store.Download) error
}

// Request is the POST /preload body.
type Request struct {
	URL    string `json:"url"`
	UserID string `json:"userId"`
	// VideoDuration is the caller's estimate in seconds; 0 when unknown.
	VideoDuration float64 `json:"videoDuration,omitempty"`
}

// MaxEstimatedSeconds caps the caller's estimate so quota arithmetic cannot
// overflow.
const MaxEstimatedSeconds int64 = math.MaxInt64 / 2

// EstimatedSeconds rounds the caller's estimate up to whole seconds, capped
// at MaxEstimatedSeconds.
func (r Request) EstimatedSeconds() int64 {
	if r.VideoDuration <= 0 || math.IsNaN(r.VideoDuration) {
		return 0
	}
	if math.IsInf(r.VideoDuration, 1) || r.VideoDuration >= float64(MaxEstimatedSeconds) {
		return MaxEstimatedSeconds
	}
	return int64(math.Ceil(r.VideoDuration))
}

// Usage is the quota view reported with every result.
type Usage struct {
	Used      int64 `json:"used"`
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
}

// Result is the POST /preload response.
type Result struct {
	Success        bool                 `json:"success"`
	Captions       []transcript.Caption `json:"captions,omitempty"`
	Usage          Usage                `json:"usage"`
	Error          string               `json:"error,omitempty"`
	ErrorKind      string               `json:"errorKind,omitempty"`
	FailedSegments int                  `json:"failedSegments"`
	RequestID      string               `json:"requestId"`

	// Err carries the classified failure for status mapping.
	Err error `json:"-"`
}
