package preload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"farsisub/internal/events"
	"farsisub/internal/fileutil"
	"farsisub/internal/logging"
	"farsisub/internal/metrics"
	"farsisub/internal/services"
	"farsisub/internal/store"
	"farsisub/internal/transcript"
	"farsisub/internal/translate"
	"farsisub/internal/usage"
)

const eventPublishTimeout = 5 * time.Second

// errPanic marks failures recovered from a panicking collaborator.
var errPanic = errors.New("recovered panic")

// Orchestrator owns the preload pipeline.
type Orchestrator struct {
	ledger      *usage.Ledger
	acquirer    Acquirer
	transcriber Transcriber
	translator  Translator

	downloads   DownloadRecorder
	events      events.Sink
	metrics     *metrics.Metrics
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics attaches metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithEvents publishes a lifecycle event per request.
func WithEvents(sink events.Sink) Option {
	return func(o *Orchestrator) {
		o.events = sink
	}
}

// WithDownloadRecorder records each successful download.
func WithDownloadRecorder(rec DownloadRecorder) Option {
	return func(o *Orchestrator) {
		o.downloads = rec
	}
}

// WithConcurrency translates up to n segments at once. Caption order is
// preserved regardless.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithClock overrides the time source used for durations.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New constructs an Orchestrator.
func New(ledger *usage.Ledger, acquirer Acquirer, transcriber Transcriber, translator Translator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		ledger:      ledger,
		acquirer:    acquirer,
		transcriber: transcriber,
		translator:  translator,
		logger:      logging.NewNop(),
		concurrency: 1,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	o.logger = logging.NewComponentLogger(o.logger, "preload")
	return o
}

// run is the per-request pipeline state.
type run struct {
	req       Request
	requestID string
	state     State
	started   time.Time
	logger    *slog.Logger
	segments  int
}

// Preload runs the pipeline for req. Failures are reported in the Result;
// Result.Err carries the classified error.
func (o *Orchestrator) Preload(ctx context.Context, req Request) Result {
	req.URL = strings.TrimSpace(req.URL)
	req.UserID = strings.TrimSpace(req.UserID)

	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
		ctx = services.WithRequestID(ctx, requestID)
	}
	ctx = services.WithUserID(ctx, req.UserID)

	r := &run{req: req, requestID: requestID, state: StateReceived, started: o.now()}
	r.logger = logging.WithContext(ctx, o.logger)

	o.metrics.PreloadStarted()
	result := o.executeRecovered(ctx, r)
	result.RequestID = requestID

	outcome := string(StateCompleted)
	if !result.Success {
		outcome = string(services.ClassifyKind(result.Err))
	}
	o.metrics.PreloadFinished(outcome)
	o.publish(ctx, r, result)
	return result
}

// executeRecovered turns a panic in any stage into a failed Result. Deferred
// cleanup inside execute has already run by the time recover sees it.
func (o *Orchestrator) executeRecovered(ctx context.Context, r *run) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			err := o.recovered(r, "pipeline", rec)
			result = o.fail(ctx, r, err, o.bestEffortUsage(ctx, r.req.UserID))
		}
	}()
	return o.execute(ctx, r)
}

func (o *Orchestrator) recovered(r *run, op string, rec any) error {
	logging.ErrorWithContext(r.logger, "preload stage panicked", "preload_panic",
		logging.String("state", string(r.state)),
		logging.String("panic", fmt.Sprint(rec)),
		logging.String("stack", string(debug.Stack())),
	)
	return services.Wrap(services.ErrUnknown, string(r.state), op, fmt.Sprint(rec), errPanic)
}

func (o *Orchestrator) execute(ctx context.Context, r *run) Result {
	if err := validate(r.req); err != nil {
		return o.fail(ctx, r, err, Usage{Limit: o.ledger.Limit()})
	}

	// QuotaCheck
	stageCtx := o.enter(ctx, r, StateQuotaCheck)
	estimate := r.req.EstimatedSeconds()
	snap, err := o.ledger.Snapshot(stageCtx, r.req.UserID)
	if err != nil {
		return o.fail(ctx, r, err, Usage{Limit: o.ledger.Limit()})
	}
	if estimate > snap.Limit-snap.Used || o.ledger.Exhausted(snap.Used) {
		return o.rejectQuota(ctx, r, snap.Used, snap.Limit, estimate)
	}

	// Downloading
	stageCtx = o.enter(ctx, r, StateDownloading)
	stageStart := o.now()
	audioPath, err := o.acquirer.Acquire(stageCtx, r.req.URL, r.req.UserID)
	o.metrics.ObserveStage(string(StateDownloading), o.now().Sub(stageStart).Seconds())
	if err != nil {
		if !errors.Is(err, services.ErrDownloadFailed) && !errors.Is(err, services.ErrInvalidRequest) {
			err = services.TimeoutOr(stageCtx, services.ErrDownloadFailed, "download", "acquire", "", err)
		}
		return o.fail(ctx, r, err, o.bestEffortUsage(ctx, r.req.UserID))
	}
	defer o.removeAudio(r, audioPath)
	o.recordDownload(stageCtx, r, audioPath)

	// Transcribing
	stageCtx = o.enter(ctx, r, StateTranscribing)
	stageStart = o.now()
	segments, err := o.transcriber.Transcribe(stageCtx, audioPath)
	o.metrics.ObserveStage(string(StateTranscribing), o.now().Sub(stageStart).Seconds())
	if err == nil && len(segments) == 0 {
		err = services.Wrap(services.ErrTranscriptionFailed, "transcribe", "parse", "no segments produced", nil)
	}
	if err != nil {
		if !errors.Is(err, services.ErrTranscriptionFailed) {
			err = services.TimeoutOr(stageCtx, services.ErrTranscriptionFailed, "transcribe", "run", "", err)
		}
		return o.fail(ctx, r, err, o.bestEffortUsage(ctx, r.req.UserID))
	}
	r.segments = len(segments)

	// Translating
	stageCtx = o.enter(ctx, r, StateTranslating)
	stageStart = o.now()
	captions, failed, err := o.translateSegments(stageCtx, r, segments)
	o.metrics.ObserveStage(string(StateTranslating), o.now().Sub(stageStart).Seconds())
	if err != nil {
		return o.fail(ctx, r, err, o.bestEffortUsage(ctx, r.req.UserID))
	}

	o.enter(ctx, r, StateCompleted)
	result := Result{
		Success:        true,
		Captions:       captions,
		Usage:          o.bestEffortUsage(ctx, r.req.UserID),
		FailedSegments: failed,
	}
	r.logger.Info("preload completed",
		logging.Int("segments", len(captions)),
		logging.Int("failed_segments", failed),
		logging.Int64("used_seconds", result.Usage.Used),
		logging.Int64("remaining_seconds", result.Usage.Remaining),
		logging.Duration("duration", o.now().Sub(r.started)),
		logging.String(logging.FieldEventType, "preload_completed"),
	)
	return result
}

func validate(req Request) error {
	var missing []string
	if req.URL == "" {
		missing = append(missing, "url")
	}
	if req.UserID == "" {
		missing = append(missing, "userId")
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrInvalidRequest, "preload", "validate", strings.Join(missing, " and ")+" required", nil)
	}
	if req.VideoDuration < 0 {
		return services.Wrap(services.ErrInvalidRequest, "preload", "validate", "videoDuration must be >= 0", nil)
	}
	return nil
}

// enter records a state transition and returns ctx tagged with the stage.
func (o *Orchestrator) enter(ctx context.Context, r *run, next State) context.Context {
	r.logger.Debug("preload state change",
		logging.String("from", string(r.state)),
		logging.String("to", string(next)),
	)
	r.state = next
	return services.WithStage(ctx, string(next))
}

func (o *Orchestrator) rejectQuota(ctx context.Context, r *run, used, limit, estimate int64) Result {
	o.metrics.RecordQuotaRejection()
	err := services.Wrap(services.ErrQuotaExceeded, "preload", "quota check",
		fmt.Sprintf("used %d + estimated %d exceeds %d seconds", used, estimate, limit), nil)
	o.enter(ctx, r, StateFailed)
	r.logger.Info("preload refused by quota",
		logging.Int64("used_seconds", used),
		logging.Int64("estimated_seconds", estimate),
		logging.Int64("limit_seconds", limit),
		logging.String(logging.FieldEventType, "quota_rejected"),
	)
	return Result{
		Success:   false,
		Usage:     Usage{Used: used, Limit: limit, Remaining: 0},
		Error:     QuotaExceededMessage(used, limit),
		ErrorKind: string(services.KindQuotaExceeded),
		Err:       err,
	}
}

func (o *Orchestrator) fail(ctx context.Context, r *run, err error, u Usage) Result {
	failedIn := r.state
	o.enter(ctx, r, StateFailed)
	kind := services.ClassifyKind(err)
	logging.ErrorWithContext(r.logger, "preload failed", "preload_failed",
		logging.String("failed_state", string(failedIn)),
		logging.String(logging.FieldErrorKind, string(kind)),
		logging.String(logging.FieldErrorHint, hintFor(kind)),
		logging.Error(err),
	)
	return Result{
		Success:   false,
		Usage:     u,
		Error:     err.Error(),
		ErrorKind: string(kind),
		Err:       err,
	}
}

func hintFor(kind services.Kind) string {
	switch kind {
	case services.KindDownloadFailed:
		return "check yt-dlp/ffmpeg, uploaded cookies and proxy settings"
	case services.KindTranscriptionFailed:
		return "check whisper-cli and the configured model"
	case services.KindLedgerUnavailable:
		return "check the usage database"
	case services.KindTimeout:
		return "raise the stage timeout or retry with a shorter video"
	default:
		return ""
	}
}

// bestEffortUsage reads today's snapshot, falling back to the bare limit when
// the ledger cannot be read.
func (o *Orchestrator) bestEffortUsage(ctx context.Context, userID string) Usage {
	if userID == "" {
		return Usage{Limit: o.ledger.Limit()}
	}
	snap, err := o.ledger.Snapshot(context.WithoutCancel(ctx), userID)
	if err != nil {
		return Usage{Limit: o.ledger.Limit()}
	}
	return Usage{Used: snap.Used, Limit: snap.Limit, Remaining: snap.Remaining}
}

func (o *Orchestrator) removeAudio(r *run, path string) {
	if err := fileutil.RemoveIfExists(path); err != nil {
		logging.WarnWithContext(r.logger, "temp audio cleanup failed", "cleanup_failed",
			logging.String("audio_path", path),
			logging.String(logging.FieldImpact, "disk space is not reclaimed"),
			logging.Error(err),
		)
		return
	}
	r.logger.Debug("temp audio removed", logging.String("audio_path", path))
}

func (o *Orchestrator) recordDownload(ctx context.Context, r *run, path string) {
	if o.downloads == nil {
		return
	}
	err := o.downloads.RecordDownload(ctx, store.Download{
		VideoURL:  r.req.URL,
		FilePath:  path,
		UserID:    r.req.UserID,
		RequestID: r.requestID,
	})
	if err != nil {
		logging.WarnWithContext(r.logger, "download audit write failed", "download_audit_failed",
			logging.String(logging.FieldImpact, "download history is incomplete"),
			logging.Error(err),
		)
	}
}

// translateSegments translates every segment, keeping source text for
// segments that fail. Once the quota runs out mid-run the remaining segments
// keep their source text without calling the gateway. A ledger failure or a
// cancelled request aborts.
func (o *Orchestrator) translateSegments(ctx context.Context, r *run, segments []transcript.Segment) ([]transcript.Caption, int, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	captions := make([]transcript.Caption, len(segments))
	var (
		mu        sync.Mutex
		failed    int
		exhausted bool
	)
	markFailed := func() {
		mu.Lock()
		failed++
		mu.Unlock()
		o.metrics.RecordSegmentFallback()
	}

	workers := o.concurrency
	if workers > len(segments) {
		workers = len(segments)
	}
	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				seg := segments[i]
				captions[i] = transcript.CaptionFrom(seg, seg.Text)

				mu.Lock()
				skip := exhausted
				mu.Unlock()
				if skip || ctx.Err() != nil {
					markFailed()
					continue
				}

				res, err := o.translateSegment(ctx, r, seg)
				switch {
				case err == nil && !res.Empty:
					captions[i].Text = res.Text
				case err == nil:
					markFailed()
				case errors.Is(err, errPanic), errors.Is(err, services.ErrLedgerUnavailable):
					cancel(err)
				case errors.Is(err, services.ErrQuotaExceeded):
					mu.Lock()
					if !exhausted {
						exhausted = true
						r.logger.Info("quota exhausted during translation; keeping source text for remaining segments",
							logging.Int("segment", i),
							logging.String(logging.FieldEventType, "quota_exhausted_midrun"),
						)
					}
					mu.Unlock()
					markFailed()
				case ctx.Err() != nil:
					markFailed()
				default:
					logging.WarnWithContext(r.logger, "segment translation failed; keeping source text", "segment_fallback",
						logging.Int("segment", i),
						logging.String(logging.FieldErrorKind, string(services.ClassifyKind(err))),
						logging.Error(err),
					)
					markFailed()
				}
			}
		}()
	}

feed:
	for i := range segments {
		select {
		case indexes <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	if cause := context.Cause(ctx); cause != nil {
		if errors.Is(cause, errPanic) || errors.Is(cause, services.ErrLedgerUnavailable) {
			return nil, failed, cause
		}
		return nil, failed, services.TimeoutOr(ctx, services.ErrTranslationFailed, "translate", "segments", "request ended before translation finished", cause)
	}
	return captions, failed, nil
}

// translateSegment runs on a worker goroutine, where a panic would take the
// whole process down; it is converted to an error instead.
func (o *Orchestrator) translateSegment(ctx context.Context, r *run, seg transcript.Segment) (res translate.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = o.recovered(r, "segment", rec)
		}
	}()
	return o.translator.Translate(ctx, r.req.UserID, seg.Text, seg.BillableSeconds())
}

// publish emits the lifecycle event without blocking the response on a
// cancelled request context.
func (o *Orchestrator) publish(ctx context.Context, r *run, result Result) {
	if o.events == nil {
		return
	}
	event := events.Event{
		Type:           events.TypePreloadCompleted,
		RequestID:      r.requestID,
		UserID:         r.req.UserID,
		VideoURL:       r.req.URL,
		Segments:       len(result.Captions),
		FailedSegments: result.FailedSegments,
		UsedSeconds:    result.Usage.Used,
		LimitSeconds:   result.Usage.Limit,
		DurationMillis: o.now().Sub(r.started).Milliseconds(),
		At:             o.now().UTC(),
	}
	if !result.Success {
		event.Type = events.TypePreloadFailed
		if errors.Is(result.Err, services.ErrQuotaExceeded) {
			event.Type = events.TypeQuotaRejected
		}
		event.ErrorKind = result.ErrorKind
		event.Error = result.Error
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()
	if err := o.events.Publish(pubCtx, event); err != nil {
		r.logger.Debug("event not published", logging.Error(err))
	}
}
