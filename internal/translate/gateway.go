package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"farsisub/internal/logging"
	"farsisub/internal/metrics"
	"farsisub/internal/services"
	"farsisub/internal/textutil"
	"farsisub/internal/usage"
)

const stage = "translate"

// EmptyText is returned for input that normalizes to nothing.
const EmptyText = "[Empty input]"

// Backend translates text. maxTokens is a generation budget that backends
// without one may ignore.
type Backend interface {
	Name() string
	Translate(ctx context.Context, text string, maxTokens int) (string, error)
}

// Usage is the ledger view returned with a translation.
type Usage struct {
	Used  int64 `json:"used"`
	Limit int64 `json:"limit"`
}

// Result is a finished translation.
type Result struct {
	Text    string `json:"text"`
	Usage   Usage  `json:"usage"`
	Empty   bool   `json:"empty,omitempty"`
	Backend string `json:"backend,omitempty"`
}

// Gateway gates translation behind the usage ledger.
type Gateway struct {
	ledger   *usage.Ledger
	primary  Backend
	fallback Backend
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithFallback sets the secondary backend tried after the primary fails.
func WithFallback(backend Backend) Option {
	return func(g *Gateway) {
		g.fallback = backend
	}
}

// WithTimeout bounds each backend call.
func WithTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = timeout
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics attaches metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// NewGateway constructs a gateway over ledger and the primary backend.
func NewGateway(ledger *usage.Ledger, primary Backend, opts ...Option) *Gateway {
	g := &Gateway{
		ledger:  ledger,
		primary: primary,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	g.logger = logging.NewComponentLogger(g.logger, "translate")
	return g
}

// Translate translates input for userID and charges estimatedSeconds to the
// user's usage for today once a backend succeeds.
func (g *Gateway) Translate(ctx context.Context, userID string, input any, estimatedSeconds int64) (Result, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Result{}, services.Wrap(services.ErrInvalidRequest, stage, "validate", "user id required", nil)
	}
	if estimatedSeconds < 0 {
		return Result{}, services.Wrap(services.ErrInvalidRequest, stage, "validate", fmt.Sprintf("estimated duration must be >= 0, got %d", estimatedSeconds), nil)
	}

	text := NormalizeInput(input)
	if text == "" {
		return Result{Text: EmptyText, Empty: true, Usage: Usage{Limit: g.ledger.Limit()}}, nil
	}

	day := g.ledger.Today()
	used, err := g.ledger.GetUsage(ctx, userID, day)
	if err != nil {
		return Result{}, err
	}
	if g.ledger.Exhausted(used) {
		return Result{Usage: Usage{Used: used, Limit: g.ledger.Limit()}},
			services.Wrap(services.ErrQuotaExceeded, stage, "quota", fmt.Sprintf("used %d of %d seconds", used, g.ledger.Limit()), nil)
	}

	logger := logging.WithContext(ctx, g.logger)
	budget := TokenBudget(text)
	translated, backend, err := g.callBackends(ctx, logger, text, budget)
	if err != nil {
		return Result{Usage: Usage{Used: used, Limit: g.ledger.Limit()}}, err
	}
	translated = textutil.TidyPunctuation(textutil.NormalizePersian(translated))

	total, err := g.ledger.AddUsage(ctx, userID, day, estimatedSeconds)
	if err != nil {
		return Result{}, err
	}
	g.metrics.RecordUsage(estimatedSeconds)
	logger.Debug("translation recorded",
		logging.String("backend", backend),
		logging.Int("max_tokens", budget),
		logging.Int64("used_seconds", total),
		logging.Int64("limit_seconds", g.ledger.Limit()),
	)
	return Result{
		Text:    translated,
		Usage:   Usage{Used: total, Limit: g.ledger.Limit()},
		Backend: backend,
	}, nil
}

func (g *Gateway) callBackends(ctx context.Context, logger *slog.Logger, text string, budget int) (string, string, error) {
	if g.primary == nil && g.fallback == nil {
		return "", "", services.Wrap(services.ErrConfiguration, stage, "backend", "no translation backend configured", nil)
	}

	var primaryErr error
	if g.primary != nil {
		out, err := g.call(ctx, g.primary, text, budget)
		if err == nil {
			return out, g.primary.Name(), nil
		}
		primaryErr = err
		if ctx.Err() != nil {
			return "", "", services.TimeoutOr(ctx, services.ErrTranslationFailed, stage, g.primary.Name(), "translate", err)
		}
		if g.fallback != nil {
			logging.WarnWithContext(logger, "primary translation failed; trying fallback", "translation_fallback",
				logging.String("backend", g.primary.Name()),
				logging.String("fallback", g.fallback.Name()),
				logging.String(logging.FieldErrorHint, "check the primary API key, quota and base_url"),
				logging.Error(err),
			)
		}
	}
	if g.fallback == nil {
		return "", "", services.TimeoutOr(ctx, services.ErrTranslationFailed, stage, g.primary.Name(), "translate", primaryErr)
	}

	out, err := g.call(ctx, g.fallback, text, budget)
	if err == nil {
		return out, g.fallback.Name(), nil
	}
	return "", "", services.TimeoutOr(ctx, services.ErrTranslationFailed, stage, "translate", "all backends failed", errors.Join(primaryErr, err))
}

func (g *Gateway) call(ctx context.Context, backend Backend, text string, budget int) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	out, err := backend.Translate(ctx, text, budget)
	if err == nil && strings.TrimSpace(out) == "" {
		err = errors.New(backend.Name() + ": empty translation")
	}
	g.metrics.RecordTranslation(backend.Name(), err)
	return out, err
}
