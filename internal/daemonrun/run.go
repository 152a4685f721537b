// Package daemonrun assembles the farsisub runtime from configuration and
// runs it until a termination signal arrives.
package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"farsisub/internal/config"
	"farsisub/internal/daemon"
	"farsisub/internal/events"
	"farsisub/internal/logging"
	"farsisub/internal/metrics"
	"farsisub/internal/preflight"
	"farsisub/internal/preload"
	"farsisub/internal/services/libretranslate"
	"farsisub/internal/services/llm"
	"farsisub/internal/services/openaichat"
	"farsisub/internal/services/whisper"
	"farsisub/internal/services/ytdlp"
	"farsisub/internal/store"
	"farsisub/internal/store/pgstore"
	"farsisub/internal/translate"
	"farsisub/internal/usage"
)

const staleWorkAge = 6 * time.Hour

// staleWorkTargets covers every temp file the pipeline writes into the work
// dir: yt-dlp raw downloads, normalized audio, and whisper JSON output.
func staleWorkTargets(workDir string) []logging.PruneTarget {
	return []logging.PruneTarget{
		{Dir: workDir, Pattern: "download_*", Kind: "download"},
		{Dir: workDir, Pattern: "audio_*", Kind: "audio"},
		{Dir: workDir, Pattern: "whisper_*.json", Kind: "transcript"},
	}
}

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// LedgerStore is a usage ledger backend that also keeps the download audit.
type LedgerStore interface {
	usage.Store
	preload.DownloadRecorder
	RecentDownloads(ctx context.Context, limit int) ([]store.Download, error)
	Close() error
}

// Runtime holds the assembled components.
type Runtime struct {
	Store        LedgerStore
	Ledger       *usage.Ledger
	Gateway      *translate.Gateway
	Orchestrator *preload.Orchestrator
	Events       *events.Publisher
	Metrics      *metrics.Metrics
	Daemon       *daemon.Daemon
}

// Close releases the runtime in reverse construction order.
func (r *Runtime) Close() error {
	var errs []error
	if r.Daemon != nil {
		errs = append(errs, r.Daemon.Close())
	}
	if r.Events != nil {
		errs = append(errs, r.Events.Close())
	}
	if r.Store != nil {
		errs = append(errs, r.Store.Close())
	}
	return errors.Join(errs...)
}

// OpenStore opens the ledger backend selected by storage.driver.
func OpenStore(ctx context.Context, cfg *config.Config) (LedgerStore, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		st, err := pgstore.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.DriverSQLite, "":
		st, err := store.Open(cfg)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

// PrimaryBackend builds the translation backend selected by
// translation.provider.
func PrimaryBackend(cfg *config.Config) translate.Backend {
	tr := cfg.Translation
	if tr.Provider == config.ProviderOpenAI {
		return openaichat.NewClient(openaichat.Config{
			APIKey:         tr.APIKey,
			BaseURL:        tr.BaseURL,
			Model:          tr.Model,
			Temperature:    tr.Temperature,
			TargetLanguage: tr.TargetLanguage,
			TimeoutSeconds: tr.TimeoutSeconds,
		})
	}
	return llm.NewClient(llm.Config{
		APIKey:         tr.APIKey,
		BaseURL:        tr.BaseURL,
		Model:          tr.Model,
		Temperature:    tr.Temperature,
		TargetLanguage: tr.TargetLanguage,
		TimeoutSeconds: tr.TimeoutSeconds,
	}, llm.WithRetryMaxAttempts(tr.RetryMaxAttempts))
}

// Build wires storage, translation, acquisition, transcription, events and
// the HTTP daemon. The caller owns Close.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	rt := &Runtime{Metrics: metrics.New()}

	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	rt.Store = st
	rt.Ledger = usage.NewLedger(st, cfg.Quota.DailyLimitSeconds, usage.WithLogger(logger))

	gatewayOpts := []translate.Option{
		translate.WithTimeout(cfg.TranslationTimeout()),
		translate.WithLogger(logger),
		translate.WithMetrics(rt.Metrics),
	}
	if cfg.Fallback.Enabled {
		gatewayOpts = append(gatewayOpts, translate.WithFallback(libretranslate.NewClient(libretranslate.Config{
			URL:            cfg.Fallback.URL,
			APIKey:         cfg.Fallback.APIKey,
			SourceLanguage: cfg.Translation.SourceLanguage,
			TargetLanguage: cfg.Translation.TargetLanguage,
			TimeoutSeconds: cfg.Fallback.TimeoutSeconds,
		})))
	}
	rt.Gateway = translate.NewGateway(rt.Ledger, PrimaryBackend(cfg), gatewayOpts...)

	rt.Events = events.New(cfg.Events, logger, rt.Metrics)

	acquirer := ytdlp.NewAcquirer(ytdlp.ConfigFrom(cfg), ytdlp.WithLogger(logger))
	transcriber := whisper.NewService(whisper.ConfigFrom(cfg), whisper.WithLogger(logger))

	preloadOpts := []preload.Option{
		preload.WithLogger(logger),
		preload.WithMetrics(rt.Metrics),
		preload.WithEvents(rt.Events),
		preload.WithConcurrency(cfg.Preload.TranslateConcurrency),
	}
	if cfg.Preload.RecordDownloads {
		preloadOpts = append(preloadOpts, preload.WithDownloadRecorder(st))
	}
	rt.Orchestrator = preload.New(rt.Ledger, acquirer, transcriber, rt.Gateway, preloadOpts...)

	d, err := daemon.New(cfg, logger, rt.Orchestrator, daemon.WithMetrics(rt.Metrics))
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("create daemon: %w", err)
	}
	rt.Daemon = d
	return rt, nil
}

// Run starts the farsisub daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("farsisub-%s.log", runID))
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout"},
		FilePath:    logPath,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", logging.LogFileName, err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.PruneTarget{Dir: cfg.Paths.LogDir, Pattern: "farsisub-*.log", Exclude: []string{logPath}},
	)
	// Work files left behind by a crashed run; live requests delete their own.
	logging.PruneOlderThan(logger, staleWorkAge, staleWorkTargets(cfg.Paths.WorkDir)...)

	logPreflight(signalCtx, logger, cfg)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	rt, err := Build(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("runtime setup failed", logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_setup_failed"),
			logging.String(logging.FieldErrorHint, "check storage settings and database access"),
		)
		return err
	}
	defer rt.Close()

	if err := rt.Daemon.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("farsisub daemon shutting down")
	return nil
}

// logPreflight reports failed readiness checks as warnings. The server still
// starts so health checks and cookie uploads keep working.
func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	results := preflight.RunAll(ctx, cfg)
	for _, r := range preflight.Failed(results) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "run 'farsisub deps' for details"),
			logging.String(logging.FieldImpact, "preload requests may fail until fixed"),
		)
	}
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Int("checks", len(results)),
		logging.Int("failed", len(preflight.Failed(results))),
		logging.String("storage_driver", cfg.Storage.Driver),
		logging.String("translation_provider", cfg.Translation.Provider),
		logging.Bool("fallback_enabled", cfg.Fallback.Enabled),
		logging.Bool("events_enabled", cfg.Events.Enabled),
	)
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logging.LogFileName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
