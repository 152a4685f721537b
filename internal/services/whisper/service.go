package whisper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"farsisub/internal/config"
	"farsisub/internal/deps"
	"farsisub/internal/fileutil"
	"farsisub/internal/language"
	"farsisub/internal/logging"
	"farsisub/internal/services"
	"farsisub/internal/services/execx"
	"farsisub/internal/transcript"
)

const stage = "transcribe"

// Config holds whisper.cpp settings.
type Config struct {
	Binary   string
	Model    string
	Language string
	Threads  int
	WorkDir  string
	Timeout  time.Duration
}

// ConfigFrom extracts transcription settings from the daemon config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Binary:   cfg.Transcription.Binary,
		Model:    cfg.Transcription.Model,
		Language: cfg.Transcription.Language,
		Threads:  cfg.Transcription.Threads,
		WorkDir:  cfg.Paths.WorkDir,
		Timeout:  cfg.TranscriptionTimeout(),
	}
}

// Service runs whisper-cli.
type Service struct {
	cfg    Config
	runner execx.Runner
	logger *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithRunner overrides the command runner (used by tests).
func WithRunner(runner execx.Runner) Option {
	return func(s *Service) {
		if runner != nil {
			s.runner = runner
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a whisper.cpp service.
func NewService(cfg Config, opts ...Option) *Service {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = "whisper-cli"
	}
	s := &Service{cfg: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.runner == nil {
		s.runner = execx.NewCommandRunner(s.logger)
	}
	s.logger = logging.NewComponentLogger(s.logger, "whisper")
	return s
}

// Name identifies the backend in logs.
func (s *Service) Name() string {
	return "whisper.cpp"
}

// Model returns the configured model path.
func (s *Service) Model() string {
	return s.cfg.Model
}

// Transcribe converts the audio file into sanitized, chronological segments.
// It does not delete audioPath.
func (s *Service) Transcribe(ctx context.Context, audioPath string) ([]transcript.Segment, error) {
	if strings.TrimSpace(audioPath) == "" {
		return nil, services.Wrap(services.ErrTranscriptionFailed, stage, "validate", "audio path required", nil)
	}
	if !fileutil.FileExists(audioPath) {
		return nil, services.Wrap(services.ErrTranscriptionFailed, stage, "validate", "audio file not found: "+audioPath, nil)
	}
	if !fileutil.FileExists(s.cfg.Model) {
		return nil, services.Wrap(services.ErrTranscriptionFailed, stage, "validate", "whisper model not found: "+s.cfg.Model, nil)
	}
	if missing := deps.Missing(deps.CheckBinaries([]deps.Requirement{{Name: "whisper-cli", Command: s.cfg.Binary}})); len(missing) > 0 {
		return nil, services.Wrap(services.ErrTranscriptionFailed, stage, "check binaries", missing[0].Detail, nil)
	}

	outputDir := s.cfg.WorkDir
	if outputDir == "" {
		outputDir = filepath.Dir(audioPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTranscriptionFailed, stage, "ensure output dir", outputDir, err)
	}
	outputBase := filepath.Join(outputDir, "whisper_"+uuid.NewString())
	jsonPath := outputBase + ".json"
	defer func() { _ = fileutil.RemoveIfExists(jsonPath) }()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("transcribing audio",
		logging.String("audio_path", audioPath),
		logging.String("model", filepath.Base(s.cfg.Model)),
		logging.String(logging.FieldEventType, "transcription_started"),
	)

	started := time.Now()
	result, err := s.runner.Run(ctx, s.cfg.Binary, s.buildArgs(audioPath, outputBase)...)
	if err != nil {
		return nil, services.TimeoutOr(ctx, services.ErrTranscriptionFailed, stage, "whisper-cli", "run", err)
	}

	segments, source := s.collectSegments(logger, jsonPath, result.Stdout)
	segments = transcript.Sanitize(segments)
	if len(segments) == 0 {
		return nil, services.Wrap(services.ErrTranscriptionFailed, stage, "parse", "no segments in whisper output", nil)
	}

	logger.Info("transcription completed",
		logging.Int("segments", len(segments)),
		logging.String("source", source),
		logging.Duration("duration", time.Since(started)),
		logging.String(logging.FieldEventType, "transcription_completed"),
	)
	return segments, nil
}

// collectSegments prefers the JSON file and falls back to stdout when the
// JSON is missing, unreadable, empty, or carries no timing.
func (s *Service) collectSegments(logger *slog.Logger, jsonPath string, stdout []byte) ([]transcript.Segment, string) {
	data, err := os.ReadFile(jsonPath)
	if err == nil {
		segments, parseErr := ParseJSON(data)
		switch {
		case parseErr != nil:
			err = parseErr
		case len(segments) == 0:
			err = errors.New("no segments in json")
		case transcript.TimingMissing(segments):
			err = errors.New("json segments carry no timing")
		default:
			return segments, "json"
		}
	}
	logger.Debug("falling back to stdout transcript", logging.Error(err))
	return ParseStdout(stdout), "stdout"
}

func (s *Service) buildArgs(audioPath, outputBase string) []string {
	args := []string{
		"-m", s.cfg.Model,
		"-f", audioPath,
		"--output-json",
		"-of", outputBase,
	}
	if lang := language.ToISO2(s.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	} else if strings.TrimSpace(s.cfg.Language) != "" {
		args = append(args, "--language", strings.TrimSpace(s.cfg.Language))
	}
	if s.cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(s.cfg.Threads))
	}
	return args
}

// String describes the service for diagnostics.
func (s *Service) String() string {
	return fmt.Sprintf("%s (%s)", s.cfg.Binary, filepath.Base(s.cfg.Model))
}
