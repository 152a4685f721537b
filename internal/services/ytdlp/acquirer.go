package ytdlp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"farsisub/internal/config"
	"farsisub/internal/deps"
	"farsisub/internal/fileutil"
	"farsisub/internal/logging"
	"farsisub/internal/services"
	"farsisub/internal/services/execx"
)

const stage = "download"

// Config holds acquisition settings.
type Config struct {
	Binary       string
	FFmpegBinary string
	WorkDir      string
	CookiesFile  string
	// Proxy is an explicit proxy URL, config.ProxyAuto, or empty for direct.
	Proxy   string
	Timeout time.Duration
}

// ConfigFrom extracts acquisition settings from the daemon config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Binary:       cfg.Acquisition.Binary,
		FFmpegBinary: cfg.Acquisition.FFmpegBinary,
		WorkDir:      cfg.Paths.WorkDir,
		CookiesFile:  cfg.Paths.CookiesFile,
		Proxy:        cfg.Acquisition.Proxy,
		Timeout:      cfg.AcquisitionTimeout(),
	}
}

// Acquirer downloads audio for a video URL.
type Acquirer struct {
	cfg      Config
	runner   execx.Runner
	detector ProxyDetector
	logger   *slog.Logger
}

// Option customizes an Acquirer.
type Option func(*Acquirer)

// WithRunner overrides the command runner (used by tests).
func WithRunner(runner execx.Runner) Option {
	return func(a *Acquirer) {
		if runner != nil {
			a.runner = runner
		}
	}
}

// WithProxyDetector overrides local proxy detection.
func WithProxyDetector(detector ProxyDetector) Option {
	return func(a *Acquirer) {
		if detector != nil {
			a.detector = detector
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Acquirer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAcquirer constructs an Acquirer.
func NewAcquirer(cfg Config, opts ...Option) *Acquirer {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = "yt-dlp"
	}
	if strings.TrimSpace(cfg.FFmpegBinary) == "" {
		cfg.FFmpegBinary = "ffmpeg"
	}
	a := &Acquirer{
		cfg:      cfg,
		detector: NewLocalProxyDetector(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if a.runner == nil {
		a.runner = execx.NewCommandRunner(a.logger)
	}
	a.logger = logging.NewComponentLogger(a.logger, "ytdlp")
	return a
}

// Name identifies the backend in logs.
func (a *Acquirer) Name() string {
	return "yt-dlp"
}

// Acquire downloads the audio of videoURL into the work directory and returns
// the path of the normalized WAV file. The caller owns the returned file.
func (a *Acquirer) Acquire(ctx context.Context, videoURL, userID string) (string, error) {
	cleaned := CleanURL(videoURL)
	if !ValidURL(cleaned) {
		return "", services.Wrap(services.ErrInvalidRequest, stage, "validate url", fmt.Sprintf("%q is not an http(s) URL", videoURL), nil)
	}
	if missing := deps.Missing(deps.CheckBinaries(a.requirements())); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, m := range missing {
			names = append(names, m.Command)
		}
		return "", services.Wrap(services.ErrDownloadFailed, stage, "check binaries", "missing "+strings.Join(names, ", "), nil)
	}
	if err := os.MkdirAll(a.cfg.WorkDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrDownloadFailed, stage, "ensure work dir", a.cfg.WorkDir, err)
	}

	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}
	logger := logging.WithContext(ctx, a.logger)

	id := uuid.NewString()
	rawBase := filepath.Join(a.cfg.WorkDir, "download_"+id)
	rawPath := rawBase + ".wav"
	finalPath := filepath.Join(a.cfg.WorkDir, "audio_"+id+".wav")
	defer func() { _ = fileutil.RemoveIfExists(rawPath) }()

	cookies := a.cookiesPath()
	proxy := a.resolveProxy(ctx)
	logger.Info("downloading audio",
		logging.String("url", cleaned),
		logging.Bool("cookies", cookies != ""),
		logging.String("proxy", proxyLabel(proxy)),
		logging.String(logging.FieldEventType, "download_started"),
	)

	args := buildDownloadArgs(cleaned, rawBase, deps.FFmpegLocation(a.cfg.FFmpegBinary), cookies, proxy)
	started := time.Now()
	if _, err := a.runner.Run(ctx, a.cfg.Binary, args...); err != nil {
		return "", services.TimeoutOr(ctx, services.ErrDownloadFailed, stage, "yt-dlp", "download audio", err)
	}
	if !fileutil.FileExists(rawPath) {
		return "", services.Wrap(services.ErrDownloadFailed, stage, "yt-dlp", "no audio file produced", nil)
	}

	if _, err := a.runner.Run(ctx, a.cfg.FFmpegBinary, buildNormalizeArgs(rawPath, finalPath)...); err != nil {
		_ = fileutil.RemoveIfExists(finalPath)
		return "", services.TimeoutOr(ctx, services.ErrDownloadFailed, stage, "ffmpeg", "normalize audio", err)
	}
	if !fileutil.FileExists(finalPath) {
		return "", services.Wrap(services.ErrDownloadFailed, stage, "ffmpeg", "no normalized audio produced", nil)
	}

	logger.Info("audio downloaded",
		logging.String("audio_path", finalPath),
		logging.Duration("duration", time.Since(started)),
		logging.String(logging.FieldEventType, "download_completed"),
	)
	return finalPath, nil
}

func (a *Acquirer) requirements() []deps.Requirement {
	return []deps.Requirement{
		{Name: "yt-dlp", Command: a.cfg.Binary, Description: "YouTube audio download"},
		{Name: "ffmpeg", Command: a.cfg.FFmpegBinary, Description: "Audio normalization"},
	}
}

func (a *Acquirer) cookiesPath() string {
	path := strings.TrimSpace(a.cfg.CookiesFile)
	if path == "" {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return ""
	}
	return path
}

func (a *Acquirer) resolveProxy(ctx context.Context) string {
	proxy := strings.TrimSpace(a.cfg.Proxy)
	if proxy != config.ProxyAuto {
		return proxy
	}
	detected := a.detector.Detect(ctx)
	if detected == "" {
		a.logger.Debug("no local proxy detected; connecting directly")
	}
	return detected
}

func proxyLabel(proxy string) string {
	if proxy == "" {
		return "direct"
	}
	return proxy
}

func buildDownloadArgs(videoURL, outputBase, ffmpegDir, cookies, proxy string) []string {
	args := []string{
		"-x",
		"--audio-format", "wav",
		"--no-playlist",
		"--no-progress",
	}
	if ffmpegDir != "" {
		args = append(args, "--ffmpeg-location", ffmpegDir)
	}
	args = append(args, "-o", outputBase+".%(ext)s")
	if cookies != "" {
		args = append(args, "--cookies", cookies)
	}
	if proxy != "" {
		args = append(args, "--proxy", proxy)
	}
	return append(args, videoURL)
}

func buildNormalizeArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
}
