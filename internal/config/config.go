package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	WorkDir     string `toml:"work_dir"`
	LogDir      string `toml:"log_dir"`
	CookiesFile string `toml:"cookies_file"`
	APIBind     string `toml:"api_bind"`
	APIToken    string `toml:"api_token"`
}

// Quota contains the per-user daily usage allowance.
type Quota struct {
	DailyLimitSeconds int64 `toml:"daily_limit_seconds"`
}

// Acquisition contains yt-dlp download settings.
type Acquisition struct {
	Binary         string `toml:"binary"`
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// Proxy is a proxy URL, "auto" to scan local proxy ports, or empty for a
	// direct connection.
	Proxy string `toml:"proxy"`
}

// Transcription contains whisper.cpp settings.
type Transcription struct {
	Binary         string `toml:"binary"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	Threads        int    `toml:"threads"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Translation contains the primary translation backend settings.
type Translation struct {
	Provider         string  `toml:"provider"`
	APIKey           string  `toml:"api_key"`
	BaseURL          string  `toml:"base_url"`
	Model            string  `toml:"model"`
	Temperature      float64 `toml:"temperature"`
	TimeoutSeconds   int     `toml:"timeout_seconds"`
	RetryMaxAttempts int     `toml:"retry_max_attempts"`
	SourceLanguage   string  `toml:"source_language"`
	TargetLanguage   string  `toml:"target_language"`
}

// Fallback contains the secondary translation backend settings.
type Fallback struct {
	Enabled        bool   `toml:"enabled"`
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Storage selects and configures the usage ledger backend.
type Storage struct {
	Driver      string `toml:"driver"`
	Path        string `toml:"path"`
	DatabaseURL string `toml:"database_url"`
}

// Events contains Kafka event publishing settings.
type Events struct {
	Enabled             bool     `toml:"enabled"`
	Brokers             []string `toml:"brokers"`
	Topic               string   `toml:"topic"`
	WriteTimeoutSeconds int      `toml:"write_timeout_seconds"`
}

// Metrics contains Prometheus exposition settings.
type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Preload contains pipeline tuning knobs.
type Preload struct {
	TranslateConcurrency int   `toml:"translate_concurrency"`
	RecordDownloads      bool  `toml:"record_downloads"`
	MaxBodyBytes         int64 `toml:"max_body_bytes"`
}

// Config encapsulates all configuration values for farsisub.
//
// Configuration sections by subsystem:
//   - Paths: directories, cookie file, and API bind address
//   - Quota: per-user daily seconds allowance
//   - Acquisition: yt-dlp binary, proxy, and timeout
//   - Transcription: whisper.cpp binary, model, and timeout
//   - Translation: primary LLM backend (deepseek or openai)
//   - Fallback: LibreTranslate backend used when the primary fails
//   - Storage: sqlite or postgres ledger
//   - Events: Kafka publishing of preload outcomes
//   - Metrics: Prometheus endpoint
//   - Logging: log format, level, and retention
//   - Preload: pipeline concurrency and audit settings
type Config struct {
	Paths         Paths         `toml:"paths"`
	Quota         Quota         `toml:"quota"`
	Acquisition   Acquisition   `toml:"acquisition"`
	Transcription Transcription `toml:"transcription"`
	Translation   Translation   `toml:"translation"`
	Fallback      Fallback      `toml:"fallback"`
	Storage       Storage       `toml:"storage"`
	Events        Events        `toml:"events"`
	Metrics       Metrics       `toml:"metrics"`
	Logging       Logging       `toml:"logging"`
	Preload       Preload       `toml:"preload"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("farsisub.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.CookiesFile); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create cookies directory %q: %w", dir, err)
		}
	}
	return nil
}

// AcquisitionTimeout returns the download stage budget.
func (c *Config) AcquisitionTimeout() time.Duration {
	return time.Duration(c.Acquisition.TimeoutSeconds) * time.Second
}

// TranscriptionTimeout returns the whisper stage budget.
func (c *Config) TranscriptionTimeout() time.Duration {
	return time.Duration(c.Transcription.TimeoutSeconds) * time.Second
}

// TranslationTimeout returns the per-call translation budget.
func (c *Config) TranslationTimeout() time.Duration {
	return time.Duration(c.Translation.TimeoutSeconds) * time.Second
}

// LockPath returns the single-instance lock file inside the data directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "farsisubd.lock")
}

// PIDPath returns the daemon PID file inside the data directory.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "farsisubd.pid")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
