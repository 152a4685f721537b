package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeQuota(); err != nil {
		return err
	}
	c.normalizeAcquisition()
	if err := c.normalizeTranscription(); err != nil {
		return err
	}
	c.normalizeTranslation()
	c.normalizeFallback()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeEvents()
	c.normalizeMetrics()
	c.normalizeLogging()
	c.normalizePreload()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = filepath.Join(c.Paths.DataDir, "work")
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CookiesFile) == "" {
		c.Paths.CookiesFile = filepath.Join(c.Paths.DataDir, "youtube.com_cookies.txt")
	}
	if c.Paths.CookiesFile, err = expandPath(c.Paths.CookiesFile); err != nil {
		return fmt.Errorf("paths.cookies_file: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("FARSISUB_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeQuota() error {
	if value, ok := os.LookupEnv("MAX_SECONDS_PER_DAY"); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_SECONDS_PER_DAY: %w", err)
		}
		c.Quota.DailyLimitSeconds = parsed
	}
	return nil
}

func (c *Config) normalizeAcquisition() {
	c.Acquisition.Binary = strings.TrimSpace(c.Acquisition.Binary)
	if c.Acquisition.Binary == "" {
		c.Acquisition.Binary = defaultYtDlpBinary
	}
	c.Acquisition.FFmpegBinary = strings.TrimSpace(c.Acquisition.FFmpegBinary)
	if c.Acquisition.FFmpegBinary == "" {
		c.Acquisition.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Acquisition.TimeoutSeconds <= 0 {
		c.Acquisition.TimeoutSeconds = defaultAcquisitionTimeout
	}
	c.Acquisition.Proxy = strings.TrimSpace(c.Acquisition.Proxy)
	if c.Acquisition.Proxy == "" {
		if value, ok := os.LookupEnv("FARSISUB_PROXY"); ok {
			c.Acquisition.Proxy = strings.TrimSpace(value)
		}
	}
	if strings.EqualFold(c.Acquisition.Proxy, ProxyAuto) {
		c.Acquisition.Proxy = ProxyAuto
	}
}

func (c *Config) normalizeTranscription() error {
	c.Transcription.Binary = strings.TrimSpace(c.Transcription.Binary)
	if c.Transcription.Binary == "" {
		c.Transcription.Binary = defaultWhisperBinary
	}
	if strings.TrimSpace(c.Transcription.Model) == "" {
		c.Transcription.Model = defaultWhisperModel
	}
	var err error
	if c.Transcription.Model, err = expandPath(c.Transcription.Model); err != nil {
		return fmt.Errorf("transcription.model: %w", err)
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	if c.Transcription.Language == "" {
		c.Transcription.Language = defaultWhisperLanguage
	}
	if c.Transcription.Threads < 0 {
		c.Transcription.Threads = 0
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		c.Transcription.TimeoutSeconds = defaultTranscriptionTimeout
	}
	return nil
}

func (c *Config) normalizeTranslation() {
	c.Translation.Provider = strings.ToLower(strings.TrimSpace(c.Translation.Provider))
	if c.Translation.Provider == "" {
		c.Translation.Provider = defaultTranslationProvider
	}
	c.Translation.APIKey = strings.TrimSpace(c.Translation.APIKey)
	c.Translation.BaseURL = strings.TrimSpace(c.Translation.BaseURL)
	c.Translation.Model = strings.TrimSpace(c.Translation.Model)
	switch c.Translation.Provider {
	case ProviderOpenAI:
		if c.Translation.APIKey == "" {
			if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
				c.Translation.APIKey = strings.TrimSpace(value)
			}
		}
		if c.Translation.BaseURL == "" {
			c.Translation.BaseURL = defaultOpenAIBaseURL
		}
		if c.Translation.Model == "" {
			c.Translation.Model = defaultOpenAIModel
		}
	default:
		if c.Translation.APIKey == "" {
			if value, ok := os.LookupEnv("DEEPSEEK_API_KEY"); ok {
				c.Translation.APIKey = strings.TrimSpace(value)
			}
		}
		if c.Translation.BaseURL == "" {
			c.Translation.BaseURL = defaultDeepSeekBaseURL
		}
		if c.Translation.Model == "" {
			c.Translation.Model = defaultDeepSeekModel
		}
	}
	if c.Translation.Temperature < 0 {
		c.Translation.Temperature = defaultTranslationTemperature
	}
	if c.Translation.TimeoutSeconds <= 0 {
		c.Translation.TimeoutSeconds = defaultTranslationTimeout
	}
	if c.Translation.RetryMaxAttempts <= 0 {
		c.Translation.RetryMaxAttempts = defaultTranslationRetryAttempts
	}
	c.Translation.SourceLanguage = strings.ToLower(strings.TrimSpace(c.Translation.SourceLanguage))
	if c.Translation.SourceLanguage == "" {
		c.Translation.SourceLanguage = defaultSourceLanguage
	}
	c.Translation.TargetLanguage = strings.ToLower(strings.TrimSpace(c.Translation.TargetLanguage))
	if c.Translation.TargetLanguage == "" {
		c.Translation.TargetLanguage = defaultTargetLanguage
	}
}

func (c *Config) normalizeFallback() {
	c.Fallback.URL = strings.TrimSpace(c.Fallback.URL)
	if c.Fallback.URL == "" {
		c.Fallback.URL = defaultFallbackURL
	}
	c.Fallback.APIKey = strings.TrimSpace(c.Fallback.APIKey)
	if c.Fallback.APIKey == "" {
		if value, ok := os.LookupEnv("LIBRETRANSLATE_API_KEY"); ok {
			c.Fallback.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Fallback.TimeoutSeconds <= 0 {
		c.Fallback.TimeoutSeconds = defaultFallbackTimeout
	}
}

func (c *Config) normalizeStorage() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "", "sqlite3":
		c.Storage.Driver = DriverSQLite
	case "postgresql", "pg":
		c.Storage.Driver = DriverPostgres
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = filepath.Join(c.Paths.DataDir, defaultStorageFile)
	}
	var err error
	if c.Storage.Path, err = expandPath(c.Storage.Path); err != nil {
		return fmt.Errorf("storage.path: %w", err)
	}
	c.Storage.DatabaseURL = strings.TrimSpace(c.Storage.DatabaseURL)
	if c.Storage.DatabaseURL == "" {
		if value, ok := os.LookupEnv("FARSISUB_DATABASE_URL"); ok {
			c.Storage.DatabaseURL = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeEvents() {
	brokers := make([]string, 0, len(c.Events.Brokers))
	for _, broker := range c.Events.Brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	c.Events.Brokers = brokers
	c.Events.Topic = strings.TrimSpace(c.Events.Topic)
	if c.Events.Topic == "" {
		c.Events.Topic = defaultEventsTopic
	}
	if c.Events.WriteTimeoutSeconds <= 0 {
		c.Events.WriteTimeoutSeconds = defaultEventsWriteTimeout
	}
}

func (c *Config) normalizeMetrics() {
	c.Metrics.Path = strings.TrimSpace(c.Metrics.Path)
	if c.Metrics.Path == "" {
		c.Metrics.Path = defaultMetricsPath
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		c.Metrics.Path = "/" + c.Metrics.Path
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizePreload() {
	if c.Preload.TranslateConcurrency <= 0 {
		c.Preload.TranslateConcurrency = defaultTranslateConcurrency
	}
	if c.Preload.MaxBodyBytes <= 0 {
		c.Preload.MaxBodyBytes = defaultPreloadMaxBodyBytes
	}
}
