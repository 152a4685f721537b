package config

const (
	defaultConfigPath                     = "~/.config/farsisub/config.toml"
	defaultDataDir                        = "~/.local/share/farsisub"
	defaultWorkDir                        = "~/.local/share/farsisub/work"
	defaultLogDir                         = "~/.local/share/farsisub/logs"
	defaultCookiesFile                    = "~/.local/share/farsisub/youtube.com_cookies.txt"
	defaultAPIBind                        = "127.0.0.1:3000"
	defaultDailyLimitSeconds              = 7200
	defaultYtDlpBinary                    = "yt-dlp"
	defaultFFmpegBinary                   = "ffmpeg"
	defaultAcquisitionTimeout             = 900
	defaultWhisperBinary                  = "whisper-cli"
	defaultWhisperModel                   = "~/.local/share/farsisub/models/ggml-base.bin"
	defaultWhisperLanguage                = "en"
	defaultTranscriptionTimeout           = 1800
	defaultTranslationProvider            = ProviderDeepSeek
	defaultDeepSeekBaseURL                = "https://api.deepseek.com/v1/chat/completions"
	defaultDeepSeekModel                  = "deepseek-chat"
	defaultOpenAIBaseURL                  = "https://api.openai.com/v1"
	defaultOpenAIModel                    = "gpt-4o-mini"
	defaultTranslationTemperature         = 0.3
	defaultTranslationTimeout             = 180
	defaultTranslationRetryAttempts       = 1
	defaultSourceLanguage                 = "en"
	defaultTargetLanguage                 = "fa"
	defaultFallbackURL                    = "https://libretranslate.com/translate"
	defaultFallbackTimeout                = 60
	defaultStorageDriver                  = DriverSQLite
	defaultStorageFile                    = "farsisub.db"
	defaultEventsTopic                    = "farsisub.preload"
	defaultEventsWriteTimeout             = 10
	defaultMetricsPath                    = "/metrics"
	defaultLogFormat                      = "console"
	defaultLogLevel                       = "info"
	defaultLogRetentionDays               = 30
	defaultTranslateConcurrency           = 1
	defaultPreloadMaxBodyBytes      int64 = 1 << 20
)

// Translation providers.
const (
	ProviderDeepSeek = "deepseek"
	ProviderOpenAI   = "openai"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ProxyAuto asks the acquisition stage to scan local proxy ports.
const ProxyAuto = "auto"

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			WorkDir:     defaultWorkDir,
			LogDir:      defaultLogDir,
			CookiesFile: defaultCookiesFile,
			APIBind:     defaultAPIBind,
		},
		Quota: Quota{
			DailyLimitSeconds: defaultDailyLimitSeconds,
		},
		Acquisition: Acquisition{
			Binary:         defaultYtDlpBinary,
			FFmpegBinary:   defaultFFmpegBinary,
			TimeoutSeconds: defaultAcquisitionTimeout,
		},
		Transcription: Transcription{
			Binary:         defaultWhisperBinary,
			Model:          defaultWhisperModel,
			Language:       defaultWhisperLanguage,
			TimeoutSeconds: defaultTranscriptionTimeout,
		},
		Translation: Translation{
			Provider:         defaultTranslationProvider,
			Temperature:      defaultTranslationTemperature,
			TimeoutSeconds:   defaultTranslationTimeout,
			RetryMaxAttempts: defaultTranslationRetryAttempts,
			SourceLanguage:   defaultSourceLanguage,
			TargetLanguage:   defaultTargetLanguage,
		},
		Fallback: Fallback{
			URL:            defaultFallbackURL,
			TimeoutSeconds: defaultFallbackTimeout,
		},
		Storage: Storage{
			Driver: defaultStorageDriver,
		},
		Events: Events{
			Topic:               defaultEventsTopic,
			WriteTimeoutSeconds: defaultEventsWriteTimeout,
		},
		Metrics: Metrics{
			Enabled: true,
			Path:    defaultMetricsPath,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Preload: Preload{
			TranslateConcurrency: defaultTranslateConcurrency,
			RecordDownloads:      true,
			MaxBodyBytes:         defaultPreloadMaxBodyBytes,
		},
	}
}
