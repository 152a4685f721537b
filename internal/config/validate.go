package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateQuota(); err != nil {
		return err
	}
	if err := c.validateAcquisition(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateFallback(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	if c.Preload.TranslateConcurrency > 16 {
		return errors.New("preload.translate_concurrency must be between 1 and 16")
	}
	return nil
}

func (c *Config) validateQuota() error {
	if c.Quota.DailyLimitSeconds <= 0 {
		return errors.New("quota.daily_limit_seconds must be positive (or set MAX_SECONDS_PER_DAY)")
	}
	return nil
}

func (c *Config) validateAcquisition() error {
	proxy := c.Acquisition.Proxy
	if proxy == "" || proxy == ProxyAuto {
		return nil
	}
	parsed, err := url.Parse(proxy)
	if err != nil {
		return fmt.Errorf("acquisition.proxy: %w", err)
	}
	switch parsed.Scheme {
	case "http", "https", "socks4", "socks5", "socks5h":
	default:
		return fmt.Errorf("acquisition.proxy must be %q or a http(s)/socks URL, got %q", ProxyAuto, proxy)
	}
	if parsed.Host == "" {
		return fmt.Errorf("acquisition.proxy %q is missing a host", proxy)
	}
	return nil
}

func (c *Config) validateTranslation() error {
	switch c.Translation.Provider {
	case ProviderDeepSeek, ProviderOpenAI:
	default:
		return fmt.Errorf("translation.provider must be %q or %q, got %q", ProviderDeepSeek, ProviderOpenAI, c.Translation.Provider)
	}
	if c.Translation.Temperature > 2 {
		return errors.New("translation.temperature must be between 0 and 2")
	}
	if c.Translation.RetryMaxAttempts > 10 {
		return errors.New("translation.retry_max_attempts must be between 1 and 10")
	}
	if c.Translation.SourceLanguage == c.Translation.TargetLanguage {
		return errors.New("translation.source_language and translation.target_language must differ")
	}
	return nil
}

// ValidateTranslationCredentials reports a missing API key for the primary
// backend. The daemon requires it; CLI commands that never translate do not.
func (c *Config) ValidateTranslationCredentials() error {
	if c.Translation.APIKey != "" {
		return nil
	}
	envName := "DEEPSEEK_API_KEY"
	if c.Translation.Provider == ProviderOpenAI {
		envName = "OPENAI_API_KEY"
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("translation.api_key is required. Set %s env var or edit %s (create with 'farsisub config init')", envName, defaultPath)
}

func (c *Config) validateFallback() error {
	if !c.Fallback.Enabled {
		return nil
	}
	parsed, err := url.Parse(c.Fallback.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("fallback.url must be an absolute URL when fallback.enabled is true, got %q", c.Fallback.URL)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return errors.New("storage.path must be set for the sqlite driver")
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("storage.database_url must be set for the postgres driver (or set FARSISUB_DATABASE_URL)")
		}
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Storage.Driver)
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	if len(c.Events.Brokers) == 0 {
		return errors.New("events.brokers must include at least one broker when events.enabled is true")
	}
	return nil
}
