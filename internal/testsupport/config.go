package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"farsisub/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CookiesFile = filepath.Join(base, "data", "cookies.txt")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Storage.Path = filepath.Join(base, "data", "farsisub.db")
	cfgVal.Transcription.Model = filepath.Join(base, "models", "ggml-base.bin")
	cfgVal.Translation.APIKey = "test"
	cfgVal.Translation.BaseURL = "http://127.0.0.1:0/v1/chat/completions"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDailyLimit overrides the per-user quota.
func WithDailyLimit(seconds int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Quota.DailyLimitSeconds = seconds
	}
}

// WithTranslationURL points the primary translation backend at url.
func WithTranslationURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Translation.BaseURL = url
	}
}

// WithAPIToken requires a bearer token on mutating endpoints.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithStubbedBinaries writes stub executables that exit 0 for the provided
// names and prepends them to PATH. If names is empty, the default external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg", "whisper-cli"}
		}
		for _, name := range names {
			writeStub(b.t, b.baseDir, name, "#!/bin/sh\nexit 0\n")
		}
	}
}

// WithStubScript writes a named stub executable with the given shell body and
// prepends its directory to PATH.
func WithStubScript(name, script string) ConfigOption {
	return func(b *configBuilder) {
		writeStub(b.t, b.baseDir, name, script)
	}
}

func writeStub(t testing.TB, baseDir, name, script string) {
	t.Helper()
	binDir := filepath.Join(baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(binDir, name)
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}

	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
