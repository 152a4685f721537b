package ytdlp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"farsisub/internal/config"
	"farsisub/internal/services"
	"farsisub/internal/services/execx"
	"farsisub/internal/testsupport"
)

type recordingRunner struct {
	mu    sync.Mutex
	calls [][]string
	fail  string
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) (execx.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string{name}, args...))
	r.mu.Unlock()
	if name == r.fail {
		return execx.Result{}, &execx.ExitError{Name: name, Err: errors.New("exit status 1"), Stderr: "ERROR: Video unavailable"}
	}
	var out string
	switch name {
	case "yt-dlp":
		out = strings.Replace(argAfter(args, "-o"), ".%(ext)s", ".wav", 1)
	case "ffmpeg":
		out = args[len(args)-1]
	}
	if out != "" {
		if err := os.WriteFile(out, []byte("RIFF"), 0o644); err != nil {
			return execx.Result{}, err
		}
	}
	return execx.Result{}, nil
}

func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

type staticDetector string

func (s staticDetector) Detect(context.Context) string { return string(s) }

func newTestAcquirer(t *testing.T, runner execx.Runner, mutate func(*Config)) (*Acquirer, Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("yt-dlp", "ffmpeg"))
	acfg := ConfigFrom(cfg)
	if mutate != nil {
		mutate(&acfg)
	}
	return NewAcquirer(acfg, WithRunner(runner), WithProxyDetector(staticDetector("socks5://127.0.0.1:1080"))), acfg
}

func TestAcquireProducesNormalizedAudio(t *testing.T) {
	runner := &recordingRunner{}
	acquirer, acfg := newTestAcquirer(t, runner, nil)

	path, err := acquirer.Acquire(context.Background(), "https://www.youtube.com/watch?v=abc&list=PL123&t=42s", "user-1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if filepath.Dir(path) != acfg.WorkDir || !strings.HasPrefix(filepath.Base(path), "audio_") {
		t.Fatalf("unexpected audio path %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected audio file: %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected yt-dlp then ffmpeg, got %v", runner.calls)
	}
	download := runner.calls[0]
	if got := download[len(download)-1]; got != "https://www.youtube.com/watch?v=abc" {
		t.Fatalf("expected cleaned url, got %q", got)
	}
	if slices.Contains(download, "--cookies") {
		t.Fatal("cookies must not be passed when no cookie file exists")
	}
	if slices.Contains(download, "--proxy") {
		t.Fatal("proxy must not be passed when none is configured")
	}
	if argAfter(download, "--ffmpeg-location") == "" {
		t.Fatal("expected --ffmpeg-location to point at the ffmpeg directory")
	}
	normalize := runner.calls[1]
	if argAfter(normalize, "-ar") != "16000" || argAfter(normalize, "-ac") != "1" || argAfter(normalize, "-c:a") != "pcm_s16le" {
		t.Fatalf("unexpected ffmpeg args %v", normalize)
	}
	entries, _ := os.ReadDir(acfg.WorkDir)
	if len(entries) != 1 {
		t.Fatalf("expected only the normalized file to remain, found %d entries", len(entries))
	}
}

func TestAcquirePassesCookiesAndDetectedProxy(t *testing.T) {
	runner := &recordingRunner{}
	acquirer, acfg := newTestAcquirer(t, runner, func(c *Config) { c.Proxy = config.ProxyAuto })
	if err := os.MkdirAll(filepath.Dir(acfg.CookiesFile), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(acfg.CookiesFile, []byte("# Netscape HTTP Cookie File\n"), 0o600); err != nil {
		t.Fatalf("write cookies: %v", err)
	}

	if _, err := acquirer.Acquire(context.Background(), "https://youtu.be/abc", "user-1"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	download := runner.calls[0]
	if argAfter(download, "--cookies") != acfg.CookiesFile {
		t.Fatalf("expected cookies flag, got %v", download)
	}
	if argAfter(download, "--proxy") != "socks5://127.0.0.1:1080" {
		t.Fatalf("expected detected proxy, got %v", download)
	}
}

func TestAcquireExplicitProxyWins(t *testing.T) {
	runner := &recordingRunner{}
	acquirer, _ := newTestAcquirer(t, runner, func(c *Config) { c.Proxy = "http://10.0.0.2:3128" })
	if _, err := acquirer.Acquire(context.Background(), "https://youtu.be/abc", "u"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if got := argAfter(runner.calls[0], "--proxy"); got != "http://10.0.0.2:3128" {
		t.Fatalf("proxy = %q", got)
	}
}

func TestAcquireDownloadFailure(t *testing.T) {
	runner := &recordingRunner{fail: "yt-dlp"}
	acquirer, acfg := newTestAcquirer(t, runner, nil)

	_, err := acquirer.Acquire(context.Background(), "https://youtu.be/abc", "u")
	if !errors.Is(err, services.ErrDownloadFailed) {
		t.Fatalf("expected download failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "Video unavailable") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
	entries, _ := os.ReadDir(acfg.WorkDir)
	if len(entries) != 0 {
		t.Fatalf("expected no leftovers in work dir, found %d", len(entries))
	}
}

func TestAcquireMissingBinaryIsDownloadFailure(t *testing.T) {
	runner := &recordingRunner{}
	acquirer, _ := newTestAcquirer(t, runner, func(c *Config) { c.Binary = "farsisub-missing-yt-dlp" })

	_, err := acquirer.Acquire(context.Background(), "https://youtu.be/abc", "u")
	if !errors.Is(err, services.ErrDownloadFailed) {
		t.Fatalf("expected download failure, got %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("runner must not be invoked when binaries are missing")
	}
}

func TestAcquireRejectsNonHTTPURL(t *testing.T) {
	acquirer, _ := newTestAcquirer(t, &recordingRunner{}, nil)
	if _, err := acquirer.Acquire(context.Background(), "file:///etc/passwd", "u"); !errors.Is(err, services.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestCleanURL(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/watch?v=x":                  "https://www.youtube.com/watch?v=x",
		"https://www.youtube.com/watch?v=x&list=PLabc":       "https://www.youtube.com/watch?v=x",
		"https://www.youtube.com/watch?v=x&t=90s":            "https://www.youtube.com/watch?v=x",
		"https://www.youtube.com/watch?v=x&t=90&list=P&ab=1": "https://www.youtube.com/watch?v=x&ab=1",
		"  https://youtu.be/x  ":                             "https://youtu.be/x",
	}
	for in, want := range cases {
		if got := CleanURL(in); got != want {
			t.Errorf("CleanURL(%q) = %q, want %q", in, got, want)
		}
	}
}
