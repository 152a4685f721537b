package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"farsisub/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckWhisperModel(t *testing.T) {
	model := filepath.Join(t.TempDir(), "ggml-base.bin")
	if res := CheckWhisperModel(model); res.Passed {
		t.Fatal("expected failure for missing model")
	}
	if err := os.WriteFile(model, []byte("ggml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if res := CheckWhisperModel(model); !res.Passed {
		t.Fatalf("expected pass, got: %s", res.Detail)
	}
	if res := CheckWhisperModel(""); res.Passed {
		t.Fatal("expected failure for unconfigured model")
	}
}

func TestCheckCookiesNeverFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	if res := CheckCookies(path); !res.Passed || res.Detail != "not uploaded" {
		t.Fatalf("unexpected result %+v", res)
	}
	if err := os.WriteFile(path, []byte(".youtube.com\tTRUE\t/\tTRUE\t0\tPREF\tv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if res := CheckCookies(path); !res.Passed || !strings.HasPrefix(res.Detail, "uploaded") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestCheckLibreTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/languages" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`[{"code":"fa"}]`))
	}))
	defer srv.Close()

	if res := CheckLibreTranslate(context.Background(), srv.URL+"/translate"); !res.Passed {
		t.Fatalf("expected pass, got: %s", res.Detail)
	}
	if res := CheckLibreTranslate(context.Background(), srv.URL+"/v2/translate"); res.Passed {
		t.Fatal("expected failure for unknown path")
	}
	if res := CheckLibreTranslate(context.Background(), ""); res.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReportsMissingBinaries(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.CookiesFile = filepath.Join(cfg.Paths.DataDir, "cookies.txt")
	cfg.Transcription.Model = filepath.Join(cfg.Paths.DataDir, "missing.bin")
	cfg.Translation.APIKey = "key"
	cfg.Acquisition.Binary = "farsisub-missing-ytdlp"
	cfg.Fallback.Enabled = false

	results := RunAll(context.Background(), &cfg)
	failed := Failed(results)
	names := make(map[string]bool)
	for _, r := range failed {
		names[r.Name] = true
	}
	if !names["yt-dlp"] || !names["Whisper model"] {
		t.Fatalf("expected yt-dlp and model failures, got %+v", failed)
	}
	if names["Data directory"] || names["Work directory"] || names["YouTube cookies"] {
		t.Fatalf("unexpected failures %+v", failed)
	}
	if names["Translation (deepseek)"] {
		t.Fatalf("translation credentials should pass, got %+v", failed)
	}
}
