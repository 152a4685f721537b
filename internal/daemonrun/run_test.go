package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"farsisub/internal/config"
	"farsisub/internal/logging"
	"farsisub/internal/services/llm"
	"farsisub/internal/services/openaichat"
	"farsisub/internal/testsupport"
)

func TestBuildWiresSQLiteRuntime(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Fallback.Enabled = true

	rt, err := Build(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { rt.Close() })

	if rt.Ledger.Limit() != cfg.Quota.DailyLimitSeconds {
		t.Fatalf("ledger limit = %d", rt.Ledger.Limit())
	}
	if rt.Events.Enabled() {
		t.Fatal("events should be log-only without brokers")
	}
	if _, err := os.Stat(cfg.Storage.Path); err != nil {
		t.Fatalf("sqlite database not created: %v", err)
	}
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Storage.Driver = "mysql"
	if _, err := OpenStore(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "mysql") {
		t.Fatalf("expected unsupported driver error, got %v", err)
	}
}

func TestOpenStorePostgresNeedsURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Storage.Driver = config.DriverPostgres
	cfg.Storage.DatabaseURL = ""
	if _, err := OpenStore(context.Background(), cfg); err == nil {
		t.Fatal("expected error without database_url")
	}
}

func TestPrimaryBackendFollowsProvider(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, ok := PrimaryBackend(cfg).(*llm.Client); !ok {
		t.Fatal("deepseek provider should use the llm client")
	}
	cfg.Translation.Provider = config.ProviderOpenAI
	if _, ok := PrimaryBackend(cfg).(*openaichat.Client); !ok {
		t.Fatal("openai provider should use the go-openai client")
	}
}

func TestEnsureCurrentLogPointer(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "farsisub-1.log")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := ensureCurrentLogPointer(dir, target); err != nil {
			t.Fatalf("ensureCurrentLogPointer: %v", err)
		}
	}
	data, err := os.ReadFile(filepath.Join(dir, "farsisub.log"))
	if err != nil || string(data) != "x" {
		t.Fatalf("pointer content = %q, %v", data, err)
	}
}

func TestStaleWorkTargetsPruneCrashLeftovers(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-2 * staleWorkAge)
	stale := []string{
		"download_0b7e.wav",
		"download_0b7e.webm.part",
		"audio_0b7e.wav",
		"whisper_5c1d.json",
	}
	for _, name := range stale {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := os.Chtimes(path, old, old); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
	}
	fresh := filepath.Join(dir, "audio_live.wav")
	if err := os.WriteFile(fresh, []byte("x"), 0o644); err != nil {
		t.Fatalf("write fresh: %v", err)
	}
	unrelated := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(unrelated, []byte("x"), 0o644); err != nil {
		t.Fatalf("write unrelated: %v", err)
	}
	if err := os.Chtimes(unrelated, old, old); err != nil {
		t.Fatalf("chtimes unrelated: %v", err)
	}

	removed := logging.PruneOlderThan(nil, staleWorkAge, staleWorkTargets(dir)...)
	if removed != len(stale) {
		t.Fatalf("removed = %d, want %d", removed, len(stale))
	}
	for _, name := range stale {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Fatalf("%s should be pruned, stat err = %v", name, err)
		}
	}
	for _, path := range []string{fresh, unrelated} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("%s should survive: %v", filepath.Base(path), err)
		}
	}
}
