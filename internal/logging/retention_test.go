package logging_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"farsisub/internal/logging"
)

func writeAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if age > 0 {
		ts := time.Now().Add(-age)
		if err := os.Chtimes(path, ts, ts); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
}

func TestCleanupOldLogsRemovesExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "farsisub-old.log")
	fresh := filepath.Join(dir, "farsisub-fresh.log")
	current := filepath.Join(dir, "farsisub.log")
	writeAged(t, old, 10*24*time.Hour)
	writeAged(t, fresh, 0)
	writeAged(t, current, 10*24*time.Hour)

	removed := logging.CleanupOldLogs(logging.NewNop(), 5, logging.PruneTarget{
		Dir:     dir,
		Pattern: "farsisub*.log",
		Exclude: []string{current},
	})

	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, path := range []string{fresh, current} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
}

func TestPruneOlderThanMatchesPatternOnly(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "audio_1700000000.wav")
	other := filepath.Join(dir, "notes.txt")
	writeAged(t, stale, 3*time.Hour)
	writeAged(t, other, 3*time.Hour)

	removed := logging.PruneOlderThan(logging.NewNop(), time.Hour, logging.PruneTarget{
		Dir:     dir,
		Pattern: "audio_*.wav",
		Kind:    "audio",
	})
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(other); err != nil {
		t.Fatalf("non-matching file removed: %v", err)
	}
}

func TestPruneDisabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "farsisub-old.log")
	writeAged(t, path, 100*24*time.Hour)

	if removed := logging.CleanupOldLogs(logging.NewNop(), 0, logging.PruneTarget{Dir: dir}); removed != 0 {
		t.Fatalf("retention 0 should disable pruning, removed %d", removed)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file should remain: %v", err)
	}
}
