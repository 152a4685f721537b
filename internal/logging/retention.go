package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PruneTarget names a directory, a filename glob, and the paths to keep.
type PruneTarget struct {
	Dir     string
	Pattern string
	Exclude []string
	// Kind labels the files in log events ("log", "audio").
	Kind string
}

// PruneOlderThan removes files matching targets whose mtime is older than
// maxAge and returns how many were removed. A non-positive maxAge is a no-op.
func PruneOlderThan(logger *slog.Logger, maxAge time.Duration, targets ...PruneTarget) int {
	if maxAge <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, target := range targets {
		dir := strings.TrimSpace(target.Dir)
		if dir == "" {
			continue
		}
		keep := make(map[string]struct{}, len(target.Exclude))
		for _, path := range target.Exclude {
			if abs, err := filepath.Abs(strings.TrimSpace(path)); err == nil {
				keep[abs] = struct{}{}
			}
		}
		kind := target.Kind
		if kind == "" {
			kind = "file"
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			if pat := strings.TrimSpace(target.Pattern); pat != "" {
				if matched, err := filepath.Match(pat, entry.Name()); err != nil || !matched {
					continue
				}
			}
			fullPath, err := filepath.Abs(filepath.Join(dir, entry.Name()))
			if err != nil {
				continue
			}
			if _, skip := keep[fullPath]; skip {
				continue
			}
			info, err := entry.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(fullPath); err != nil {
				WarnWithContext(logger, "prune failed; file remains", kind+"_prune_failed",
					String("path", fullPath),
					Error(err),
					String(FieldErrorHint, "check ownership of "+dir),
					String(FieldImpact, "stale "+kind+" file keeps using disk"),
				)
				continue
			}
			removed++
			if logger != nil {
				logger.Info(kind+" pruned",
					String("path", fullPath),
					Duration("age", time.Since(info.ModTime()).Round(time.Second)),
					String(FieldEventType, kind+"_pruned"),
				)
			}
		}
	}
	return removed
}

// CleanupOldLogs prunes log files older than retentionDays. Zero disables it.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...PruneTarget) int {
	for i := range targets {
		if targets[i].Kind == "" {
			targets[i].Kind = "log"
		}
	}
	return PruneOlderThan(logger, time.Duration(retentionDays)*24*time.Hour, targets...)
}
