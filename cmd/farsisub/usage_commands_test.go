package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"farsisub/internal/store"
	"farsisub/internal/testsupport"
)

func seedUsage(t *testing.T, env *cliTestEnv, rows map[string]map[string]int64) {
	t.Helper()
	st, err := store.Open(env.cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()
	for user, days := range rows {
		for day, seconds := range days {
			if _, err := st.AddUsage(context.Background(), user, day, seconds); err != nil {
				t.Fatalf("AddUsage: %v", err)
			}
		}
	}
}

func TestUsageShowTable(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithDailyLimit(7200))
	seedUsage(t, env, map[string]map[string]int64{
		"alice": {"2026-03-01": 1200, "2026-03-02": 60},
		"bob":   {"2026-03-01": 7200},
	})

	out, _, err := runCLI(t, []string{"usage", "show", "--day", "2026-03-01"}, env.configPath)
	if err != nil {
		t.Fatalf("usage show: %v", err)
	}
	requireContains(t, out, "alice")
	requireContains(t, out, "6000")
	requireContains(t, out, "bob")
	requireContains(t, out, "Daily limit: 7200 seconds")
	if strings.Contains(out, "2026-03-02") {
		t.Fatalf("other days should be filtered:\n%s", out)
	}
}

func TestUsageShowJSONAll(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithDailyLimit(100))
	seedUsage(t, env, map[string]map[string]int64{
		"alice": {"2026-03-01": 150, "2026-03-02": 40},
	})

	out, _, err := runCLI(t, []string{"usage", "show", "--all", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("usage show: %v", err)
	}
	var rows []usageRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for _, row := range rows {
		switch row.Day {
		case "2026-03-01":
			if row.Remaining != 0 {
				t.Fatalf("over-limit remaining should clamp to 0, got %d", row.Remaining)
			}
		case "2026-03-02":
			if row.Remaining != 60 {
				t.Fatalf("remaining = %d, want 60", row.Remaining)
			}
		default:
			t.Fatalf("unexpected day %q", row.Day)
		}
	}
}

func TestUsageShowEmptyAndInvalidDay(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"usage", "show", "--day", "2026-01-01"}, env.configPath)
	if err != nil {
		t.Fatalf("usage show: %v", err)
	}
	requireContains(t, out, "No usage recorded for 2026-01-01")

	if _, _, err := runCLI(t, []string{"usage", "show", "--day", "yesterday"}, env.configPath); err == nil {
		t.Fatal("expected invalid day to fail")
	}
	if _, _, err := runCLI(t, []string{"usage", "show", "--day", "2026-01-01", "--all"}, env.configPath); err == nil {
		t.Fatal("expected --day with --all to fail")
	}
}

func TestUsageReset(t *testing.T) {
	env := setupCLITestEnv(t)
	seedUsage(t, env, map[string]map[string]int64{
		"alice": {"2026-03-01": 10, "2026-03-02": 20},
		"bob":   {"2026-03-01": 30},
	})

	if _, _, err := runCLI(t, []string{"usage", "reset"}, env.configPath); err == nil {
		t.Fatal("expected reset without target to fail")
	}

	out, _, err := runCLI(t, []string{"usage", "reset", "--user", "alice"}, env.configPath)
	if err != nil {
		t.Fatalf("usage reset: %v", err)
	}
	requireContains(t, out, "Cleared 2 usage record(s) for alice")

	out, _, err = runCLI(t, []string{"usage", "reset", "--all"}, env.configPath)
	if err != nil {
		t.Fatalf("usage reset --all: %v", err)
	}
	requireContains(t, out, "Cleared 1 usage record(s) for all users")

	out, _, err = runCLI(t, []string{"usage", "show", "--all"}, env.configPath)
	if err != nil {
		t.Fatalf("usage show: %v", err)
	}
	requireContains(t, out, "No usage recorded")
}
