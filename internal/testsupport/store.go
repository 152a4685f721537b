package testsupport

import (
	"testing"
	"time"

	"farsisub/internal/config"
	"farsisub/internal/store"
	"farsisub/internal/usage"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustNewLedger opens a store and wraps it in a ledger pinned to now.
func MustNewLedger(t testing.TB, cfg *config.Config, now time.Time) (*usage.Ledger, *store.Store) {
	t.Helper()

	st := MustOpenStore(t, cfg)
	ledger := usage.NewLedger(st, cfg.Quota.DailyLimitSeconds, usage.WithClock(FixedClock(now)))
	return ledger, st
}

// FixedClock returns a clock that always reports ts.
func FixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
