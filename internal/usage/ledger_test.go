package usage_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"farsisub/internal/services"
	"farsisub/internal/testsupport"
	"farsisub/internal/usage"
)

var fixedNow = time.Date(2025, 3, 14, 23, 30, 0, 0, time.FixedZone("IRST", 3*3600+1800))

func TestTodayUsesUTCDay(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ledger, _ := testsupport.MustNewLedger(t, cfg, fixedNow)
	// 23:30 +03:30 is 20:00 UTC on the same date.
	if got := ledger.Today(); got != "2025-03-14" {
		t.Fatalf("Today() = %q", got)
	}
	late := time.Date(2025, 3, 15, 2, 0, 0, 0, time.FixedZone("IRST", 3*3600+1800))
	if got := usage.DayKey(late); got != "2025-03-14" {
		t.Fatalf("DayKey(early local morning) = %q, want previous UTC day", got)
	}
}

func TestGetUsageDefaultsToZero(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ledger, _ := testsupport.MustNewLedger(t, cfg, fixedNow)

	used, err := ledger.GetUsage(context.Background(), "nobody", "2025-03-14")
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}
	if used != 0 {
		t.Fatalf("expected 0 for unknown user, got %d", used)
	}
}

func TestAddUsageAccumulatesAndPartitionsByDay(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ledger, _ := testsupport.MustNewLedger(t, cfg, fixedNow)
	ctx := context.Background()

	if total, err := ledger.AddUsage(ctx, "u1", "2025-03-14", 30); err != nil || total != 30 {
		t.Fatalf("first add: total=%d err=%v", total, err)
	}
	if total, err := ledger.AddUsage(ctx, "u1", "2025-03-14", 12); err != nil || total != 42 {
		t.Fatalf("second add: total=%d err=%v", total, err)
	}
	if total, err := ledger.AddUsage(ctx, "u1", "2025-03-14", 0); err != nil || total != 42 {
		t.Fatalf("zero add: total=%d err=%v", total, err)
	}
	if total, err := ledger.AddUsage(ctx, "u1", "2025-03-15", 5); err != nil || total != 5 {
		t.Fatalf("next day: total=%d err=%v", total, err)
	}
	if used, _ := ledger.GetUsage(ctx, "u1", "2025-03-14"); used != 42 {
		t.Fatalf("expected first day untouched at 42, got %d", used)
	}
	if used, _ := ledger.GetUsage(ctx, "u2", "2025-03-14"); used != 0 {
		t.Fatalf("expected other user at 0, got %d", used)
	}
}

func TestAddUsageRejectsInvalidInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ledger, _ := testsupport.MustNewLedger(t, cfg, fixedNow)
	ctx := context.Background()

	cases := []struct {
		name    string
		user    string
		day     string
		seconds int64
	}{
		{"negative", "u1", "2025-03-14", -1},
		{"blank user", " ", "2025-03-14", 1},
		{"bad day", "u1", "14/03/2025", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ledger.AddUsage(ctx, tc.user, tc.day, tc.seconds)
			if !errors.Is(err, services.ErrInvalidRequest) {
				t.Fatalf("expected invalid request, got %v", err)
			}
		})
	}
	if used, _ := ledger.GetUsage(ctx, "u1", "2025-03-14"); used != 0 {
		t.Fatalf("rejected adds must not change usage, got %d", used)
	}
}

func TestConcurrentAddUsageLosesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ledger, _ := testsupport.MustNewLedger(t, cfg, fixedNow)
	ctx := context.Background()

	const workers = 16
	const perWorker = 5
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := ledger.AddUsage(ctx, "shared", "2025-03-14", 3); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("AddUsage: %v", err)
	}

	used, err := ledger.GetUsage(ctx, "shared", "2025-03-14")
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}
	if want := int64(workers * perWorker * 3); used != want {
		t.Fatalf("expected %d after concurrent adds, got %d", want, used)
	}
}

func TestResetUsage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ledger, _ := testsupport.MustNewLedger(t, cfg, fixedNow)
	ctx := context.Background()

	for _, user := range []string{"a", "b"} {
		if _, err := ledger.AddUsage(ctx, user, "2025-03-14", 100); err != nil {
			t.Fatalf("seed %s: %v", user, err)
		}
	}

	rows, err := ledger.ResetUsage(ctx, "a")
	if err != nil || rows != 1 {
		t.Fatalf("reset a: rows=%d err=%v", rows, err)
	}
	if used, _ := ledger.GetUsage(ctx, "a", "2025-03-14"); used != 0 {
		t.Fatalf("expected a reset, got %d", used)
	}
	if used, _ := ledger.GetUsage(ctx, "b", "2025-03-14"); used != 100 {
		t.Fatalf("expected b untouched, got %d", used)
	}

	rows, err = ledger.ResetUsage(ctx, usage.AllUsers)
	if err != nil || rows != 2 {
		t.Fatalf("reset all: rows=%d err=%v", rows, err)
	}
	if used, _ := ledger.GetUsage(ctx, "b", "2025-03-14"); used != 0 {
		t.Fatalf("expected b reset, got %d", used)
	}
	if _, err := ledger.ResetUsage(ctx, ""); !errors.Is(err, services.ErrInvalidRequest) {
		t.Fatalf("expected invalid request for blank user, got %v", err)
	}
}

func TestSnapshotClampsRemaining(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDailyLimit(60))
	ledger, _ := testsupport.MustNewLedger(t, cfg, fixedNow)
	ctx := context.Background()

	if _, err := ledger.AddUsage(ctx, "u", ledger.Today(), 45); err != nil {
		t.Fatalf("AddUsage: %v", err)
	}
	snap, err := ledger.Snapshot(ctx, "u")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Used != 45 || snap.Limit != 60 || snap.Remaining != 15 || snap.Day != "2025-03-14" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if _, err := ledger.AddUsage(ctx, "u", ledger.Today(), 30); err != nil {
		t.Fatalf("AddUsage: %v", err)
	}
	snap, _ = ledger.Snapshot(ctx, "u")
	if snap.Remaining != 0 || snap.Used != 75 {
		t.Fatalf("expected remaining clamped to 0, got %+v", snap)
	}
	if !ledger.Exhausted(snap.Used) {
		t.Fatal("expected exhausted")
	}
}

type brokenStore struct{}

func (brokenStore) GetUsage(context.Context, string, string) (int64, error) {
	return 0, errors.New("disk I/O error")
}

func (brokenStore) AddUsage(context.Context, string, string, int64) (int64, error) {
	return 0, errors.New("disk I/O error")
}

func (brokenStore) ResetUsage(context.Context, string) (int64, error) {
	return 0, errors.New("disk I/O error")
}

func (brokenStore) ListUsage(context.Context, string) ([]usage.Record, error) {
	return nil, errors.New("disk I/O error")
}

func TestStoreFailuresAreLedgerUnavailable(t *testing.T) {
	ledger := usage.NewLedger(brokenStore{}, 100, usage.WithClock(testsupport.FixedClock(fixedNow)))
	ctx := context.Background()

	if used, err := ledger.GetUsage(ctx, "u", "2025-03-14"); !errors.Is(err, services.ErrLedgerUnavailable) || used != 0 {
		t.Fatalf("GetUsage: used=%d err=%v", used, err)
	}
	if _, err := ledger.AddUsage(ctx, "u", "2025-03-14", 1); !errors.Is(err, services.ErrLedgerUnavailable) {
		t.Fatalf("AddUsage: %v", err)
	}
	if _, err := ledger.Snapshot(ctx, "u"); !errors.Is(err, services.ErrLedgerUnavailable) {
		t.Fatalf("Snapshot: %v", err)
	}
	if _, err := ledger.List(ctx, ""); !errors.Is(err, services.ErrLedgerUnavailable) {
		t.Fatalf("List: %v", err)
	}
}
