package usage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"farsisub/internal/logging"
	"farsisub/internal/services"
)

// DayLayout formats usage day keys (UTC calendar day).
const DayLayout = "2006-01-02"

// AllUsers selects every user for ResetUsage.
const AllUsers = "*"

// Record is one persisted usage row.
type Record struct {
	UserID      string    `json:"userId"`
	Day         string    `json:"day"`
	SecondsUsed int64     `json:"secondsUsed"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Snapshot is a user's usage view for one day.
type Snapshot struct {
	Day       string `json:"day"`
	Used      int64  `json:"used"`
	Limit     int64  `json:"limit"`
	Remaining int64  `json:"remaining"`
}

// Store persists usage records. AddUsage must be atomic per (user, day) and
// return the post-increment total.
type Store interface {
	GetUsage(ctx context.Context, userID, day string) (int64, error)
	AddUsage(ctx context.Context, userID, day string, seconds int64) (int64, error)
	ResetUsage(ctx context.Context, userID string) (int64, error)
	ListUsage(ctx context.Context, day string) ([]Record, error)
}

// Ledger enforces the daily quota on top of a Store.
type Ledger struct {
	store  Store
	limit  int64
	now    func() time.Time
	locks  *keyedMutex
	logger *slog.Logger
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used to derive today's key.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLedger constructs a ledger with the given daily limit in seconds.
func NewLedger(store Store, limit int64, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		limit:  limit,
		now:    time.Now,
		locks:  newKeyedMutex(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	l.logger = logging.NewComponentLogger(l.logger, "usage")
	return l
}

// Limit returns the configured daily allowance in seconds.
func (l *Ledger) Limit() int64 {
	return l.limit
}

// Today returns the current UTC day key.
func (l *Ledger) Today() string {
	return DayKey(l.now())
}

// DayKey formats t as a usage day key in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// GetUsage returns the seconds recorded for user on day, 0 when absent.
func (l *Ledger) GetUsage(ctx context.Context, userID, day string) (int64, error) {
	if err := validateKey(userID, day); err != nil {
		return 0, err
	}
	used, err := l.store.GetUsage(ctx, userID, day)
	if err != nil {
		return 0, services.Wrap(services.ErrLedgerUnavailable, "usage", "get", "read usage", err)
	}
	return used, nil
}

// AddUsage atomically adds seconds to the user's record for day and returns
// the new total.
func (l *Ledger) AddUsage(ctx context.Context, userID, day string, seconds int64) (int64, error) {
	if err := validateKey(userID, day); err != nil {
		return 0, err
	}
	if seconds < 0 {
		return 0, services.Wrap(services.ErrInvalidRequest, "usage", "add", fmt.Sprintf("seconds must be >= 0, got %d", seconds), nil)
	}

	unlock := l.locks.Lock(userID + "\x00" + day)
	defer unlock()

	total, err := l.store.AddUsage(ctx, userID, day, seconds)
	if err != nil {
		return 0, services.Wrap(services.ErrLedgerUnavailable, "usage", "add", "record usage", err)
	}
	l.logger.Debug("usage recorded",
		logging.String(logging.FieldUserID, userID),
		logging.String("day", day),
		logging.Int64("added_seconds", seconds),
		logging.Int64("used_seconds", total),
	)
	return total, nil
}

// ResetUsage zeroes usage for one user, or for everyone when userID is
// AllUsers. It returns the number of records touched.
func (l *Ledger) ResetUsage(ctx context.Context, userID string) (int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, services.Wrap(services.ErrInvalidRequest, "usage", "reset", "user id required (use * for all users)", nil)
	}
	rows, err := l.store.ResetUsage(ctx, userID)
	if err != nil {
		return 0, services.Wrap(services.ErrLedgerUnavailable, "usage", "reset", "reset usage", err)
	}
	l.logger.Info("usage reset",
		logging.String(logging.FieldUserID, userID),
		logging.Int64("rows", rows),
		logging.String(logging.FieldEventType, "usage_reset"),
	)
	return rows, nil
}

// List returns persisted records for day, or every record when day is empty.
func (l *Ledger) List(ctx context.Context, day string) ([]Record, error) {
	if day != "" {
		if _, err := time.Parse(DayLayout, day); err != nil {
			return nil, services.Wrap(services.ErrInvalidRequest, "usage", "list", fmt.Sprintf("day %q must be YYYY-MM-DD", day), nil)
		}
	}
	records, err := l.store.ListUsage(ctx, day)
	if err != nil {
		return nil, services.Wrap(services.ErrLedgerUnavailable, "usage", "list", "list usage", err)
	}
	return records, nil
}

// Snapshot returns today's usage view for user.
func (l *Ledger) Snapshot(ctx context.Context, userID string) (Snapshot, error) {
	day := l.Today()
	used, err := l.GetUsage(ctx, userID, day)
	if err != nil {
		return Snapshot{Day: day, Limit: l.limit}, err
	}
	return l.SnapshotOf(day, used), nil
}

// SnapshotOf builds a view from a known usage total.
func (l *Ledger) SnapshotOf(day string, used int64) Snapshot {
	remaining := l.limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Snapshot{Day: day, Used: used, Limit: l.limit, Remaining: remaining}
}

// Exhausted reports whether used has reached the daily limit.
func (l *Ledger) Exhausted(used int64) bool {
	return used >= l.limit
}

func validateKey(userID, day string) error {
	if strings.TrimSpace(userID) == "" {
		return services.Wrap(services.ErrInvalidRequest, "usage", "validate", "user id required", nil)
	}
	if _, err := time.Parse(DayLayout, day); err != nil {
		return services.Wrap(services.ErrInvalidRequest, "usage", "validate", fmt.Sprintf("day %q must be YYYY-MM-DD", day), nil)
	}
	return nil
}
