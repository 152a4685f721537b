package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"farsisub/internal/usage"
)

const upsertUsageSQL = `
INSERT INTO user_usage (user_id, day, seconds_used, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(user_id, day) DO UPDATE SET
    seconds_used = user_usage.seconds_used + excluded.seconds_used,
    updated_at = excluded.updated_at
RETURNING seconds_used`

// GetUsage returns the recorded seconds for user on day, 0 when no row exists.
func (s *Store) GetUsage(ctx context.Context, userID, day string) (int64, error) {
	var used int64
	err := s.scanRowWithRetry(ctx, []any{&used},
		"SELECT seconds_used FROM user_usage WHERE user_id = ? AND day = ?", userID, day)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select usage: %w", err)
	}
	return used, nil
}

// AddUsage adds seconds to the (user, day) row, creating it when absent, and
// returns the new total.
func (s *Store) AddUsage(ctx context.Context, userID, day string, seconds int64) (int64, error) {
	var total int64
	if err := s.scanRowWithRetry(ctx, []any{&total}, upsertUsageSQL, userID, day, seconds, s.timestamp()); err != nil {
		return 0, fmt.Errorf("upsert usage: %w", err)
	}
	return total, nil
}

// ResetUsage zeroes seconds_used for userID, or for every row when userID is
// usage.AllUsers.
func (s *Store) ResetUsage(ctx context.Context, userID string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if userID == usage.AllUsers {
		res, err = s.execWithRetry(ctx, "UPDATE user_usage SET seconds_used = 0, updated_at = ?", s.timestamp())
	} else {
		res, err = s.execWithRetry(ctx, "UPDATE user_usage SET seconds_used = 0, updated_at = ? WHERE user_id = ?", s.timestamp(), userID)
	}
	if err != nil {
		return 0, fmt.Errorf("reset usage: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset usage rows: %w", err)
	}
	return rows, nil
}

// ListUsage returns rows for day (all days when empty), newest day first.
func (s *Store) ListUsage(ctx context.Context, day string) ([]usage.Record, error) {
	ctx = ensureContext(ctx)
	query := "SELECT user_id, day, seconds_used, updated_at FROM user_usage"
	var args []any
	if day != "" {
		query += " WHERE day = ?"
		args = append(args, day)
	}
	query += " ORDER BY day DESC, user_id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	defer rows.Close()

	var records []usage.Record
	for rows.Next() {
		var (
			rec       usage.Record
			updatedAt string
		)
		if err := rows.Scan(&rec.UserID, &rec.Day, &rec.SecondsUsed, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		rec.UpdatedAt = parseTimestamp(updatedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage: %w", err)
	}
	return records, nil
}
