// Package pgstore is the PostgreSQL usage ledger backend, selected with
// storage.driver = "postgres". It shares the table layout of the SQLite store
// so both satisfy usage.Store and preload.DownloadRecorder.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"farsisub/internal/config"
	"farsisub/internal/store"
	"farsisub/internal/usage"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS user_usage (
    id BIGSERIAL PRIMARY KEY,
    user_id TEXT NOT NULL,
    day DATE NOT NULL,
    seconds_used BIGINT NOT NULL DEFAULT 0 CHECK (seconds_used >= 0),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (user_id, day)
);
CREATE INDEX IF NOT EXISTS idx_user_usage_day ON user_usage(day);
CREATE TABLE IF NOT EXISTS downloads (
    id BIGSERIAL PRIMARY KEY,
    video_url TEXT NOT NULL,
    file_path TEXT NOT NULL,
    user_id TEXT NOT NULL DEFAULT '',
    request_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_downloads_created_at ON downloads(created_at);`

const upsertUsageSQL = `
INSERT INTO user_usage (user_id, day, seconds_used, updated_at)
VALUES ($1, $2::text::date, $3, now())
ON CONFLICT (user_id, day) DO UPDATE SET
    seconds_used = user_usage.seconds_used + EXCLUDED.seconds_used,
    updated_at = EXCLUDED.updated_at
RETURNING seconds_used`

// ErrMissingURL reports an empty storage.database_url.
var ErrMissingURL = errors.New("storage.database_url is required for the postgres driver")

// Store is a pgx connection pool holding the usage ledger.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects using cfg.Storage.DatabaseURL.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	return OpenURL(ctx, cfg.Storage.DatabaseURL)
}

// OpenURL connects to databaseURL, verifies the connection and creates the
// schema when missing.
func OpenURL(ctx context.Context, databaseURL string) (*Store, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, ErrMissingURL
	}
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// GetUsage returns the recorded seconds for user on day, 0 when no row exists.
func (s *Store) GetUsage(ctx context.Context, userID, day string) (int64, error) {
	var used int64
	err := s.pool.QueryRow(ctx,
		"SELECT seconds_used FROM user_usage WHERE user_id = $1 AND day = $2::text::date", userID, day).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select usage: %w", err)
	}
	return used, nil
}

// AddUsage adds seconds to the (user, day) row and returns the new total.
func (s *Store) AddUsage(ctx context.Context, userID, day string, seconds int64) (int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, upsertUsageSQL, userID, day, seconds).Scan(&total); err != nil {
		return 0, fmt.Errorf("upsert usage: %w", err)
	}
	return total, nil
}

// ResetUsage zeroes seconds_used for userID, or every row for usage.AllUsers.
func (s *Store) ResetUsage(ctx context.Context, userID string) (int64, error) {
	query := "UPDATE user_usage SET seconds_used = 0, updated_at = now() WHERE user_id = $1"
	args := []any{userID}
	if userID == usage.AllUsers {
		query = "UPDATE user_usage SET seconds_used = 0, updated_at = now()"
		args = nil
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset usage: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListUsage returns rows for day (all days when empty), newest day first.
func (s *Store) ListUsage(ctx context.Context, day string) ([]usage.Record, error) {
	query := "SELECT user_id, to_char(day, 'YYYY-MM-DD'), seconds_used, updated_at FROM user_usage"
	var args []any
	if day != "" {
		query += " WHERE day = $1::text::date"
		args = append(args, day)
	}
	query += " ORDER BY day DESC, user_id ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (usage.Record, error) {
		var rec usage.Record
		err := row.Scan(&rec.UserID, &rec.Day, &rec.SecondsUsed, &rec.UpdatedAt)
		rec.UpdatedAt = rec.UpdatedAt.UTC()
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan usage: %w", err)
	}
	return records, nil
}

// RecordDownload appends an audit row.
func (s *Store) RecordDownload(ctx context.Context, d store.Download) error {
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		"INSERT INTO downloads (video_url, file_path, user_id, request_id, created_at) VALUES ($1, $2, $3, $4, $5)",
		d.VideoURL, d.FilePath, d.UserID, d.RequestID, createdAt.UTC())
	if err != nil {
		return fmt.Errorf("insert download: %w", err)
	}
	return nil
}

// RecentDownloads returns up to limit audit rows, newest first.
func (s *Store) RecentDownloads(ctx context.Context, limit int) ([]store.Download, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		"SELECT id, video_url, file_path, user_id, request_id, created_at FROM downloads ORDER BY id DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Download, error) {
		var d store.Download
		err := row.Scan(&d.ID, &d.VideoURL, &d.FilePath, &d.UserID, &d.RequestID, &d.CreatedAt)
		d.CreatedAt = d.CreatedAt.UTC()
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan download: %w", err)
	}
	return out, nil
}
