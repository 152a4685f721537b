package store

import (
	"context"
	"fmt"
	"time"
)

// Download is one audit row for an acquired audio file.
type Download struct {
	ID        int64     `json:"id"`
	VideoURL  string    `json:"videoUrl"`
	FilePath  string    `json:"filePath"`
	UserID    string    `json:"userId"`
	RequestID string    `json:"requestId"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecordDownload appends an audit row.
func (s *Store) RecordDownload(ctx context.Context, d Download) error {
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err := s.execWithRetry(ctx,
		"INSERT INTO downloads (video_url, file_path, user_id, request_id, created_at) VALUES (?, ?, ?, ?, ?)",
		d.VideoURL, d.FilePath, d.UserID, d.RequestID, createdAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("insert download: %w", err)
	}
	return nil
}

// RecentDownloads returns up to limit audit rows, newest first.
func (s *Store) RecentDownloads(ctx context.Context, limit int) ([]Download, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, video_url, file_path, user_id, request_id, created_at FROM downloads ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer rows.Close()

	var out []Download
	for rows.Next() {
		var (
			d         Download
			createdAt string
		)
		if err := rows.Scan(&d.ID, &d.VideoURL, &d.FilePath, &d.UserID, &d.RequestID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan download: %w", err)
		}
		d.CreatedAt = parseTimestamp(createdAt)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate downloads: %w", err)
	}
	return out, nil
}
