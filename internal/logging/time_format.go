package logging

import "time"

// Console timestamps are UTC so they line up with usage day boundaries.
const logTimestampLayout = "2006-01-02 15:04:05Z"

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(logTimestampLayout)
}
