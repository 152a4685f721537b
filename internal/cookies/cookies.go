// Package cookies validates and stores the Netscape cookie jar uploaded by the
// browser extension for yt-dlp.
package cookies

import (
	"fmt"
	"strings"

	"farsisub/internal/fileutil"
	"farsisub/internal/services"
)

// MaxBytes caps an uploaded cookie jar.
const MaxBytes = 1 << 20

// fieldCount is the number of tab-separated columns in a Netscape cookie line.
const fieldCount = 7

// Summary describes an accepted cookie jar.
type Summary struct {
	Cookies int
	Domains []string
}

// Validate checks that data looks like a Netscape cookie file and returns the
// normalized content (LF line endings, trailing newline).
func Validate(data string) (string, Summary, error) {
	data = strings.ReplaceAll(data, "\r\n", "\n")
	if strings.TrimSpace(data) == "" {
		return "", Summary{}, services.Wrap(services.ErrInvalidRequest, "cookies", "validate", "cookies required", nil)
	}
	if len(data) > MaxBytes {
		return "", Summary{}, services.Wrap(services.ErrInvalidRequest, "cookies", "validate", fmt.Sprintf("cookie file exceeds %d bytes", MaxBytes), nil)
	}

	var summary Summary
	seen := make(map[string]bool)
	for i, line := range strings.Split(data, "\n") {
		line = strings.TrimRight(line, " ")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		// #HttpOnly_ prefixes a real cookie line; other # lines are comments.
		if strings.HasPrefix(trimmed, "#") && !strings.HasPrefix(trimmed, "#HttpOnly_") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != fieldCount {
			return "", Summary{}, services.Wrap(services.ErrInvalidRequest, "cookies", "validate",
				fmt.Sprintf("line %d: expected %d tab-separated fields, got %d", i+1, fieldCount, len(fields)), nil)
		}
		domain := strings.TrimPrefix(fields[0], "#HttpOnly_")
		if domain == "" || fields[5] == "" {
			return "", Summary{}, services.Wrap(services.ErrInvalidRequest, "cookies", "validate",
				fmt.Sprintf("line %d: domain and name are required", i+1), nil)
		}
		if !isBool(fields[1]) || !isBool(fields[3]) {
			return "", Summary{}, services.Wrap(services.ErrInvalidRequest, "cookies", "validate",
				fmt.Sprintf("line %d: flag columns must be TRUE or FALSE", i+1), nil)
		}
		summary.Cookies++
		if !seen[domain] {
			seen[domain] = true
			summary.Domains = append(summary.Domains, domain)
		}
	}
	if summary.Cookies == 0 {
		return "", Summary{}, services.Wrap(services.ErrInvalidRequest, "cookies", "validate", "no cookie lines found", nil)
	}
	if !strings.HasSuffix(data, "\n") {
		data += "\n"
	}
	return data, summary, nil
}

func isBool(v string) bool {
	return v == "TRUE" || v == "FALSE"
}

// Save validates data and atomically replaces the cookie file at path with
// owner-only permissions.
func Save(path, data string) (Summary, error) {
	if strings.TrimSpace(path) == "" {
		return Summary{}, services.Wrap(services.ErrConfiguration, "cookies", "save", "cookies_file not configured", nil)
	}
	normalized, summary, err := Validate(data)
	if err != nil {
		return Summary{}, err
	}
	if err := fileutil.WriteFileAtomic(path, []byte(normalized), 0o600); err != nil {
		return Summary{}, services.Wrap(services.ErrUnknown, "cookies", "save", "write cookie file", err)
	}
	return summary, nil
}
