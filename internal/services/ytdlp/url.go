package ytdlp

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	playlistParam  = regexp.MustCompile(`&list=[^&]+`)
	timestampParam = regexp.MustCompile(`&t=\d+s?`)
)

// CleanURL strips playlist and start-time parameters so yt-dlp fetches a
// single video from the beginning.
func CleanURL(raw string) string {
	cleaned := playlistParam.ReplaceAllString(raw, "")
	cleaned = timestampParam.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// ValidURL reports whether raw is an absolute http(s) URL.
func ValidURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}
