package deps

import (
	"os/exec"
	"path/filepath"
	"strings"
)

// FFmpegLocation resolves the directory holding the ffmpeg binary so yt-dlp
// can be pointed at it with --ffmpeg-location. An absolute command that exists
// wins; otherwise PATH is searched. Returns "" when ffmpeg cannot be found.
func FFmpegLocation(ffmpegCommand string) string {
	cmd := strings.TrimSpace(ffmpegCommand)
	if cmd == "" {
		cmd = "ffmpeg"
	}
	resolved, err := exec.LookPath(cmd)
	if err != nil {
		return ""
	}
	if abs, err := filepath.Abs(resolved); err == nil {
		resolved = abs
	}
	return filepath.Dir(resolved)
}
