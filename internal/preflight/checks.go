package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"farsisub/internal/config"
	"farsisub/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckWhisperModel verifies the ggml model file is present and readable.
func CheckWhisperModel(path string) Result {
	const name = "Whisper model"
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "model not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if info.IsDir() || info.Size() == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a model file)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: unreadable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d MB)", path, info.Size()>>20)}
}

// CheckTranslationCredentials reports whether the primary backend has an API key.
func CheckTranslationCredentials(cfg *config.Config) Result {
	name := "Translation (" + cfg.Translation.Provider + ")"
	if err := cfg.ValidateTranslationCredentials(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "API key configured"}
}

// CheckCookies reports the state of the uploaded cookie jar. A missing jar
// passes since downloads work without cookies for most videos.
func CheckCookies(path string) Result {
	const name = "YouTube cookies"
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return Result{Name: name, Passed: true, Detail: "not uploaded"}
	}
	age := time.Since(info.ModTime()).Round(time.Minute)
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("uploaded %s ago", age)}
}

// CheckLibreTranslate verifies the fallback endpoint answers. It queries the
// /languages listing next to the configured /translate URL.
func CheckLibreTranslate(ctx context.Context, endpoint string) Result {
	const name = "LibreTranslate"

	parsed, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || parsed.Host == "" {
		return Result{Name: name, Detail: "missing or invalid url"}
	}
	parsed.Path = strings.TrimSuffix(strings.TrimRight(parsed.Path, "/"), "/translate") + "/languages"

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckSystemDeps evaluates the external binaries for the given config. Both
// the daemon and the CLI deps command use this to avoid duplicating the
// requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.Acquisition.Binary,
			Description: "Required for audio download",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Acquisition.FFmpegBinary,
			Description: "Required for audio extraction and resampling",
		},
		{
			Name:        "whisper.cpp",
			Command:     cfg.Transcription.Binary,
			Description: "Required for transcription",
		},
	})
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (service unreachable)"
	}
	return fmt.Sprintf("check failed (%v)", err)
}
