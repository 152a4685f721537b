package daemon

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"farsisub/internal/config"
	"farsisub/internal/cookies"
	"farsisub/internal/logging"
	"farsisub/internal/preload"
	"farsisub/internal/services"
)

type handlers struct {
	cfg       *config.Config
	preloader Preloader
	logger    *slog.Logger
}

type healthResponse struct {
	Status string `json:"status"`
}

func (h *handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *handlers) handlePreload(w http.ResponseWriter, r *http.Request) {
	var req preload.Request
	if err := decodeJSON(w, r, h.cfg.Preload.MaxBodyBytes, &req); err != nil {
		requestID, _ := services.RequestIDFromContext(r.Context())
		limit := h.cfg.Quota.DailyLimitSeconds
		writeJSON(w, http.StatusBadRequest, preload.Result{
			Success:   false,
			Usage:     preload.Usage{Limit: limit, Remaining: limit},
			Error:     err.Error(),
			ErrorKind: string(services.KindInvalidRequest),
			RequestID: requestID,
		})
		return
	}

	result := h.preloader.Preload(r.Context(), req)
	status := http.StatusOK
	if !result.Success {
		status = services.HTTPStatus(result.Err)
		if status == http.StatusOK {
			status = http.StatusInternalServerError
		}
	}
	writeJSON(w, status, result)
}

type uploadCookiesRequest struct {
	Cookies string `json:"cookies"`
}

type uploadCookiesResponse struct {
	OK      bool   `json:"ok"`
	Cookies int    `json:"cookies,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *handlers) handleUploadCookies(w http.ResponseWriter, r *http.Request) {
	var req uploadCookiesRequest
	// JSON escaping can grow a jar, so the body limit leaves headroom.
	if err := decodeJSON(w, r, 2*cookies.MaxBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, uploadCookiesResponse{Error: err.Error()})
		return
	}

	logger := logging.WithContext(r.Context(), h.logger)
	summary, err := cookies.Save(h.cfg.Paths.CookiesFile, req.Cookies)
	if err != nil {
		status := services.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			logging.ErrorWithContext(logger, "cookie upload failed", "cookies_save_failed",
				logging.String(logging.FieldErrorHint, "check permissions on paths.cookies_file"),
				logging.Error(err),
			)
		}
		writeJSON(w, status, uploadCookiesResponse{Error: err.Error()})
		return
	}
	logger.Info("cookies updated",
		logging.Int("cookies", summary.Cookies),
		logging.Int("domains", len(summary.Domains)),
		logging.String(logging.FieldEventType, "cookies_uploaded"),
	)
	writeJSON(w, http.StatusOK, uploadCookiesResponse{OK: true, Cookies: summary.Cookies})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dest any) error {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.New("request body too large")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}
