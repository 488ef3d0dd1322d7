package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"hrengine/internal/apperror"
	"hrengine/internal/platform/logger"
)

type errorResponse struct {
	Kind       string   `json:"kind"`
	Message    string   `json:"message"`
	Candidates []string `json:"candidates,omitempty"`
	Retryable  bool     `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps the error kind to an HTTP status and renders the
// structured failure payload. Internal errors are logged and masked.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	kind := apperror.KindOf(err)
	resp := errorResponse{
		Kind:      string(kind),
		Message:   err.Error(),
		Retryable: apperror.IsRetryable(err),
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		resp.Candidates = appErr.Candidates
	}

	status := http.StatusInternalServerError
	switch kind {
	case apperror.KindValidation:
		status = http.StatusBadRequest
	case apperror.KindNotFound:
		status = http.StatusNotFound
	case apperror.KindAmbiguous, apperror.KindInvalidState:
		status = http.StatusConflict
	case apperror.KindInsufficientBalance:
		status = http.StatusUnprocessableEntity
	case apperror.KindContention:
		status = http.StatusServiceUnavailable
		w.Header().Set("Retry-After", "1")
	case apperror.KindInternal:
		if log != nil {
			log.Error("internal error", logger.Err(err))
		}
		resp.Message = "internal error"
	}
	writeJSON(w, status, resp)
}
