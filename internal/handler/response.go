package handler

// RESPONSE HELPERS:
// Every JSON endpoint answers through writeJSON / writeError so the front-end
// script can rely on one error shape:
//
//	{"error": "No text provided", "code": "validation_error"}
//
// "error" is safe to show to the user as-is; "code" is stable and meant for
// programs.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/doc-insight/internal/apperror"
)

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const internalErrorMessage = "An internal error occurred"

// writeJSON sends data with the given status code.
//
// Headers and status must be written before the body; once Encode starts
// writing, later header changes are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps a domain error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrExtraction):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status code and sends the standard error body.
//
// Only AppError messages reach the client. Anything else becomes a generic
// 500; the raw error may contain paths or SQL and is only logged.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		slog.Error("unhandled error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: internalErrorMessage,
			Code:  "internal_error",
		})
		return
	}

	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			slog.String("code", apperror.Code(err)),
			slog.String("error", err.Error()),
		)
	}

	writeJSON(w, status, ErrorResponse{
		Error: appErr.Message,
		Code:  apperror.Code(err),
	})
}
