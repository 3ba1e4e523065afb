// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/verifid/verifid/internal/auth"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      string `json:"error"`
}

// MessageResponse is returned by endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// kindStatus maps error kinds to HTTP status codes.
var kindStatus = map[auth.Kind]int{
	auth.KindInvalidInput:           http.StatusBadRequest,
	auth.KindUnauthorized:           http.StatusUnauthorized,
	auth.KindForbidden:              http.StatusForbidden,
	auth.KindNotFound:               http.StatusNotFound,
	auth.KindConflict:               http.StatusConflict,
	auth.KindInvalidRecipient:       http.StatusBadRequest,
	auth.KindTemporarilyUnavailable: http.StatusServiceUnavailable,
	auth.KindInternal:               http.StatusInternalServerError,
}

// StatusFor returns the HTTP status for err.
func StatusFor(err error) int {
	if status, ok := kindStatus[auth.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload) //nolint:errcheck // client may disconnect
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Message:    message,
		Error:      http.StatusText(status),
	})
}

// writeError renders err. Internal failures were already logged where they
// happened, so only their code is logged here and the message stays generic.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		message = "internal server error"
		if oopsErr, ok := oops.AsOops(err); ok {
			logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error_code", oopsErr.Code())
		} else {
			logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		}
	}
	writeStatus(w, status, message)
}
