package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/tisu1989/auth-project/internal/service"
)

const maxBodyBytes = 1 << 20

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Token   string `json:"token,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

var errorResponses = []struct {
	err     error
	status  int
	message string
}{
	{service.ErrAccountNotFound, http.StatusNotFound, "User not found"},
	{service.ErrEmailTaken, http.StatusConflict, "User already exists"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{service.ErrNotVerified, http.StatusUnauthorized, "User not verified"},
	{service.ErrAlreadyVerified, http.StatusBadRequest, "User already verified"},
	{service.ErrCodeNotFound, http.StatusBadRequest, "Verification code not found"},
	{service.ErrCodeExpired, http.StatusBadRequest, "Verification code expired"},
	{service.ErrCodeInvalid, http.StatusBadRequest, "Invalid verification code"},
	{service.ErrDeliveryFailed, http.StatusInternalServerError, "Failed to send code"},
}

// writeServiceError maps a service error to its status and public message.
// Unknown errors are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		writeFailure(w, http.StatusBadRequest, verr.Message)
		return
	}

	for _, e := range errorResponses {
		if errors.Is(err, e.err) {
			if e.status >= http.StatusInternalServerError {
				slog.Error("request failed", "error", err, "path", r.URL.Path)
			}
			writeFailure(w, e.status, e.message)
			return
		}
	}

	slog.Error("request failed", "error", err, "path", r.URL.Path)
	writeFailure(w, http.StatusInternalServerError, "Internal server error")
}

// decodeJSON reads a JSON request body into dst. An empty body leaves dst as is
// so field validation reports what is missing.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	writeFailure(w, http.StatusBadRequest, "Invalid request body")
	return false
}
