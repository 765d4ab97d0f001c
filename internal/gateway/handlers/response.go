// Package handlers provides the HTTP handlers of the gateway and the JSON
// response helpers they share.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"vellum/internal/session"
	"vellum/pkg/logger"
)

// Error codes carried in the error envelope.
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

var codeStatus = map[string]int{
	ErrCodeInvalidRequest:     http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeInternalError:      http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
}

// StatusFor returns the HTTP status of an error code; unknown codes are 500.
func StatusFor(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorResponse is the body of every error reply: {"error":{"code","message"}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SendJSON writes data as JSON with the given status. data is encoded before
// any header is written, so an unencodable value still yields a clean 500.
func SendJSON(w http.ResponseWriter, status int, data any) {
	if data == nil {
		w.WriteHeader(status)
		return
	}
	body, err := json.Marshal(data)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{Error: ErrorDetail{Code: ErrCodeInternalError, Message: "response encoding failed"}})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		logger.Debug().Err(err).Msg("Failed to write response")
	}
}

// SendError writes the error envelope; the status follows from code.
func SendError(w http.ResponseWriter, code, message string) {
	SendJSON(w, StatusFor(code), ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}

// CodeFor classifies err from the session manager.
func CodeFor(err error) string {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, session.ErrClosed):
		return ErrCodeServiceUnavailable
	default:
		return ErrCodeInternalError
	}
}
