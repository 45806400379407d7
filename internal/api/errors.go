package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sportsbro/sportsbro/internal/team"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// envelope is the shape of every API response.
type envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    any          `json:"data,omitempty"`
	Error   *errorDetail `json:"error,omitempty"`
}

type errorDetail struct {
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// writeError writes a JSON error response with the given status code.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, envelope{
		Message: message,
		Error:   &errorDetail{Code: code},
	})
}

// writeData writes a successful envelope carrying data.
func writeData(w http.ResponseWriter, statusCode int, message string, data any) {
	writeJSON(w, statusCode, envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// readJSON decodes the request body into v, enforcing a size limit.
func readJSON(r *http.Request, v any) error {
	lr := io.LimitReader(r.Body, maxBodySize)
	return json.NewDecoder(lr).Decode(v)
}

// statusFor maps a team error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case "validation_error", "team_full", "already_member", "already_requested",
		"no_pending_request", "not_a_member", "not_accepting_requests",
		"owner_cannot_leave", "cannot_remove_owner":
		return http.StatusBadRequest
	case "forbidden":
		return http.StatusForbidden
	case "not_found", "user_not_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps an error returned by the team service to a response.
// Unexpected errors are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := team.Code(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		slog.Error("team operation failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeError(w, status, "internal_error", "internal server error")
		return
	}

	detail := &errorDetail{Code: code}
	if ve, ok := asValidation(err); ok {
		detail.Field = ve.Field
	}
	writeJSON(w, status, envelope{Message: err.Error(), Error: detail})
}

func asValidation(err error) (*team.ValidationError, bool) {
	var ve *team.ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
