package web

// errors.go maps technical errors to user-facing messages. The full error
// is logged server-side with the request ID; the client sees a short
// message with a support code.

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/stemloop/fairtrack/internal/logging"
)

// UserMessage is the client-facing description of a failure.
type UserMessage struct {
	Message string // what happened
	Code    string // support reference code
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are matched case-insensitively with strings.Contains, first
// match wins, so specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{"missing required columns", UserMessage{"The file is missing required columns", "VAL001"}},
	{"duplicate key", UserMessage{"A record with this key already exists", "DB001"}},
	{"unique constraint", UserMessage{"A duplicate value was found", "DB001"}},
	{"foreign key", UserMessage{"A referenced record does not exist", "DB002"}},
	{"connection refused", UserMessage{"The database is unavailable, try again shortly", "DB003"}},
	{"connection reset", UserMessage{"The database connection was interrupted", "DB003"}},
	{"context deadline exceeded", UserMessage{"The import timed out, try a smaller file", "IMP001"}},
	{"context canceled", UserMessage{"The import was cancelled", "IMP002"}},
	{"request body too large", UserMessage{"The file exceeds the upload size limit", "FILE001"}},
	{"no file provided", UserMessage{"No spreadsheet was attached to the request", "FILE002"}},
	{"empty file", UserMessage{"The uploaded file has no rows", "FILE003"}},
	{"parse csv", UserMessage{"The file could not be parsed as CSV", "FILE004"}},
	{"invalid year", UserMessage{"The target year is missing or not a number", "VAL002"}},
}

// mapError returns the user message for an error, falling back to a generic
// one.
func mapError(err error) UserMessage {
	text := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(text, p.pattern) {
			return p.msg
		}
	}
	return UserMessage{Message: "An unexpected error occurred", Code: "ERR000"}
}

// errorResponse is the failure payload shape consumed by the dashboard.
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// respondError logs the technical error and writes the mapped user message.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	msg := mapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", msg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse{
		Message: msg.Message,
		Error:   err.Error(),
		Code:    msg.Code,
	})
}

// respondJSON writes v as a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already written; nothing to do but log.
		slog.Error("json encode error", "error", err)
	}
}
