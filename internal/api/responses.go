package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// Response is the envelope every endpoint responds with, per spec.md §6.
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     string     `json:"error,omitempty"`
	ErrorInfo *ErrorInfo `json:"errorInfo,omitempty"`
	Timestamp string     `json:"timestamp"`
}

// ErrorInfo carries a machine-readable error code alongside the message.
type ErrorInfo struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	writeJSON(w, status, Response{
		Success:   false,
		Error:     message,
		ErrorInfo: &ErrorInfo{Code: code, Message: message, Details: details},
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// writeValidationError reports a malformed request, following the teacher's
// validation error shape with a field->reason details map.
func writeValidationError(w http.ResponseWriter, message string, details map[string]any) {
	writeErrorResponse(w, http.StatusBadRequest, CodeInvalidArgument, message, details)
}

// writeAPIError maps err to an error kind per spec.md §7 and writes the
// corresponding response. Unrecognized errors map to CodeEngineError/500.
func writeAPIError(w http.ResponseWriter, err error) {
	code, status, message := classifyError(err)
	writeErrorResponse(w, status, code, message, nil)
}
