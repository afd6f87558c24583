// ABOUTME: JSON response envelopes for the mock API handlers.
// ABOUTME: Errors carry a code and status; successes carry a message and optional data.

package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the error body every API handler writes.
//
// Usage:
//
//	WriteError(w, http.StatusBadRequest, ErrMissingField, "username is required")
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Field   string `json:"field,omitempty"`
}

// MessageResponse is the success body. Data holds a ListData or PageData for reads.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// WriteError writes an error envelope with status.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message, Status: status})
}

// WriteErrorWithField is WriteError for a validation failure on one field.
func WriteErrorWithField(w http.ResponseWriter, status int, code, message, field string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message, Status: status, Field: field})
}

// WriteMessage writes a 200 success envelope with a human readable message.
func WriteMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: message})
}

// WriteData writes a 200 success envelope around data.
func WriteData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Data: data})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Error codes shared by the API plugins.
const (
	// Client errors (4xx)
	ErrInvalidRequest   = "invalid_request"
	ErrInvalidBody      = "invalid_request_body"
	ErrMissingField     = "missing_field"
	ErrValidationFailed = "validation_failed"
	ErrNotFound         = "not_found"
	ErrUnauthorized     = "unauthorized"
	ErrConflict         = "conflict"

	// Server errors (5xx)
	ErrInternal       = "internal_error"
	ErrDatabaseError  = "database_error"
	ErrNotImplemented = "not_implemented"
)
