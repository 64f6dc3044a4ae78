// Package response writes every HTTP reply in one envelope shape.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/doctorsaathi/consult-service/internal/pagination"
)

// Error codes carried in Envelope.Error.Code.
const (
	CodeValidation   = "validation_error"
	CodeBadRequest   = "bad_request"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeRateLimited  = "rate_limited"
	CodeUnavailable  = "provisioning_unavailable"
	CodeInternal     = "storage_error"
	CodeNotReady     = "not_ready"
)

// Envelope is the single response body used by all endpoints.
type Envelope struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message,omitempty"`
	Data       any              `json:"data,omitempty"`
	Count      *int             `json:"count,omitempty"`
	Pagination *pagination.Meta `json:"pagination,omitempty"`
	Error      *ErrorBody       `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// JSON writes a successful envelope carrying data.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{Success: true, Data: data})
}

// Message writes a successful envelope with a human readable message.
func Message(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Envelope{Success: true, Message: message, Data: data})
}

// List writes a page of items with its count and pagination metadata.
// items is always encoded as an array, never null.
func List[T any](w http.ResponseWriter, items []T, meta *pagination.Meta) {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	write(w, http.StatusOK, Envelope{Success: true, Data: items, Count: &n, Pagination: meta})
}

// Error writes a failed envelope.
func Error(w http.ResponseWriter, status int, code, message string) {
	write(w, status, Envelope{Error: &ErrorBody{Code: code, Message: message}})
}

// ValidationError writes a 400 naming the offending fields.
func ValidationError(w http.ResponseWriter, message string, fields []string) {
	write(w, http.StatusBadRequest, Envelope{Error: &ErrorBody{
		Code:    CodeValidation,
		Message: message,
		Fields:  fields,
	}})
}
