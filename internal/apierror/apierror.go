// Package apierror builds the JSON error envelopes returned to clients and
// maps domain errors onto HTTP status codes. Internal causes never reach
// the response body.
package apierror

import (
	"errors"
	"net/http"

	"zedcmms/internal/apperror"
)

// APIError is the envelope for every 4xx/5xx response.
type APIError struct {
	Detail    string         `json:"detail"`
	Code      string         `json:"code,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// WithCode builds an envelope carrying a domain error code and details.
func WithCode(msg, code string, details map[string]any) *APIError {
	return &APIError{Detail: msg, Code: code, Details: details}
}

// Internal is the opaque body sent for any unclassified failure.
func Internal() *APIError {
	return &APIError{Detail: "internal server error", Code: "INTERNAL_ERROR"}
}

// StatusFor maps a domain error kind to its HTTP status.
func StatusFor(k apperror.Kind) int {
	switch k {
	case apperror.KindValidation, apperror.KindBusinessLogic, apperror.KindStateTransition:
		return http.StatusBadRequest
	case apperror.KindPermission:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// FromError returns the status and envelope for err. The bool is false when
// err carries no classified domain error and the caller should log it.
func FromError(err error) (int, *APIError, bool) {
	var ae *apperror.Error
	if !errors.As(err, &ae) || ae.Kind == apperror.KindInternal {
		return http.StatusInternalServerError, Internal(), false
	}
	return StatusFor(ae.Kind), WithCode(ae.Message, ae.Code, ae.Details), true
}

// ValidationError carries per-field messages keyed by JSON field name.
type ValidationError struct {
	Detail string            `json:"detail"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation error", Code: "VALIDATION_ERROR", Fields: fields}
}
