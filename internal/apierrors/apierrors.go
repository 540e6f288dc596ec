// Package apierrors contains the error types returned to API clients.
package apierrors

import (
	"encoding/json"
	"net/http"
)

// APIError represents a business error that can be safely returned to the client.
type APIError struct {
	code           string
	detail         string
	httpStatusCode int
	cause          error
}

// APIErrorOption determines the Functional Options used to create a new APIError.
type APIErrorOption func(apiError *APIError)

// WithDetail sets the human readable detail of the error.
func WithDetail(detail string) APIErrorOption {
	return func(apiError *APIError) {
		apiError.detail = detail
	}
}

// WithCode sets the machine readable code of the error.
func WithCode(code string) APIErrorOption {
	return func(apiError *APIError) {
		apiError.code = code
	}
}

// WithHTTPStatusCode sets the HTTP status returned along with the error.
func WithHTTPStatusCode(statusCode int) APIErrorOption {
	return func(apiError *APIError) {
		apiError.httpStatusCode = statusCode
	}
}

// WithCause sets the error that originated this one, so it can be matched with errors.Is.
func WithCause(cause error) APIErrorOption {
	return func(apiError *APIError) {
		apiError.cause = cause
	}
}

// NewAPIError creates a new APIError. Without options, the error is an internal server error.
func NewAPIError(opts ...APIErrorOption) *APIError {
	apiError := &APIError{httpStatusCode: http.StatusInternalServerError}
	for _, opt := range opts {
		opt(apiError)
	}
	if apiError.detail == "" && apiError.cause != nil {
		apiError.detail = apiError.cause.Error()
	}
	return apiError
}

func (e *APIError) Error() string {
	return e.detail
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// Code gets the machine readable code of the error.
func (e *APIError) Code() string {
	return e.code
}

// Detail gets the human readable detail of the error.
func (e *APIError) Detail() string {
	return e.detail
}

// HTTPStatusCode gets the HTTP status associated to the error.
func (e *APIError) HTTPStatusCode() int {
	return e.httpStatusCode
}

func (e *APIError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code   string `json:"code,omitempty"`
		Detail string `json:"detail"`
	}{
		Code:   e.code,
		Detail: e.detail,
	})
}

// ValidationError represents an invalid field found in a request.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (v *ValidationError) Error() string {
	return v.Field + ": " + v.Message
}
