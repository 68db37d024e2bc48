package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common cases.
// Use errors.Is() to check against these.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrNegotiationFailed   = errors.New("negotiation failed")
	ErrUnsupportedProtocol = errors.New("unsupported protocol version")
	ErrUpstreamError       = errors.New("upstream error")
)

// APIError represents a structured error for API responses.
// Implements error interface and supports unwrapping.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"` // HTTP status, not serialized
	Err        error  `json:"-"` // Wrapped error, not serialized
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a 404 error for missing resources.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       "not_found",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
		Err:        ErrNotFound,
	}
}

// NewValidationError creates a 400 error for invalid input.
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:       "validation_error",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		StatusCode: http.StatusBadRequest,
		Err:        ErrInvalidRequest,
	}
}

// NewComponentError creates a 400 error for an advertisement that fails
// validation before negotiation starts.
func NewComponentError(err error) *APIError {
	return &APIError{
		Code:       "invalid_component",
		Message:    err.Error(),
		StatusCode: http.StatusBadRequest,
		Err:        fmt.Errorf("%w: %w", ErrInvalidRequest, err),
	}
}

// NewNegotiationError creates a 409 error: both peers are well-formed but
// their advertisements cannot be reconciled.
func NewNegotiationError(err error) *APIError {
	return &APIError{
		Code:       "negotiation_failed",
		Message:    err.Error(),
		StatusCode: http.StatusConflict,
		Err:        fmt.Errorf("%w: %w", ErrNegotiationFailed, err),
	}
}

// NewUnsupportedProtocolError creates a 400 error for a handshake revision
// the server cannot speak.
func NewUnsupportedProtocolError(code, message string) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        ErrUnsupportedProtocol,
	}
}

// NewUpstreamError creates a 502 error for failures fetching a peer's advertisement.
func NewUpstreamError(service string, err error) *APIError {
	return &APIError{
		Code:       "profile_fetch_failed",
		Message:    fmt.Sprintf("%s request failed", service),
		StatusCode: http.StatusBadGateway,
		Err:        fmt.Errorf("%w: %v", ErrUpstreamError, err),
	}
}

// NewInternalError creates a 500 error for unexpected failures.
func NewInternalError(err error) *APIError {
	return &APIError{
		Code:       "internal_error",
		Message:    "an internal error occurred",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}
