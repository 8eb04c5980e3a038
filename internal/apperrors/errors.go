package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is an error that carries the HTTP status and the client-facing
// message. Err holds the underlying cause for server-side logs only.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"error"`
	Err        error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("API error: status code %d, message: %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("API error: status code %d, message: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

func NewAPIError(statusCode int, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Message:    message,
	}
}

// Wrap returns a copy of e that records cause.
func (e *APIError) Wrap(cause error) *APIError {
	return &APIError{StatusCode: e.StatusCode, Message: e.Message, Err: cause}
}

func NewBadRequestError(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, message)
}

func NewUnauthorizedError(message string) *APIError {
	return NewAPIError(http.StatusUnauthorized, message)
}

func NewForbiddenError(message string) *APIError {
	return NewAPIError(http.StatusForbidden, message)
}

func NewNotFoundError(message string) *APIError {
	return NewAPIError(http.StatusNotFound, message)
}

func NewConflictError(message string) *APIError {
	return NewAPIError(http.StatusConflict, message)
}

func NewInternalServerError(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, message)
}

// Internal wraps an unexpected store or provider failure.
func Internal(message string, cause error) *APIError {
	return NewInternalServerError(message).Wrap(cause)
}

// Status returns the HTTP status for err, 500 for anything that is not an APIError.
func Status(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return http.StatusInternalServerError
}

// Message returns the client-safe message for err.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Is reports whether err is an APIError with the given status.
func Is(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
