package entity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// NotFoundError is returned when an entity is not found.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource %q entity %d not found", e.Resource, e.ID)
}

// StatusCode returns the HTTP status code for this error.
func (e *NotFoundError) StatusCode() int {
	return http.StatusNotFound
}

// Hint returns a user-friendly suggestion for resolving this error.
func (e *NotFoundError) Hint() string {
	return fmt.Sprintf("Check that entity %d exists. Use GET /%s to list available entities.", e.ID, e.Resource)
}

// ValidationError is returned when a request payload or parameter is malformed.
type ValidationError struct {
	Message string
	Field   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return e.Message
}

// StatusCode returns the HTTP status code for this error.
func (e *ValidationError) StatusCode() int {
	return http.StatusBadRequest
}

// Hint returns a user-friendly suggestion for resolving this error.
func (e *ValidationError) Hint() string {
	if e.Field != "" {
		return fmt.Sprintf("Check the value of %q in your request.", e.Field)
	}
	return "Check your request body format and query parameters."
}

// PayloadTooLargeError is returned when a request body exceeds the size limit.
type PayloadTooLargeError struct {
	MaxSize int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("request body too large: max %d bytes allowed", e.MaxSize)
}

// StatusCode returns the HTTP status code for this error.
func (e *PayloadTooLargeError) StatusCode() int {
	return http.StatusRequestEntityTooLarge
}

// Hint returns a user-friendly suggestion for resolving this error.
func (e *PayloadTooLargeError) Hint() string {
	return fmt.Sprintf("Reduce request body size to under %d bytes.", e.MaxSize)
}

// StatusCodeError is an interface for errors that have an HTTP status code.
type StatusCodeError interface {
	error
	StatusCode() int
}

// HintError is an interface for errors that provide resolution hints.
type HintError interface {
	error
	Hint() string
}

// ErrorResponse is the JSON body written for failed requests.
type ErrorResponse struct {
	// Error is a short error code
	Error string `json:"error"`
	// Detail provides additional error context
	Detail string `json:"detail,omitempty"`
	// ID is the entity ID (if applicable)
	ID *int64 `json:"id,omitempty"`
	// StatusCode is the HTTP status code
	StatusCode int `json:"statusCode"`
	// Hint provides a suggestion for resolving the error
	Hint string `json:"hint,omitempty"`
	// Field is the specific field that caused a validation error
	Field string `json:"field,omitempty"`
}

// ToErrorResponse converts an error to an ErrorResponse. Errors that are not
// one of this package's types are reported as internal errors.
func ToErrorResponse(err error) *ErrorResponse {
	var (
		notFound   *NotFoundError
		validation *ValidationError
		tooLarge   *PayloadTooLargeError
	)

	switch {
	case errors.As(err, &notFound):
		id := notFound.ID
		return &ErrorResponse{
			Error:      "not found",
			ID:         &id,
			StatusCode: notFound.StatusCode(),
			Hint:       notFound.Hint(),
		}
	case errors.As(err, &validation):
		return &ErrorResponse{
			Error:      "invalid request",
			Detail:     validation.Message,
			Field:      validation.Field,
			StatusCode: validation.StatusCode(),
			Hint:       validation.Hint(),
		}
	case errors.As(err, &tooLarge):
		return &ErrorResponse{
			Error:      "payload too large",
			Detail:     tooLarge.Error(),
			StatusCode: tooLarge.StatusCode(),
			Hint:       tooLarge.Hint(),
		}
	default:
		resp := &ErrorResponse{
			Error:      "internal error",
			Detail:     err.Error(),
			StatusCode: http.StatusInternalServerError,
		}
		var sc StatusCodeError
		if errors.As(err, &sc) {
			resp.StatusCode = sc.StatusCode()
			if text := http.StatusText(resp.StatusCode); text != "" {
				resp.Error = strings.ToLower(text)
			}
		}
		var hinted HintError
		if errors.As(err, &hinted) {
			resp.Hint = hinted.Hint()
		}
		return resp
	}
}
