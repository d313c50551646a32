// Package apperror defines the domain error kinds shared by services and handlers.
//
// Services return *AppError values wrapping one of the sentinel kinds below.
// The HTTP layer maps the kind to a status code and a stable machine-readable
// code; the Message is safe to show to users.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrExtraction marks documents that could not be read or held no text.
	ErrExtraction = errors.New("extraction error")
	// ErrGeneration marks failures while producing results: model calls,
	// PDF rendering, storage writes.
	ErrGeneration = errors.New("generation error")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying error, logged but never shown
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict: %s", resource, message),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized reports missing or invalid credentials.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// ExtractionFailed reports an unreadable document. The cause is kept for logs.
func ExtractionFailed(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrExtraction,
		Message: message,
		Cause:   cause,
	}
}

// GenerationFailed reports a processing failure after input was accepted.
func GenerationFailed(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrGeneration,
		Message: message,
		Cause:   cause,
	}
}

// Code returns the stable machine-readable code for err's kind.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrExtraction):
		return "extraction_error"
	case errors.Is(err, ErrGeneration):
		return "generation_error"
	default:
		return "internal_error"
	}
}
