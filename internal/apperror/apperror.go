// Package apperror defines the domain error kinds shared by every layer.
//
// Lower layers return (or wrap) an *AppError; the HTTP boundary inspects it
// with errors.Is / errors.As and picks the status code. Nothing below the
// handler package knows about HTTP.
package apperror

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation error")
	ErrConflict             = errors.New("conflict")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrRateLimited          = errors.New("rate limited")
	ErrConfiguration        = errors.New("configuration error")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error

	// Missing lists absent configuration keys. Only set for ErrConfiguration.
	Missing []string
	// RetryAfter is only set for ErrRateLimited.
	RetryAfter time.Duration
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound is used both for rows that do not exist and rows owned by someone
// else. The message must not reveal which of the two happened.
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

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Unauthorized covers missing/invalid/expired sessions and bad credentials.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

func UnsupportedMediaType(message string) *AppError {
	return &AppError{
		Err:     ErrUnsupportedMediaType,
		Message: message,
	}
}

// RateLimited reports how long the caller has to wait, rounded up to whole
// seconds in the message.
func RateLimited(retryAfter time.Duration) *AppError {
	seconds := int((retryAfter + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return &AppError{
		Err:        ErrRateLimited,
		Message:    fmt.Sprintf("Rate limit exceeded. Try again in %ds.", seconds),
		RetryAfter: time.Duration(seconds) * time.Second,
	}
}

// ConfigMissing is an operator-facing failure, so the missing keys are
// reported to the caller.
func ConfigMissing(keys ...string) *AppError {
	return &AppError{
		Err:     ErrConfiguration,
		Message: "Missing required environment variables: " + strings.Join(keys, ", "),
		Missing: keys,
	}
}
