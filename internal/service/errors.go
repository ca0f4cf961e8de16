package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when the schema file does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExternalService is returned when the embedding service, the chat
	// service or the vector store fails.
	ErrExternalService = errors.New("external service error")
	// ErrNoDatabase is returned when the schema must be extracted but no database is configured.
	ErrNoDatabase = errors.New("no database configured")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInvalidInput) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// ExternalError wraps err with context and marks it as ErrExternalService.
func ExternalError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrExternalService) {
		return WrapError(err, msg)
	}
	return fmt.Errorf("%s: %w: %w", msg, ErrExternalService, err)
}
