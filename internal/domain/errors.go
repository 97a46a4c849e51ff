package domain

import (
	"errors"
	"fmt"
)

// Verification errors
var (
	ErrSubjectNotFound = errors.New("subject not found")
	ErrMissingToken    = errors.New("missing token")
	ErrUnknownKind     = errors.New("unknown subject kind")

	// ErrTokenInvalidOrExpired covers unknown, consumed and expired tokens alike.
	// Callers outside the service must never be able to tell these apart.
	ErrTokenInvalidOrExpired = errors.New("token invalid or expired")
)

// ValidationError reports malformed user input. Message is safe to show to the user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ErrNotificationSkipped is returned by notifiers that intentionally sent nothing,
// for example because no recipient or content is configured.
var ErrNotificationSkipped = errors.New("notification skipped")
