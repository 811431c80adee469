package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound signals a missing lead or verification record
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a duplicate record or a lost status race
	ErrConflict = errors.New("conflict")
	// ErrLeadNotWon is returned when verification is requested before the sale closed
	ErrLeadNotWon = fmt.Errorf("%w: lead has not been won", ErrConflict)
)

// ValidationError reports missing or invalid input. No state is changed when
// it is returned.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

// NewValidationError builds a ValidationError for the given fields
func NewValidationError(message string, fields ...string) *ValidationError {
	return &ValidationError{Fields: fields, Message: message}
}

// AuthorizationError is returned when the actor's role may not perform the
// operation. Its message never names fields.
type AuthorizationError struct {
	Role      string
	Operation string
}

func (e *AuthorizationError) Error() string {
	return "insufficient permissions"
}

// UpstreamError wraps storage or persistence failures
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsValidationError checks if err carries a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAuthorizationError checks if err carries an AuthorizationError
func IsAuthorizationError(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

// IsUpstreamError checks if err carries an UpstreamError
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
