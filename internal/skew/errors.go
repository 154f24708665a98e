package skew

import (
	"errors"
	"fmt"
)

var (
	// ErrDecodeFailure marks an unreadable or missing source image.
	ErrDecodeFailure = errors.New("decode failure")
	// ErrPrimitiveFailure marks a failed image primitive (transform, detector, encoder).
	ErrPrimitiveFailure = errors.New("image primitive failure")
	// ErrEmptyDetectionSet is returned when the line detector finds no segments.
	ErrEmptyDetectionSet = errors.New("no line segments detected")
	// ErrInvalidConfiguration marks parameters rejected before any work starts.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ValidationError represents a parameter validation error
type ValidationError struct {
	Parameter string
	Value     interface{}
	Message   string
}

// NewValidationError creates a new validation error
func NewValidationError(parameter string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Parameter: parameter,
		Value:     value,
		Message:   message,
	}
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for parameter '%s' with value '%v': %s",
		ve.Parameter, ve.Value, ve.Message)
}

func (ve *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

func primitiveError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPrimitiveFailure, op, err)
}

func decodeError(err error) error {
	return fmt.Errorf("%w: %w", ErrDecodeFailure, err)
}
