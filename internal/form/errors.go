package form

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyForm is returned when the extracted pages contain no text lines.
	ErrEmptyForm = errors.New("form contains no readable text")
)

// ParseError reports a structural failure that prevents building a FormRecord.
// Field-level misses never produce a ParseError; they degrade to empty values.
type ParseError struct {
	// Op is the operation that failed.
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("form: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("form: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a ParseError for op.
func NewParseError(op string, err error, details string) *ParseError {
	return &ParseError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}
