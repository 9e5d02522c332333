package features

import (
	"errors"
	"fmt"
)

var (
	errNotNumeric   = errors.New("not a number")
	errOutOfRange   = errors.New("out of range")
	errOutOfDomain  = errors.New("value not in domain")
	errMissingField = errors.New("required")
	errInvalidFlag  = errors.New("flag must be 0 or 1")
)

// ValidationError reports a malformed or out-of-domain form field. Inputs that
// fail validation are never sent to the classifier.
type ValidationError struct {
	Field  string
	reason error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.reason.Error())
}

func (e *ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// SchemaError means the encoder produced a vector that does not match the
// declared schema. It is an internal invariant violation.
type SchemaError struct {
	Expected int
	Got      int
	Key      string
}

func (e *SchemaError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("feature vector schema mismatch: unexpected or missing key %q", e.Key)
	}
	return fmt.Sprintf("feature vector schema mismatch: expected %d keys, got %d", e.Expected, e.Got)
}

func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

func invalid(field string, reason error) error {
	return &ValidationError{Field: field, reason: reason}
}
