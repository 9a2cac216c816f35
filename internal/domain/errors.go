package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the service.
var (
	// ErrNotFound is returned when a record is missing. Recoverable: the
	// caller decides the fallback (e.g. "enrollment required").
	ErrNotFound = errors.New("record not found")

	// ErrCapabilityUnavailable signals the platform authenticator is not
	// usable. Always recoverable via the simulation fallback.
	ErrCapabilityUnavailable = errors.New("platform authenticator unavailable")
)

// ValidationError reports malformed business input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a validation error for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// EncryptionError reports a failure while sealing a record at rest.
// The write must abort; no partial or plaintext record may be persisted.
type EncryptionError struct {
	Collection string
	Err        error
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("encrypt %s: %v", e.Collection, e.Err)
}

func (e *EncryptionError) Unwrap() error { return e.Err }

// DecryptionError reports a failure while opening a record. The read must
// abort rather than return plaintext-looking garbage.
type DecryptionError struct {
	Collection string
	Err        error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decrypt %s: %v", e.Collection, e.Err)
}

func (e *DecryptionError) Unwrap() error { return e.Err }

// IsDecryptionError reports whether err is (or wraps) a DecryptionError.
func IsDecryptionError(err error) bool {
	var de *DecryptionError
	return errors.As(err, &de)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
