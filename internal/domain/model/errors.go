package model

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every layer. Adapters wrap these with context;
// callers match with errors.Is.
var (
	// ErrInvalidInput indicates a malformed salt or nonce, or an empty required field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates a uniqueness violation such as a taken username.
	ErrConflict = errors.New("conflict")

	// ErrNotFound indicates a lookup by identifier matched nothing.
	ErrNotFound = errors.New("not found")

	// ErrAuthenticationFailed is returned for a wrong master password and for
	// tampered or corrupted ciphertext alike. It never carries the cause.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrStorage indicates the persistence layer failed.
	ErrStorage = errors.New("storage failure")
)

// InputError is an ErrInvalidInput whose message describes the offending
// field only and is safe to return to a client.
type InputError struct {
	msg string
}

// NewInputError returns an *InputError matching ErrInvalidInput.
func NewInputError(format string, args ...any) error {
	return &InputError{msg: fmt.Sprintf(format, args...)}
}

// Message returns the client-safe description.
func (e *InputError) Message() string {
	return e.msg
}

func (e *InputError) Error() string {
	return e.msg + ": " + ErrInvalidInput.Error()
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}
