package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedInput is returned for inputs no strategy or engine accepts
	ErrUnsupportedInput = errors.New("unsupported input")

	// ErrBackendUnavailable is returned when a required converter binary or
	// automation server cannot be found
	ErrBackendUnavailable = errors.New("conversion backend unavailable")

	// ErrEngineUnavailable is returned when the requested extraction engine is
	// not installed
	ErrEngineUnavailable = errors.New("extraction engine unavailable")

	// ErrConversionFailed is returned when a converter ran but produced no usable output
	ErrConversionFailed = errors.New("conversion failed")

	// ErrExtractionFailed is returned when an extraction engine ran but failed
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrNotFound is returned when a job's artifacts do not exist
	ErrNotFound = errors.New("not found")
)

// BackendError names a missing external dependency so operators can tell it
// apart from a generic failure
type BackendError struct {
	Backend string
	Hint    string
	Err     error
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Backend, e.Err.Error())
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError creates a BackendError wrapping ErrBackendUnavailable
func NewBackendError(backend, hint string) error {
	return &BackendError{Backend: backend, Hint: hint, Err: ErrBackendUnavailable}
}

// NewEngineError creates a BackendError wrapping ErrEngineUnavailable
func NewEngineError(engine, hint string) error {
	return &BackendError{Backend: engine, Hint: hint, Err: ErrEngineUnavailable}
}

// ItemError records a fault on a single extracted item (one table, one image).
// It never fails the whole extraction.
type ItemError struct {
	Kind  string
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Kind, e.Index, e.Err.Error())
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
