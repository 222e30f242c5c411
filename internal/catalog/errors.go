package catalog

import (
	"errors"
	"fmt"
)

// Error taxonomy surfaced to transports. Match with errors.Is.
var (
	// ErrMalformedInput marks a caller-supplied value that failed a presence or
	// shape check. It is always reported before any side effect.
	ErrMalformedInput = errors.New("catalog: malformed input")
	// ErrNotFound marks a well-formed lookup that matched nothing.
	ErrNotFound = errors.New("catalog: not found")
	// ErrStorageFault marks a failure in the image store or a repository.
	ErrStorageFault = errors.New("catalog: storage fault")
)

// FieldError identifies the input field that made a request malformed.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrMalformedInput }

func storageFault(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageFault, op, err)
}
