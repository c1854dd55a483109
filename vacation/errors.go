/*
errors.go - Error kinds surfaced by the vacation core

ERROR KINDS:
  ErrNotFound               Referenced vacation id does not exist
  ErrForbidden              Actor does not own the vacation
  ErrInvalidState           Transition not permitted from the current status
  ErrValidation             Malformed input (date range, empty ids, ...)
  ErrConcurrentModification Status changed between read and write

Each kind has a sentinel for errors.Is and, where useful, a structured type
carrying context for errors.As. The HTTP layer maps kinds to status codes;
the core never converts one kind into another.

SEE ALSO:
  - api/errors.go: Kind to HTTP status mapping
*/
package vacation

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrNotFound               = errors.New("vacation not found")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidState           = errors.New("invalid state transition")
	ErrValidation             = errors.New("validation failed")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

type NotFoundError struct {
	ID ID
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("vacation %d not found", e.ID) }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ForbiddenError is returned when someone other than the owner acts on a request.
type ForbiddenError struct {
	ID    ID
	Actor string
	Owner string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("user %q does not own vacation %d", e.Actor, e.ID)
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// TransitionError describes a rejected status change.
type TransitionError struct {
	ID   ID
	From Status
	To   Status
	Op   string // operation that attempted the change, e.g. "approve"
}

func (e *TransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("%s: vacation %d cannot be changed in status %s", e.Op, e.ID, e.From)
	}
	return fmt.Sprintf("%s: vacation %d cannot move from %s to %s", e.Op, e.ID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidState }

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError is returned when a compare-and-swap write loses a race.
type ConflictError struct {
	ID       ID
	Expected Status
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("vacation %d is no longer %s", e.ID, e.Expected)
}

func (e *ConflictError) Unwrap() error { return ErrConcurrentModification }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsClientError returns true if the error is due to the caller's request.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrValidation)
}

// IsRetryable returns true if the operation might succeed after re-reading.
func IsRetryable(err error) bool { return errors.Is(err, ErrConcurrentModification) }

// Kind names an error category for metrics labels and API error codes.
type Kind string

const (
	KindNotFound     Kind = "NOT_FOUND"
	KindForbidden    Kind = "FORBIDDEN"
	KindInvalidState Kind = "INVALID_STATE"
	KindValidation   Kind = "VALIDATION_FAILED"
	KindConflict     Kind = "CONFLICT"
	KindInternal     Kind = "INTERNAL"
)

// KindOf classifies err. Anything not raised by the core is KindInternal.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConcurrentModification):
		return KindConflict
	default:
		return KindInternal
	}
}
