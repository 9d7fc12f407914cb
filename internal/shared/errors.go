package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrActorRequired is returned when a mutation runs without an actor in context.
	ErrActorRequired = errors.New("ACTOR_REQUIRED")
	// ErrCompanyMismatch indicates the actor or payload belongs to another tenant.
	ErrCompanyMismatch = errors.New("COMPANY_CONTEXT_MISMATCH")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden groups authorization failures.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict groups failures caused by the current state of an aggregate.
	ErrConflict = errors.New("conflict")
)

// KindError is a sentinel with its own message that also matches a broader
// category (ErrValidation, ErrConflict, ErrNotFound, ErrForbidden).
type KindError struct {
	Kind error
	Msg  string
}

// NewKindError builds a categorised sentinel.
func NewKindError(kind error, msg string) *KindError {
	return &KindError{Kind: kind, Msg: msg}
}

func (e *KindError) Error() string { return e.Msg }

func (e *KindError) Unwrap() error { return e.Kind }
