package shared

import (
	"errors"
	"fmt"
)

// Warning reports a failure that happened after the in-memory state was
// committed, e.g. a failed flush to the durable store or a failing event
// handler. The committed result is still returned to the caller.
type Warning struct {
	Op  string
	Err error
}

func (w *Warning) Error() string {
	return fmt.Sprintf("warning: %s: %v", w.Op, w.Err)
}

func (w *Warning) Unwrap() error {
	return w.Err
}

// NewWarning wraps err as a post-commit warning. A nil err yields nil.
func NewWarning(op string, err error) error {
	if err == nil {
		return nil
	}
	var w *Warning
	if errors.As(err, &w) {
		return err
	}
	return &Warning{Op: op, Err: err}
}

// IsWarning reports whether err only carries post-commit warnings.
func IsWarning(err error) bool {
	if err == nil {
		return false
	}
	var w *Warning
	return errors.As(err, &w)
}

// JoinWarnings merges warnings from several post-commit steps.
func JoinWarnings(errs ...error) error {
	var kept []error
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return &Warning{Op: "post-commit", Err: errors.Join(kept...)}
}
