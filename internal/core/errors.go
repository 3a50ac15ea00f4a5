package core

import (
	"errors"
	"fmt"

	"bookclub/pkg/domain"
)

// ErrNotFound is returned when a referenced entity does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ErrForbidden is returned when the actor lacks the relationship an operation
// requires, such as replying to a transaction they do not lend.
type ErrForbidden struct {
	Operation string
	ActorID   int64
	Reason    string
}

func (e ErrForbidden) Error() string {
	return fmt.Sprintf("%s forbidden for user %d: %s", e.Operation, e.ActorID, e.Reason)
}

// ErrPreconditionFailed is returned when a guard rejects an operation: a book
// that is not available, a self-borrow, an invalid transition or date range.
type ErrPreconditionFailed struct {
	Reason string
	Err    error
}

func (e ErrPreconditionFailed) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("precondition failed: %s: %v", e.Reason, e.Err)
	}
	return "precondition failed: " + e.Reason
}

func (e ErrPreconditionFailed) Unwrap() error { return e.Err }

func precondition(reason string) error {
	return ErrPreconditionFailed{Reason: reason}
}

// ErrorKind classifies service errors for callers such as a web layer.
type ErrorKind int

// Error kinds.
const (
	KindNone ErrorKind = iota
	KindNotFound
	KindForbidden
	KindPreconditionFailed
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindPreconditionFailed:
		return "precondition_failed"
	default:
		return "internal"
	}
}

// KindOf maps err to its kind. Blocking rule violations and invalid state
// transitions count as failed preconditions.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var (
		notFound     ErrNotFound
		forbidden    ErrForbidden
		precond      ErrPreconditionFailed
		rules        domain.RuleViolationError
		invalidState domain.InvalidTransitionError
	)
	switch {
	case errors.As(err, &notFound):
		return KindNotFound
	case errors.As(err, &forbidden):
		return KindForbidden
	case errors.As(err, &precond), errors.As(err, &rules), errors.As(err, &invalidState):
		return KindPreconditionFailed
	default:
		return KindInternal
	}
}
