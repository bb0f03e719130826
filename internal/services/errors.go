// Package services defines the use cases for todos and categories.
// This file centralizes the service-level error kinds so that they can be
// consistently returned by service methods and checked by callers with
// errors.Is.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"

	"github.com/tbourn/go-todo-backend/internal/repo"
)

var (
	// ErrIdentityConflict is returned when a create payload already carries an id.
	ErrIdentityConflict = errors.New("a new entity cannot already have an id")

	// ErrMissingIdentity is returned when an update payload has no id.
	ErrMissingIdentity = errors.New("invalid id: null")

	// ErrIdentityMismatch is returned when the payload id differs from the
	// target id.
	ErrIdentityMismatch = errors.New("invalid id: does not match target")

	// ErrNotFound is returned when the target id does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidCriteria is returned for filters, sort keys or pages that
	// cannot be applied.
	ErrInvalidCriteria = errors.New("invalid criteria")

	// ErrMapping is returned when a stored row cannot be decoded.
	ErrMapping = errors.New("row mapping failed")

	// ErrIndexPropagation is returned alongside a successful primary write
	// when mirroring it into the search index failed.
	ErrIndexPropagation = errors.New("search index propagation failed")
)

// EntityError carries the entity name and operation with one of the kinds
// above. Kind may be nil for unexpected store failures.
type EntityError struct {
	Entity string
	Op     string
	Kind   error
	Err    error
}

func (e *EntityError) Error() string {
	msg := e.Entity + " " + e.Op
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Err != nil && e.Err != e.Kind {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EntityError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil && e.Err != e.Kind {
		out = append(out, e.Err)
	}
	return out
}

// classify maps a gateway error onto a service kind.
func classify(err error) error {
	var (
		ice *repo.InvalidCriteriaError
		me  *repo.MappingError
	)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repo.ErrIdentityConflict):
		return ErrIdentityConflict
	case errors.Is(err, repo.ErrMissingIdentity):
		return ErrMissingIdentity
	case errors.As(err, &ice):
		return ErrInvalidCriteria
	case errors.As(err, &me):
		return ErrMapping
	}
	return nil
}
