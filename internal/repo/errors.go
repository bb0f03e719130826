package repo

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a record with the requested identity does
	// not exist. It aliases gorm.ErrRecordNotFound so either can be matched.
	ErrNotFound = gorm.ErrRecordNotFound

	// ErrIdentityConflict is returned by Insert when the payload already
	// carries an identity.
	ErrIdentityConflict = errors.New("identity already assigned")

	// ErrMissingIdentity is returned by Update when the payload has no identity.
	ErrMissingIdentity = errors.New("identity required")
)

// InvalidCriteriaError reports a predicate, sort key or page descriptor that
// cannot be translated against a projection.
type InvalidCriteriaError struct {
	Field  string
	Op     Op
	Reason string
}

func (e *InvalidCriteriaError) Error() string {
	switch {
	case e.Field != "" && e.Op != "":
		return fmt.Sprintf("invalid criteria %s.%s: %s", e.Field, e.Op, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("invalid criteria %s: %s", e.Field, e.Reason)
	default:
		return "invalid criteria: " + e.Reason
	}
}

// MappingError reports a row that could not be decoded into an entity.
type MappingError struct {
	Column string
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("map column %s: %s", e.Column, e.Reason)
}
