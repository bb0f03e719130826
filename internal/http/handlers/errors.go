// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are stable, machine-readable identifiers returned in the error
// envelope next to the entity name, so that clients can branch on them
// without parsing messages.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "id_exists",
//	  "entity": "todo",
//	  "message": "a new todo cannot already have an id"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/tbourn/go-todo-backend/internal/http/middleware"
	"github.com/tbourn/go-todo-backend/internal/repo"
	"github.com/tbourn/go-todo-backend/internal/services"
)

const (
	ErrCodeBadRequest           = "bad_request"
	ErrCodeNotFound             = "not_found"
	ErrCodeMethodNotAllowed     = "method_not_allowed"
	ErrCodeUnsupportedMediaType = "unsupported_media_type"
	ErrCodeInternal             = "internal_error"

	// Entity use cases:
	ErrCodeIDExists        = "id_exists"
	ErrCodeIDNull          = "id_null"
	ErrCodeIDInvalid       = "id_invalid"
	ErrCodeInvalidCriteria = "invalid_criteria"
	ErrCodeMappingFailed   = "mapping_failed"
)

// HeaderIndexPropagation marks a success whose index write failed.
const HeaderIndexPropagation = middleware.HeaderIndexPropagation

// statusFor maps a service error onto (status, code, message).
func statusFor(entity string, err error) (int, string, string) {
	switch {
	case errors.Is(err, services.ErrIdentityConflict):
		return http.StatusBadRequest, ErrCodeIDExists, "a new " + entity + " cannot already have an id"
	case errors.Is(err, services.ErrMissingIdentity):
		return http.StatusBadRequest, ErrCodeIDNull, "invalid id: null"
	case errors.Is(err, services.ErrIdentityMismatch):
		return http.StatusBadRequest, ErrCodeIDInvalid, "invalid id: does not match the path"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound, entity + " not found"
	case errors.Is(err, services.ErrInvalidCriteria):
		var ice *repo.InvalidCriteriaError
		if errors.As(err, &ice) {
			return http.StatusBadRequest, ErrCodeInvalidCriteria, ice.Error()
		}
		return http.StatusBadRequest, ErrCodeInvalidCriteria, services.ErrInvalidCriteria.Error()
	case errors.Is(err, services.ErrMapping):
		return http.StatusInternalServerError, ErrCodeMappingFailed, "stored " + entity + " could not be read"
	}
	return http.StatusInternalServerError, ErrCodeInternal, err.Error()
}
