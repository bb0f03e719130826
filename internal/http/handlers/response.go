// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all endpoints:
// the error envelope, the service-error mapping and the mutation alert
// headers.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "entity": "todo",
//	  "message": "todo not found"
//	}
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-todo-backend/internal/http/middleware"
	"github.com/tbourn/go-todo-backend/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Entity the failed operation addressed, when there is one
	Entity string `json:"entity,omitempty" example:"todo"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"todo not found"`
}

// fail aborts the request with an entity-less error envelope.
func fail(c *gin.Context, status int, code, msg string) {
	failEntity(c, status, code, "", msg)
}

// failEntity aborts the request with a structured error and logs server-side
// errors with the request-scoped logger.
func failEntity(c *gin.Context, status int, code, entity, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Entity:    entity,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("entity", entity).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// settle inspects the error of a use case. It returns true when the caller
// should write its success response: either err is nil or only the search
// index propagation failed, in which case the propagation header is set.
// Any other error is written as an envelope.
func settle(c *gin.Context, entity string, err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, services.ErrIndexPropagation) {
		c.Header(HeaderIndexPropagation, "failed")
		return true
	}
	status, code, msg := statusFor(entity, err)
	failEntity(c, status, code, entity, msg)
	return false
}

// alert sets the mutation notification headers:
//
//	X-<app>-alert:  <app>.<entity>.<action>
//	X-<app>-params: <id>
func alert(c *gin.Context, app, entity, action string, id int64) {
	c.Header("X-"+app+"-alert", app+"."+entity+"."+action)
	c.Header("X-"+app+"-params", strconv.FormatInt(id, 10))
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
