// Entity HTTP handlers.
//
// EntityHandler implements the REST surface shared by every entity type:
//
//	POST   /{entities}            create (201 + Location)
//	PUT    /{entities}/{id}       full update
//	PATCH  /{entities}/{id}       merge-patch
//	GET    /{entities}/{id}       get one
//	GET    /{entities}            list (JSON array, or NDJSON when requested)
//	DELETE /{entities}/{id}       delete (204, idempotent)
//	GET    /_search/{entities}    free-text search
//
// Mutations carry the X-<app>-alert / X-<app>-params headers. A response
// whose search index mirror could not be updated still reports the primary
// outcome and adds X-Index-Propagation: failed.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/tbourn/go-todo-backend/internal/domain"
	"github.com/tbourn/go-todo-backend/internal/http/middleware"
	"github.com/tbourn/go-todo-backend/internal/repo"
)

const (
	mimeJSON       = "application/json"
	mimeMergePatch = "application/merge-patch+json"
	mimeNDJSON     = "application/x-ndjson"
)

// EntityService is the use-case surface the handlers depend on.
type EntityService[T domain.Entity] interface {
	Create(ctx context.Context, e T) (T, error)
	Update(ctx context.Context, id int64, e T) (T, error)
	Patch(ctx context.Context, id int64, patch T) (T, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (T, error)
	List(ctx context.Context, c *repo.Criteria) ([]T, error)
	Stream(ctx context.Context, c *repo.Criteria) (iter.Seq2[T, error], error)
	Count(ctx context.Context, c *repo.Criteria) (int64, error)
	Search(ctx context.Context, query string) ([]T, error)
}

// IdempotencyStore records which entity a create request produced so that
// a retry with the same Idempotency-Key gets the same entity back.
type IdempotencyStore interface {
	Get(ctx context.Context, scope, key string) (*domain.Idempotency, error)
	Create(ctx context.Context, scope, key string, entityID int64, status int, ttl time.Duration) (*domain.Idempotency, error)
}

// EntityHandler serves one entity type.
type EntityHandler[T domain.Entity] struct {
	// Entity is the singular name used in alerts and error envelopes.
	Entity string
	// App prefixes the alert headers.
	App string
	// New allocates an empty payload to bind request bodies into.
	New func() T

	Svc            EntityService[T]
	Idem           IdempotencyStore // optional
	IdempotencyTTL time.Duration
}

// pathID parses the :id route parameter.
func (h *EntityHandler[T]) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		failEntity(c, http.StatusBadRequest, ErrCodeIDInvalid, h.Entity, "id must be an integer")
		return 0, false
	}
	return id, true
}

// bind decodes the JSON body into a fresh payload.
func (h *EntityHandler[T]) bind(c *gin.Context) (T, bool) {
	e := h.New()
	if err := c.ShouldBindWith(e, binding.JSON); err != nil {
		var zero T
		failEntity(c, http.StatusBadRequest, ErrCodeBadRequest, h.Entity, "invalid JSON body")
		return zero, false
	}
	return e, true
}

// Create handles POST /{entities}.
func (h *EntityHandler[T]) Create(c *gin.Context) {
	ctx := c.Request.Context()
	key, hasKey := middleware.GetIdempotencyKey(c)
	scope := middleware.IdempotencyScope(c)

	if hasKey && h.Idem != nil && h.replay(c, scope, key) {
		return
	}

	e, okBind := h.bind(c)
	if !okBind {
		return
	}
	created, err := h.Svc.Create(ctx, e)
	if !settle(c, h.Entity, err) {
		return
	}
	id := *created.GetID()

	// Best effort: a lost record only means a retry creates a second entity.
	if hasKey && h.Idem != nil {
		if _, err := h.Idem.Create(ctx, scope, key, id, http.StatusCreated, h.IdempotencyTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			middleware.LoggerFrom(c).Warn().Err(err).Str("entity", h.Entity).Msg("idempotency record not stored")
		}
	}

	c.Header("Location", h.location(c, id))
	alert(c, h.App, h.Entity, "created", id)
	ok(c, http.StatusCreated, created)
}

// replay serves the entity recorded for (scope, key), if it still exists.
func (h *EntityHandler[T]) replay(c *gin.Context, scope, key string) bool {
	ctx := c.Request.Context()
	rec, err := h.Idem.Get(ctx, scope, key)
	if err != nil || rec == nil {
		return false
	}
	prev, err := h.Svc.Get(ctx, rec.EntityID)
	if err != nil {
		return false
	}
	c.Header(middleware.HeaderIdempotencyReplayed, "true")
	c.Header("Location", h.location(c, rec.EntityID))
	ok(c, rec.Status, prev)
	return true
}

// location is the URL of entity id under the collection route that served c.
func (h *EntityHandler[T]) location(c *gin.Context, id int64) string {
	base := c.FullPath()
	if base == "" {
		base = c.Request.URL.Path
	}
	return strings.TrimSuffix(base, "/") + "/" + strconv.FormatInt(id, 10)
}

// Update handles PUT /{entities}/{id}.
func (h *EntityHandler[T]) Update(c *gin.Context) {
	id, okID := h.pathID(c)
	if !okID {
		return
	}
	e, okBind := h.bind(c)
	if !okBind {
		return
	}
	updated, err := h.Svc.Update(c.Request.Context(), id, e)
	if !settle(c, h.Entity, err) {
		return
	}
	alert(c, h.App, h.Entity, "updated", id)
	ok(c, http.StatusOK, updated)
}

// Patch handles PATCH /{entities}/{id} with a JSON merge-patch body.
func (h *EntityHandler[T]) Patch(c *gin.Context) {
	switch c.ContentType() {
	case mimeJSON, mimeMergePatch:
	default:
		failEntity(c, http.StatusUnsupportedMediaType, ErrCodeUnsupportedMediaType, h.Entity,
			"content type must be "+mimeMergePatch+" or "+mimeJSON)
		return
	}
	id, okID := h.pathID(c)
	if !okID {
		return
	}
	patch, okBind := h.bind(c)
	if !okBind {
		return
	}
	merged, err := h.Svc.Patch(c.Request.Context(), id, patch)
	if !settle(c, h.Entity, err) {
		return
	}
	alert(c, h.App, h.Entity, "updated", id)
	ok(c, http.StatusOK, merged)
}

// Get handles GET /{entities}/{id}.
func (h *EntityHandler[T]) Get(c *gin.Context) {
	id, okID := h.pathID(c)
	if !okID {
		return
	}
	e, err := h.Svc.Get(c.Request.Context(), id)
	if !settle(c, h.Entity, err) {
		return
	}
	ok(c, http.StatusOK, e)
}

// Delete handles DELETE /{entities}/{id}.
func (h *EntityHandler[T]) Delete(c *gin.Context) {
	id, okID := h.pathID(c)
	if !okID {
		return
	}
	if !settle(c, h.Entity, h.Svc.Delete(c.Request.Context(), id)) {
		return
	}
	alert(c, h.App, h.Entity, "deleted", id)
	noContent(c)
}

// List handles GET /{entities}. Clients asking for application/x-ndjson get
// one JSON document per line, written as rows are read.
func (h *EntityHandler[T]) List(c *gin.Context) {
	crit, err := parseCriteria(c.Request.URL.Query())
	if err != nil {
		failEntity(c, http.StatusBadRequest, ErrCodeInvalidCriteria, h.Entity, err.Error())
		return
	}
	if strings.Contains(c.GetHeader("Accept"), mimeNDJSON) {
		h.stream(c, crit)
		return
	}

	ctx := c.Request.Context()
	items, err := h.Svc.List(ctx, crit)
	if !settle(c, h.Entity, err) {
		return
	}
	total := int64(len(items))
	if crit.Page != nil {
		if total, err = h.Svc.Count(ctx, crit); !settle(c, h.Entity, err) {
			return
		}
	}
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	ok(c, http.StatusOK, items)
}

func (h *EntityHandler[T]) stream(c *gin.Context, crit *repo.Criteria) {
	seq, err := h.Svc.Stream(c.Request.Context(), crit)
	if !settle(c, h.Entity, err) {
		return
	}

	enc := json.NewEncoder(c.Writer)
	started := false
	begin := func() {
		if !started {
			started = true
			c.Header("Content-Type", mimeNDJSON)
			c.Status(http.StatusOK)
		}
	}
	for e, err := range seq {
		if err != nil {
			if !started {
				settle(c, h.Entity, err)
				return
			}
			// Status is already on the wire; cut the stream short.
			middleware.LoggerFrom(c).Error().Err(err).Str("entity", h.Entity).Msg("stream aborted")
			c.Abort()
			return
		}
		begin()
		if err := enc.Encode(e); err != nil {
			c.Abort()
			return
		}
		c.Writer.Flush()
	}
	begin()
	c.Writer.WriteHeaderNow()
}

// Search handles GET /_search/{entities}?query=.
func (h *EntityHandler[T]) Search(c *gin.Context) {
	items, err := h.Svc.Search(c.Request.Context(), c.Query("query"))
	if !settle(c, h.Entity, err) {
		return
	}
	ok(c, http.StatusOK, items)
}
