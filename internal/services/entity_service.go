// Package services – EntityService
//
// EntityService owns the use cases of one entity type and is the only
// component that sequences the primary store and the search index. Each
// mutating use case runs its steps strictly in order and stops at the first
// failure:
//
//	Create: reject preset id -> insert -> index save
//	Update: id present -> id matches -> exists -> update -> index save
//	Patch:  id present -> id matches -> exists -> load -> merge -> update -> index save
//	Delete: primary delete -> index delete
//
// A failed index step does not undo the primary write. The use case returns
// its normal result together with an *EntityError of kind
// ErrIndexPropagation, logs a warning through the context logger and counts
// the failure in index_propagation_failures_total.
//
// No lock spans the primary write and the index write, so two concurrent
// updates of the same id may leave the index holding the loser's state until
// the next write or reindex.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// carry the entity name and, where applicable, its id.
package services

import (
	"context"
	"iter"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-todo-backend/internal/domain"
	"github.com/tbourn/go-todo-backend/internal/observability"
	"github.com/tbourn/go-todo-backend/internal/repo"
)

// Store is the primary store gateway used by EntityService.
type Store[T domain.Entity] interface {
	Insert(ctx context.Context, e T) (T, error)
	Update(ctx context.Context, e T) (T, error)
	FindByID(ctx context.Context, id int64) (T, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	FindAll(ctx context.Context, c *repo.Criteria) (iter.Seq2[T, error], error)
	Count(ctx context.Context, c *repo.Criteria) (int64, error)
	DeleteByID(ctx context.Context, id int64) error
}

// Index is the search index gateway used by EntityService.
type Index[T domain.Entity] interface {
	Save(ctx context.Context, e T) (T, error)
	DeleteByID(ctx context.Context, id int64) error
	Search(ctx context.Context, query string) (iter.Seq2[T, error], error)
	Clear(ctx context.Context) error
}

// EntityService implements the use cases for entity type T.
type EntityService[T domain.Entity] struct {
	Name  string
	Store Store[T]
	Index Index[T]
	// Merge copies the non-nil fields of patch onto dst.
	Merge func(dst, patch T)
}

// NewTodoService wires the todo use cases.
func NewTodoService(store Store[*domain.Todo], index Index[*domain.Todo]) *EntityService[*domain.Todo] {
	return &EntityService[*domain.Todo]{Name: "todo", Store: store, Index: index, Merge: (*domain.Todo).Merge}
}

// NewCategoryService wires the category use cases.
func NewCategoryService(store Store[*domain.Category], index Index[*domain.Category]) *EntityService[*domain.Category] {
	return &EntityService[*domain.Category]{Name: "category", Store: store, Index: index, Merge: (*domain.Category).Merge}
}

func (s *EntityService[T]) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("entity", s.Name))
	return observability.Tracer("services").Start(ctx, op, trace.WithAttributes(attrs...))
}

// fail wraps err as an *EntityError and records it on span.
func (s *EntityService[T]) fail(span trace.Span, op string, kind, err error) error {
	if kind == nil {
		kind = classify(err)
	}
	if err == nil {
		err = kind
	}
	e := &EntityError{Entity: s.Name, Op: op, Kind: kind, Err: err}
	span.RecordError(e)
	span.SetStatus(codes.Error, e.Error())
	return e
}

// propagationFailed reports a failed index step after a successful primary write.
func (s *EntityService[T]) propagationFailed(ctx context.Context, span trace.Span, op string, id int64, err error) error {
	indexPropagationFailures.WithLabelValues(s.Name, op).Inc()
	zerolog.Ctx(ctx).Warn().
		Err(err).
		Str("entity", s.Name).
		Str("op", op).
		Int64("id", id).
		Msg("search index propagation failed")
	e := &EntityError{Entity: s.Name, Op: op, Kind: ErrIndexPropagation, Err: err}
	span.RecordError(e)
	return e
}

// Create persists e, which must not carry an id, and mirrors it into the index.
func (s *EntityService[T]) Create(ctx context.Context, e T) (T, error) {
	ctx, span := s.start(ctx, "Create")
	defer span.End()
	var zero T

	if e.GetID() != nil {
		return zero, s.fail(span, "create", ErrIdentityConflict, nil)
	}
	created, err := s.Store.Insert(ctx, e)
	if err != nil {
		return zero, s.fail(span, "create", nil, err)
	}
	id := *created.GetID()
	span.SetAttributes(attribute.Int64("entity.id", id))
	if _, err := s.Index.Save(ctx, created); err != nil {
		return created, s.propagationFailed(ctx, span, "create", id, err)
	}
	return created, nil
}

// Update fully replaces the entity at id with e.
func (s *EntityService[T]) Update(ctx context.Context, id int64, e T) (T, error) {
	ctx, span := s.start(ctx, "Update", attribute.Int64("entity.id", id))
	defer span.End()
	var zero T

	if err := s.checkTarget(ctx, span, "update", id, e); err != nil {
		return zero, err
	}
	updated, err := s.Store.Update(ctx, e)
	if err != nil {
		return zero, s.fail(span, "update", nil, err)
	}
	if _, err := s.Index.Save(ctx, updated); err != nil {
		return updated, s.propagationFailed(ctx, span, "update", id, err)
	}
	return updated, nil
}

// Patch merges the non-nil fields of patch into the entity at id.
func (s *EntityService[T]) Patch(ctx context.Context, id int64, patch T) (T, error) {
	ctx, span := s.start(ctx, "Patch", attribute.Int64("entity.id", id))
	defer span.End()
	var zero T

	if err := s.checkTarget(ctx, span, "patch", id, patch); err != nil {
		return zero, err
	}
	cur, err := s.Store.FindByID(ctx, id)
	if err != nil {
		return zero, s.fail(span, "patch", nil, err)
	}
	s.Merge(cur, patch)
	merged, err := s.Store.Update(ctx, cur)
	if err != nil {
		return zero, s.fail(span, "patch", nil, err)
	}
	if _, err := s.Index.Save(ctx, merged); err != nil {
		return merged, s.propagationFailed(ctx, span, "patch", id, err)
	}
	return merged, nil
}

// checkTarget runs the identity preconditions shared by Update and Patch.
func (s *EntityService[T]) checkTarget(ctx context.Context, span trace.Span, op string, id int64, e T) error {
	got := e.GetID()
	if got == nil {
		return s.fail(span, op, ErrMissingIdentity, nil)
	}
	if *got != id {
		return s.fail(span, op, ErrIdentityMismatch, nil)
	}
	ok, err := s.Store.ExistsByID(ctx, id)
	if err != nil {
		return s.fail(span, op, nil, err)
	}
	if !ok {
		return s.fail(span, op, ErrNotFound, nil)
	}
	return nil
}

// Delete removes id from the primary store, then from the index. Deleting an
// unknown id succeeds.
func (s *EntityService[T]) Delete(ctx context.Context, id int64) error {
	ctx, span := s.start(ctx, "Delete", attribute.Int64("entity.id", id))
	defer span.End()

	if err := s.Store.DeleteByID(ctx, id); err != nil {
		return s.fail(span, "delete", nil, err)
	}
	if err := s.Index.DeleteByID(ctx, id); err != nil {
		return s.propagationFailed(ctx, span, "delete", id, err)
	}
	return nil
}

// Get loads one entity or fails with ErrNotFound.
func (s *EntityService[T]) Get(ctx context.Context, id int64) (T, error) {
	ctx, span := s.start(ctx, "Get", attribute.Int64("entity.id", id))
	defer span.End()

	e, err := s.Store.FindByID(ctx, id)
	if err != nil {
		var zero T
		return zero, s.fail(span, "get", nil, err)
	}
	return e, nil
}

// List materializes every entity matching c.
func (s *EntityService[T]) List(ctx context.Context, c *repo.Criteria) ([]T, error) {
	ctx, span := s.start(ctx, "List")
	defer span.End()

	seq, err := s.Store.FindAll(ctx, c)
	if err != nil {
		return nil, s.fail(span, "list", nil, err)
	}
	out, err := collect(seq)
	if err != nil {
		return nil, s.fail(span, "list", nil, err)
	}
	span.SetAttributes(attribute.Int("result.count", len(out)))
	return out, nil
}

// Stream returns the lazy sequence behind List. Criteria errors surface
// immediately; row errors surface from the sequence as *EntityError.
//
// The Stream span stays open while the caller ranges over the sequence, so
// the store's query spans nest under it. Callers must range the sequence
// (to completion or early break) for the span to end.
func (s *EntityService[T]) Stream(ctx context.Context, c *repo.Criteria) (iter.Seq2[T, error], error) {
	ctx, span := s.start(ctx, "Stream")

	seq, err := s.Store.FindAll(ctx, c)
	if err != nil {
		err = s.fail(span, "stream", nil, err)
		span.End()
		return nil, err
	}
	return func(yield func(T, error) bool) {
		defer span.End()
		n := 0
		for e, err := range seq {
			if err != nil {
				var zero T
				yield(zero, s.fail(span, "stream", nil, err))
				return
			}
			if !yield(e, nil) {
				break
			}
			n++
		}
		span.SetAttributes(attribute.Int("result.count", n))
	}, nil
}

// Count returns the number of entities matching the predicates of c.
func (s *EntityService[T]) Count(ctx context.Context, c *repo.Criteria) (int64, error) {
	ctx, span := s.start(ctx, "Count")
	defer span.End()

	n, err := s.Store.Count(ctx, c)
	if err != nil {
		return 0, s.fail(span, "count", nil, err)
	}
	return n, nil
}

// Search runs a free-text query against the index.
func (s *EntityService[T]) Search(ctx context.Context, query string) ([]T, error) {
	ctx, span := s.start(ctx, "Search", attribute.String("query", query))
	defer span.End()

	seq, err := s.Index.Search(ctx, query)
	if err != nil {
		return nil, s.fail(span, "search", nil, err)
	}
	out, err := collect(seq)
	if err != nil {
		return nil, s.fail(span, "search", nil, err)
	}
	span.SetAttributes(attribute.Int("result.count", len(out)))
	return out, nil
}

// Reindex clears the index and mirrors every stored entity into it. It
// returns the number of entities indexed.
func (s *EntityService[T]) Reindex(ctx context.Context) (int, error) {
	ctx, span := s.start(ctx, "Reindex")
	defer span.End()

	if err := s.Index.Clear(ctx); err != nil {
		return 0, s.fail(span, "reindex", nil, err)
	}
	seq, err := s.Store.FindAll(ctx, nil)
	if err != nil {
		return 0, s.fail(span, "reindex", nil, err)
	}
	n := 0
	for e, err := range seq {
		if err != nil {
			return n, s.fail(span, "reindex", nil, err)
		}
		if _, err := s.Index.Save(ctx, e); err != nil {
			return n, s.fail(span, "reindex", ErrIndexPropagation, err)
		}
		n++
	}
	span.SetAttributes(attribute.Int("result.count", n))
	return n, nil
}

func collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	out := []T{}
	for e, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
