// Package repo implements the primary store gateway for domain entities,
// backed by GORM.
//
// A Store is generic over the entity type and driven by a Meta value that
// carries the entity's table projection and record constructor. Reads go
// through Translate so that every SELECT shares the projection used by the
// row mapper; writes use GORM's model API.
//
// Error semantics:
//   - Insert with a preset identity returns ErrIdentityConflict.
//   - Update of an unknown identity returns ErrNotFound (gorm.ErrRecordNotFound).
//   - FindByID of an unknown identity returns ErrNotFound.
//   - Criteria problems surface as *InvalidCriteriaError before any I/O.
//   - Row decode problems surface as *MappingError from the sequence.
//   - DeleteByID is idempotent.
//   - Everything else is the raw gorm/driver error.
package repo

import (
	"context"
	"database/sql"
	"iter"

	"gorm.io/gorm"

	"github.com/tbourn/go-todo-backend/internal/domain"
)

// Meta describes how a Store maps an entity type to its table.
type Meta[T domain.Entity] struct {
	Name       string
	Projection Projection
	FromRecord func(Record) T
}

// Store is the primary store gateway for one entity type.
type Store[T domain.Entity] struct {
	db   *gorm.DB
	meta Meta[T]
}

// NewStore returns a Store over db for the entity described by meta.
func NewStore[T domain.Entity](db *gorm.DB, meta Meta[T]) *Store[T] {
	return &Store[T]{db: db, meta: meta}
}

// Insert persists a new entity and returns it with its assigned identity.
func (s *Store[T]) Insert(ctx context.Context, e T) (T, error) {
	if e.GetID() != nil {
		var zero T
		return zero, ErrIdentityConflict
	}
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		var zero T
		return zero, err
	}
	return e, nil
}

// Save inserts e when it has no identity and upserts it otherwise.
func (s *Store[T]) Save(ctx context.Context, e T) (T, error) {
	if e.GetID() == nil {
		return s.Insert(ctx, e)
	}
	if err := s.db.WithContext(ctx).Save(e).Error; err != nil {
		var zero T
		return zero, err
	}
	return e, nil
}

// Update replaces every non-identity column of an existing row. The
// existence check and the write are one UPDATE statement, so a row deleted
// concurrently yields ErrNotFound instead of being recreated.
func (s *Store[T]) Update(ctx context.Context, e T) (T, error) {
	var zero T
	if e.GetID() == nil {
		return zero, ErrMissingIdentity
	}
	id := s.meta.Projection.Identity().Column
	res := s.db.WithContext(ctx).Model(e).Select("*").Omit(id).Updates(e)
	if res.Error != nil {
		return zero, res.Error
	}
	if res.RowsAffected == 0 {
		return zero, ErrNotFound
	}
	return e, nil
}

// FindByID loads one entity or returns ErrNotFound.
func (s *Store[T]) FindByID(ctx context.Context, id int64) (T, error) {
	var zero T
	seq, err := s.FindAll(ctx, &Criteria{
		Predicates: []Predicate{{Field: s.meta.Projection.Identity().Name, Op: OpEquals, Value: id}},
		Page:       &Page{Limit: 1},
	})
	if err != nil {
		return zero, err
	}
	for e, err := range seq {
		return e, err
	}
	return zero, ErrNotFound
}

// ExistsByID reports whether a row with the given identity exists.
func (s *Store[T]) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Table(s.meta.Projection.Table).
		Where(s.meta.Projection.Identity().Column+" = ?", id).
		Count(&n).Error
	return n > 0, err
}

// Count returns the number of rows matching the predicates of c. Paging and
// sort are ignored.
func (s *Store[T]) Count(ctx context.Context, c *Criteria) (int64, error) {
	var filter Criteria
	if c != nil {
		filter.Predicates = c.Predicates
	}
	q, err := Translate(s.meta.Projection, &filter)
	if err != nil {
		return 0, err
	}
	var n int64
	err = s.db.WithContext(ctx).Raw("SELECT COUNT(*) FROM ("+q.SQL+") q", q.Args...).Scan(&n).Error
	return n, err
}

// FindAll returns a lazy sequence over the rows matching c (nil means all
// rows). The criteria are translated eagerly; the query runs each time the
// sequence is ranged over.
func (s *Store[T]) FindAll(ctx context.Context, c *Criteria) (iter.Seq2[T, error], error) {
	q, err := Translate(s.meta.Projection, c)
	if err != nil {
		return nil, err
	}
	return func(yield func(T, error) bool) {
		var zero T
		rows, err := s.db.WithContext(ctx).Raw(q.SQL, q.Args...).Rows()
		if err != nil {
			yield(zero, err)
			return
		}
		defer rows.Close()
		for rows.Next() {
			e, err := s.scan(rows)
			if !yield(e, err) || err != nil {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(zero, err)
		}
	}, nil
}

// DeleteByID removes the row with the given identity. Deleting an identity
// that does not exist is not an error.
func (s *Store[T]) DeleteByID(ctx context.Context, id int64) error {
	p := s.meta.Projection
	return s.db.WithContext(ctx).
		Exec("DELETE FROM "+p.Table+" WHERE "+p.Identity().Column+" = ?", id).Error
}

func (s *Store[T]) scan(rows *sql.Rows) (T, error) {
	var zero T
	cols, err := rows.Columns()
	if err != nil {
		return zero, err
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return zero, err
	}
	row := make(map[string]any, len(cols))
	for i, c := range cols {
		row[c] = vals[i]
	}
	rec, err := s.meta.Projection.Decode(row)
	if err != nil {
		return zero, err
	}
	return s.meta.FromRecord(rec), nil
}
