package services

import (
	"context"
	"errors"
	"iter"
	"sort"
	"sync"

	"github.com/tbourn/go-todo-backend/internal/domain"
	"github.com/tbourn/go-todo-backend/internal/repo"
)

// seqIDs returns an id allocator counting up from 1. Each fake store gets
// its own allocator.
func seqIDs() func() int64 {
	var mu sync.Mutex
	var n int64
	return func() int64 {
		mu.Lock()
		defer mu.Unlock()
		n++
		return n
	}
}

func cloneTodo(t *domain.Todo) *domain.Todo {
	c := *t
	return &c
}

// ----- Fake primary store -----

type fakeTodoStore struct {
	mu     sync.Mutex
	nextID func() int64
	rows   map[int64]*domain.Todo

	// capture calls
	calls []string

	findAllErr error
	rowErr     error
	existsErr  error
}

func newFakeTodoStore(nextID func() int64) *fakeTodoStore {
	return &fakeTodoStore{nextID: nextID, rows: make(map[int64]*domain.Todo)}
}

func (s *fakeTodoStore) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

func (s *fakeTodoStore) Insert(_ context.Context, t *domain.Todo) (*domain.Todo, error) {
	s.record("insert")
	if t.ID != nil {
		return nil, repo.ErrIdentityConflict
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID()
	t.ID = &id
	s.rows[id] = cloneTodo(t)
	return t, nil
}

func (s *fakeTodoStore) Update(_ context.Context, t *domain.Todo) (*domain.Todo, error) {
	s.record("update")
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == nil {
		return nil, repo.ErrMissingIdentity
	}
	if _, ok := s.rows[*t.ID]; !ok {
		return nil, repo.ErrNotFound
	}
	s.rows[*t.ID] = cloneTodo(t)
	return t, nil
}

func (s *fakeTodoStore) FindByID(_ context.Context, id int64) (*domain.Todo, error) {
	s.record("findById")
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return cloneTodo(t), nil
}

func (s *fakeTodoStore) ExistsByID(_ context.Context, id int64) (bool, error) {
	s.record("existsById")
	if s.existsErr != nil {
		return false, s.existsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rows[id]
	return ok, nil
}

func (s *fakeTodoStore) snapshot() []*domain.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Todo, 0, len(s.rows))
	for _, t := range s.rows {
		out = append(out, cloneTodo(t))
	}
	sort.Slice(out, func(a, b int) bool { return *out[a].ID < *out[b].ID })
	return out
}

func (s *fakeTodoStore) FindAll(_ context.Context, _ *repo.Criteria) (iter.Seq2[*domain.Todo, error], error) {
	s.record("findAll")
	if s.findAllErr != nil {
		return nil, s.findAllErr
	}
	return func(yield func(*domain.Todo, error) bool) {
		for _, t := range s.snapshot() {
			if !yield(t, nil) {
				return
			}
		}
		if s.rowErr != nil {
			yield(nil, s.rowErr)
		}
	}, nil
}

func (s *fakeTodoStore) Count(_ context.Context, _ *repo.Criteria) (int64, error) {
	s.record("count")
	if s.findAllErr != nil {
		return 0, s.findAllErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.rows)), nil
}

func (s *fakeTodoStore) DeleteByID(_ context.Context, id int64) error {
	s.record("deleteById")
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

func (s *fakeTodoStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *fakeTodoStore) get(id int64) *domain.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.rows[id]; ok {
		return cloneTodo(t)
	}
	return nil
}

// ----- Fake search index -----

var errIndexDown = errors.New("index unavailable")

type fakeTodoIndex struct {
	mu   sync.Mutex
	docs map[int64]*domain.Todo

	// shared call log with the store, to assert sequencing
	log *[]string

	saveErr   error
	deleteErr error

	// beforeSave runs outside the lock before a document is stored.
	beforeSave func(*domain.Todo)
}

func newFakeTodoIndex() *fakeTodoIndex {
	return &fakeTodoIndex{docs: make(map[int64]*domain.Todo)}
}

func (x *fakeTodoIndex) Save(_ context.Context, t *domain.Todo) (*domain.Todo, error) {
	if x.beforeSave != nil {
		x.beforeSave(t)
	}
	if x.saveErr != nil {
		return nil, x.saveErr
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.docs[*t.ID] = cloneTodo(t)
	return t, nil
}

func (x *fakeTodoIndex) DeleteByID(_ context.Context, id int64) error {
	if x.log != nil {
		*x.log = append(*x.log, "index.deleteById")
	}
	if x.deleteErr != nil {
		return x.deleteErr
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.docs, id)
	return nil
}

func (x *fakeTodoIndex) Search(_ context.Context, q string) (iter.Seq2[*domain.Todo, error], error) {
	x.mu.Lock()
	out := make([]*domain.Todo, 0, len(x.docs))
	for _, t := range x.docs {
		if q == "*" || (t.Task != nil && *t.Task == q) {
			out = append(out, cloneTodo(t))
		}
	}
	x.mu.Unlock()
	sort.Slice(out, func(a, b int) bool { return *out[a].ID < *out[b].ID })
	return func(yield func(*domain.Todo, error) bool) {
		for _, t := range out {
			if !yield(t, nil) {
				return
			}
		}
	}, nil
}

func (x *fakeTodoIndex) Clear(_ context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.docs = make(map[int64]*domain.Todo)
	return nil
}

func (x *fakeTodoIndex) get(id int64) *domain.Todo {
	x.mu.Lock()
	defer x.mu.Unlock()
	if t, ok := x.docs[id]; ok {
		return cloneTodo(t)
	}
	return nil
}

func (x *fakeTodoIndex) len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.docs)
}
