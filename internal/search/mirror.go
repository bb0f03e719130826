// Package search provides the search index gateway: a deterministic,
// concurrency-safe, in-memory mirror of persisted entities that answers
// free-text queries.
//
// Documents are stored as the entity's JSON encoding together with a
// case-folded token set per field. A query is a whitespace separated list of
// clauses:
//
//	field:value   required; value must equal the field or cover its tokens
//	field:*       required; field must be non-null
//	"a phrase"    required; phrase must occur in some field
//	term          optional; ranks documents by Jaccard similarity
//
// An empty query or "*" matches every document. Results are ordered by score
// descending, then identity ascending.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-todo-backend/internal/domain"
)

// ErrNoIdentity is returned by Save for an entity that was never persisted.
var ErrNoIdentity = errors.New("search: entity has no identity")

type doc struct {
	id     int64
	source []byte
	values map[string]string              // folded scalar value per field
	fields map[string]map[string]struct{} // token set per field
	all    map[string]struct{}            // union of field tokens
	text   string                         // folded values joined by spaces
}

// Mirror is an in-memory search index for one entity type.
type Mirror[T domain.Entity] struct {
	name string
	newT func() T

	mu   sync.RWMutex
	docs map[int64]*doc
}

// NewMirror returns an empty Mirror. newT allocates a zero entity for
// decoding search hits.
func NewMirror[T domain.Entity](name string, newT func() T) *Mirror[T] {
	return &Mirror[T]{name: name, newT: newT, docs: make(map[int64]*doc)}
}

// NewTodoMirror returns the search index for todos.
func NewTodoMirror() *Mirror[*domain.Todo] {
	return NewMirror("todo", func() *domain.Todo { return new(domain.Todo) })
}

// NewCategoryMirror returns the search index for categories.
func NewCategoryMirror() *Mirror[*domain.Category] {
	return NewMirror("category", func() *domain.Category { return new(domain.Category) })
}

// Save upserts the document for e and returns e.
func (m *Mirror[T]) Save(ctx context.Context, e T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	id := e.GetID()
	if id == nil {
		return zero, ErrNoIdentity
	}
	d, err := newDoc(*id, e)
	if err != nil {
		return zero, fmt.Errorf("search: index %s %d: %w", m.name, *id, err)
	}
	m.mu.Lock()
	m.docs[*id] = d
	m.mu.Unlock()
	return e, nil
}

// DeleteByID removes the document for id. Missing documents are ignored.
func (m *Mirror[T]) DeleteByID(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.docs, id)
	m.mu.Unlock()
	return nil
}

// Clear drops every document.
func (m *Mirror[T]) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.docs = make(map[int64]*doc)
	m.mu.Unlock()
	return nil
}

// Len returns the number of indexed documents.
func (m *Mirror[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// Search evaluates query against a snapshot of the mirror and returns the
// matching entities. The snapshot is taken when the sequence is ranged over,
// so each iteration reflects the mirror at that moment.
func (m *Mirror[T]) Search(ctx context.Context, query string) (iter.Seq2[T, error], error) {
	q := parseQuery(query)
	return func(yield func(T, error) bool) {
		var zero T
		if err := ctx.Err(); err != nil {
			yield(zero, err)
			return
		}
		for _, h := range m.match(q) {
			e := m.newT()
			if err := json.Unmarshal(h.source, e); err != nil {
				yield(zero, fmt.Errorf("search: decode %s %d: %w", m.name, h.id, err))
				return
			}
			if !yield(e, nil) {
				return
			}
		}
	}, nil
}

type hit struct {
	id     int64
	source []byte
	score  float64
}

func (m *Mirror[T]) match(q query) []hit {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]hit, 0, len(m.docs))
	for _, d := range m.docs {
		if !q.accepts(d) {
			continue
		}
		score := 1.0
		if len(q.terms) > 0 {
			over := overlap(q.terms, d.all)
			if over == 0 {
				continue
			}
			score = float64(over) / float64(len(q.terms)+len(d.all)-over)
		}
		out = append(out, hit{id: d.id, source: d.source, score: score})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].score != out[b].score {
			return out[a].score > out[b].score
		}
		return out[a].id < out[b].id
	})
	return out
}

func newDoc(id int64, e any) (*doc, error) {
	src, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	d := &doc{
		id:     id,
		source: src,
		values: make(map[string]string, len(raw)),
		fields: make(map[string]map[string]struct{}, len(raw)),
		all:    make(map[string]struct{}),
	}
	names := make([]string, 0, len(raw))
	for k := range raw {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, k := range names {
		s, ok := scalar(raw[k])
		if !ok {
			continue
		}
		v := fold(s)
		d.values[fold(k)] = v
		toks := tokenize(v)
		d.fields[fold(k)] = toks
		for t := range toks {
			d.all[t] = struct{}{}
		}
		parts = append(parts, v)
	}
	d.text = strings.Join(parts, " ")
	return d, nil
}

func scalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case json.Number:
		return x.String(), true
	}
	return "", false
}

// ----------------------------------------------------------------------------
// Query parsing

type clause struct {
	field    string
	value    string
	wildcard bool
}

type query struct {
	clauses []clause
	phrases []string
	terms   map[string]struct{}
}

func (q query) accepts(d *doc) bool {
	for _, c := range q.clauses {
		v, ok := d.values[c.field]
		if !ok {
			return false
		}
		if c.wildcard || v == c.value {
			continue
		}
		want := tokenize(c.value)
		if len(want) == 0 || overlap(want, d.fields[c.field]) != len(want) {
			return false
		}
	}
	for _, p := range q.phrases {
		if !strings.Contains(d.text, p) {
			return false
		}
	}
	return true
}

func parseQuery(s string) query {
	q := query{terms: make(map[string]struct{})}
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return q
	}
	for _, part := range splitQuery(s) {
		if i := strings.IndexByte(part, ':'); i > 0 && !strings.HasPrefix(part, `"`) {
			field, value := fold(part[:i]), unquote(part[i+1:])
			if value == "" {
				continue
			}
			q.clauses = append(q.clauses, clause{field: field, value: fold(value), wildcard: value == "*"})
			continue
		}
		if strings.HasPrefix(part, `"`) {
			if p := fold(unquote(part)); p != "" {
				q.phrases = append(q.phrases, p)
			}
			continue
		}
		for t := range tokenize(fold(part)) {
			q.terms[t] = struct{}{}
		}
	}
	return q
}

// splitQuery splits on whitespace outside double quotes.
func splitQuery(s string) []string {
	var (
		out   []string
		cur   strings.Builder
		inQuo bool
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuo = !inQuo
			cur.WriteRune(r)
		case !inQuo && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

func unquote(s string) string {
	return strings.TrimSpace(strings.Trim(s, `"`))
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

// fold normalizes s to NFKC and applies Unicode case folding.
func fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

func tokenize(s string) map[string]struct{} {
	words := wordRE.FindAllString(s, -1)
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
