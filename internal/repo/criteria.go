package repo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Op is a comparison operator usable in a Predicate.
type Op string

const (
	OpEquals             Op = "equals"
	OpNotEquals          Op = "notEquals"
	OpGreaterThan        Op = "greaterThan"
	OpGreaterThanOrEqual Op = "greaterThanOrEqual"
	OpLessThan           Op = "lessThan"
	OpLessThanOrEqual    Op = "lessThanOrEqual"
	OpContains           Op = "contains"
	OpIn                 Op = "in"
	OpSpecified          Op = "specified"
)

var comparators = map[Op]string{
	OpEquals:             "=",
	OpNotEquals:          "<>",
	OpGreaterThan:        ">",
	OpGreaterThanOrEqual: ">=",
	OpLessThan:           "<",
	OpLessThanOrEqual:    "<=",
}

// ParseOp returns the operator named s.
func ParseOp(s string) (Op, bool) {
	op := Op(s)
	switch op {
	case OpContains, OpIn, OpSpecified:
		return op, true
	}
	_, ok := comparators[op]
	return op, ok
}

// Predicate compares one field against a value. Value may be a native
// int64/string/bool (or a slice of them for OpIn) or its textual form.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

// Page selects a window of the result. Limit <= 0 means unbounded. After,
// when set, switches to keyset paging on the identity column.
type Page struct {
	Offset int
	Limit  int
	After  *int64
}

// Order is one sort key.
type Order struct {
	Field string
	Desc  bool
}

// Criteria is a store-independent filter, paging and sort descriptor.
// Predicates are combined with AND.
type Criteria struct {
	Predicates []Predicate
	Page       *Page
	Sort       []Order
}

// Query is a translated statement with positional arguments.
type Query struct {
	SQL  string
	Args []any
}

// Translate renders c as a SELECT over p. The projection list always comes
// out in p.Fields order. Unknown fields, unsupported operators and values
// that do not fit the field's kind fail with *InvalidCriteriaError.
func Translate(p Projection, c *Criteria) (Query, error) {
	var (
		sb    strings.Builder
		args  []any
		where []string
	)
	sb.WriteString("SELECT ")
	sb.WriteString(p.Select())
	sb.WriteString(" FROM ")
	sb.WriteString(p.Table)
	sb.WriteString(" ")
	sb.WriteString(p.Alias)

	if c == nil {
		c = &Criteria{}
	}
	for _, pr := range c.Predicates {
		cond, a, err := predicate(p, pr)
		if err != nil {
			return Query{}, err
		}
		where = append(where, cond)
		args = append(args, a...)
	}

	id := p.Identity()
	if c.Page != nil && c.Page.After != nil {
		where = append(where, p.Qualified(id)+" > ?")
		args = append(args, *c.Page.After)
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	order, err := orderBy(p, c)
	if err != nil {
		return Query{}, err
	}
	if order != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(order)
	}

	if pg := c.Page; pg != nil {
		if pg.Offset < 0 {
			return Query{}, &InvalidCriteriaError{Reason: "negative offset"}
		}
		switch {
		case pg.Limit > 0:
			sb.WriteString(" LIMIT ?")
			args = append(args, pg.Limit)
		case pg.Offset > 0:
			sb.WriteString(" LIMIT ?")
			args = append(args, int64(math.MaxInt64))
		}
		if pg.Offset > 0 {
			sb.WriteString(" OFFSET ?")
			args = append(args, pg.Offset)
		}
	}
	return Query{SQL: sb.String(), Args: args}, nil
}

func predicate(p Projection, pr Predicate) (string, []any, error) {
	f, ok := p.Lookup(pr.Field)
	if !ok {
		return "", nil, &InvalidCriteriaError{Field: pr.Field, Op: pr.Op, Reason: "unknown field"}
	}
	col := p.Qualified(f)
	bad := func(reason string) error {
		return &InvalidCriteriaError{Field: pr.Field, Op: pr.Op, Reason: reason}
	}

	if cmp, ok := comparators[pr.Op]; ok {
		v, err := coerce(f.Kind, pr.Value)
		if err != nil {
			return "", nil, bad(err.Error())
		}
		return col + " " + cmp + " ?", []any{v}, nil
	}

	switch pr.Op {
	case OpContains:
		if f.Kind != KindString {
			return "", nil, bad("contains requires a text field")
		}
		v, err := coerce(KindString, pr.Value)
		if err != nil {
			return "", nil, bad(err.Error())
		}
		return "LOWER(" + col + `) LIKE ? ESCAPE '\'`, []any{"%" + escapeLike(strings.ToLower(v.(string))) + "%"}, nil

	case OpIn:
		vals, err := coerceList(f.Kind, pr.Value)
		if err != nil {
			return "", nil, bad(err.Error())
		}
		if len(vals) == 0 {
			return "", nil, bad("empty value list")
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(vals)), ", ")
		return col + " IN (" + marks + ")", vals, nil

	case OpSpecified:
		v, err := coerce(KindBool, pr.Value)
		if err != nil {
			return "", nil, bad(err.Error())
		}
		if v.(bool) {
			return col + " IS NOT NULL", nil, nil
		}
		return col + " IS NULL", nil, nil
	}
	return "", nil, bad("unsupported operator")
}

func orderBy(p Projection, c *Criteria) (string, error) {
	id := p.Identity()
	if c.Page != nil && c.Page.After != nil {
		for _, o := range c.Sort {
			f, ok := p.Lookup(o.Field)
			if !ok || !f.Identity || o.Desc {
				return "", &InvalidCriteriaError{Field: o.Field, Reason: "cursor paging requires ascending identity order"}
			}
		}
		return p.Qualified(id) + " ASC", nil
	}
	if len(c.Sort) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(c.Sort)+1)
	byID := false
	for _, o := range c.Sort {
		f, ok := p.Lookup(o.Field)
		if !ok {
			return "", &InvalidCriteriaError{Field: o.Field, Reason: "unknown sort field"}
		}
		dir := " ASC"
		if o.Desc {
			dir = " DESC"
		}
		keys = append(keys, p.Qualified(f)+dir)
		byID = byID || f.Identity
	}
	if !byID {
		keys = append(keys, p.Qualified(id)+" ASC")
	}
	return strings.Join(keys, ", "), nil
}

func coerce(k Kind, v any) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("null value")
	}
	switch k {
	case KindInt64:
		switch x := v.(type) {
		case int64:
			return x, nil
		case int:
			return int64(x), nil
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not an integer", x)
			}
			return n, nil
		}
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(x))
			if err != nil {
				return nil, fmt.Errorf("%q is not a boolean", x)
			}
			return b, nil
		}
	}
	return nil, fmt.Errorf("value of type %T does not fit %s", v, k)
}

func coerceList(k Kind, v any) ([]any, error) {
	var items []any
	switch x := v.(type) {
	case string:
		for _, s := range strings.Split(x, ",") {
			items = append(items, s)
		}
	case []string:
		for _, s := range x {
			items = append(items, s)
		}
	case []int64:
		for _, n := range x {
			items = append(items, n)
		}
	case []any:
		items = x
	default:
		items = []any{v}
	}
	out := make([]any, 0, len(items))
	for _, it := range items {
		c, err := coerce(k, it)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
