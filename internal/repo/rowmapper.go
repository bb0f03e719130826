package repo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the semantic type of a projected field.
type Kind int

const (
	KindInt64 Kind = iota
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt64:
		return "int64"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Field describes one projected column.
type Field struct {
	Name     string // JSON/criteria name, e.g. "categoryId"
	Column   string // column name, e.g. "category_id"
	Kind     Kind
	Identity bool
}

// Projection is the ordered column list for one entity type. The criteria
// translator selects columns in this order under Alias, and Decode reads them
// back by the same alias, so both sides always agree on the row shape.
type Projection struct {
	Table  string
	Alias  string
	Fields []Field
}

// Key is the result-set column name of f, e.g. "t_category_id".
func (p Projection) Key(f Field) string { return p.Alias + "_" + f.Column }

// Qualified is the aliased column reference of f, e.g. "t.category_id".
func (p Projection) Qualified(f Field) string { return p.Alias + "." + f.Column }

// Select renders the projection list of the SELECT clause.
func (p Projection) Select() string {
	cols := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		cols[i] = p.Qualified(f) + " AS " + p.Key(f)
	}
	return strings.Join(cols, ", ")
}

// Lookup resolves a field by its JSON name or its column name.
func (p Projection) Lookup(name string) (Field, bool) {
	for _, f := range p.Fields {
		if f.Name == name || f.Column == name {
			return f, true
		}
	}
	return Field{}, false
}

// Identity returns the identity field. Every projection has exactly one.
func (p Projection) Identity() Field {
	for _, f := range p.Fields {
		if f.Identity {
			return f
		}
	}
	panic("repo: projection " + p.Table + " has no identity field")
}

// Record is a decoded row keyed by field name. Values are int64, string,
// bool or nil.
type Record map[string]any

func (r Record) Int64(name string) *int64 {
	if v, ok := r[name].(int64); ok {
		return &v
	}
	return nil
}

func (r Record) String(name string) *string {
	if v, ok := r[name].(string); ok {
		return &v
	}
	return nil
}

func (r Record) Bool(name string) *bool {
	if v, ok := r[name].(bool); ok {
		return &v
	}
	return nil
}

// Decode extracts every projected field from a raw row keyed by result-set
// column name. A column missing from the row or holding a value that cannot
// represent the field's kind is a *MappingError. Null is accepted for every
// field except the identity.
func (p Projection) Decode(row map[string]any) (Record, error) {
	rec := make(Record, len(p.Fields))
	for _, f := range p.Fields {
		key := p.Key(f)
		raw, ok := row[key]
		if !ok {
			return nil, &MappingError{Column: key, Reason: "column absent from row"}
		}
		if raw == nil {
			if f.Identity {
				return nil, &MappingError{Column: key, Reason: "identity is null"}
			}
			rec[f.Name] = nil
			continue
		}
		v, err := convert(f.Kind, raw)
		if err != nil {
			return nil, &MappingError{Column: key, Reason: err.Error()}
		}
		rec[f.Name] = v
	}
	return rec, nil
}

func convert(k Kind, raw any) (any, error) {
	switch k {
	case KindInt64:
		return toInt64(raw)
	case KindString:
		switch v := raw.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		}
	case KindBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case int64:
			return v != 0, nil
		case []byte:
			return strconv.ParseBool(string(v))
		case string:
			return strconv.ParseBool(v)
		}
	}
	return nil, fmt.Errorf("cannot read %T as %s", raw, k)
}

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", v)
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
			return 0, fmt.Errorf("value %v is not an integer", v)
		}
		return int64(v), nil
	}
	return 0, fmt.Errorf("cannot read %T as int64", raw)
}
