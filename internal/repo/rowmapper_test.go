package repo

import (
	"errors"
	"testing"
)

func todoRow() map[string]any {
	return map[string]any{
		"t_id":          int64(7),
		"t_task":        "write tests",
		"t_description": []byte("desc"),
		"t_completed":   int64(1),
		"t_category_id": int64(3),
	}
}

func TestProjection_Select_StableOrder(t *testing.T) {
	want := "t.id AS t_id, t.task AS t_task, t.description AS t_description, t.completed AS t_completed, t.category_id AS t_category_id"
	for i := 0; i < 3; i++ {
		if got := TodoProjection.Select(); got != want {
			t.Fatalf("Select() = %q, want %q", got, want)
		}
	}
}

func TestProjection_Lookup(t *testing.T) {
	for _, name := range []string{"categoryId", "category_id"} {
		f, ok := TodoProjection.Lookup(name)
		if !ok || f.Column != "category_id" || f.Kind != KindInt64 {
			t.Fatalf("Lookup(%q) = %+v, %v", name, f, ok)
		}
	}
	if _, ok := TodoProjection.Lookup("nope"); ok {
		t.Fatalf("unexpected match for unknown field")
	}
	if id := CategoryProjection.Identity(); id.Column != "id" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestDecode_FullRow(t *testing.T) {
	rec, err := TodoProjection.Decode(todoRow())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	todo := TodoMeta.FromRecord(rec)
	if *todo.ID != 7 || *todo.Task != "write tests" || *todo.Description != "desc" || !*todo.Completed || *todo.CategoryID != 3 {
		t.Fatalf("unexpected todo: %+v", todo)
	}
}

func TestDecode_NullOptionalFields(t *testing.T) {
	row := todoRow()
	row["t_task"] = nil
	row["t_description"] = nil
	row["t_completed"] = nil
	row["t_category_id"] = nil

	rec, err := TodoProjection.Decode(row)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	todo := TodoMeta.FromRecord(rec)
	if todo.ID == nil || *todo.ID != 7 {
		t.Fatalf("id lost: %+v", todo)
	}
	if todo.Task != nil || todo.Description != nil || todo.Completed != nil || todo.CategoryID != nil {
		t.Fatalf("expected nil optionals, got %+v", todo)
	}
}

func TestDecode_BoolRepresentations(t *testing.T) {
	cases := []struct {
		in   any
		want bool
	}{
		{true, true},
		{false, false},
		{int64(0), false},
		{int64(1), true},
		{"true", true},
		{[]byte("0"), false},
	}
	for _, tc := range cases {
		row := todoRow()
		row["t_completed"] = tc.in
		rec, err := TodoProjection.Decode(row)
		if err != nil {
			t.Fatalf("Decode(%v): %v", tc.in, err)
		}
		if got := rec.Bool("completed"); got == nil || *got != tc.want {
			t.Fatalf("completed from %#v = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDecode_Failures(t *testing.T) {
	cases := map[string]func(map[string]any){
		"null identity":     func(r map[string]any) { r["t_id"] = nil },
		"text identity":     func(r map[string]any) { r["t_id"] = "seven" },
		"fractional id":     func(r map[string]any) { r["t_id"] = 7.5 },
		"missing column":    func(r map[string]any) { delete(r, "t_description") },
		"int for text":      func(r map[string]any) { r["t_task"] = int64(5) },
		"garbage for bool":  func(r map[string]any) { r["t_completed"] = "maybe" },
		"text for category": func(r map[string]any) { r["t_category_id"] = "x" },
	}
	for name, mutate := range cases {
		row := todoRow()
		mutate(row)
		_, err := TodoProjection.Decode(row)
		var me *MappingError
		if !errors.As(err, &me) {
			t.Fatalf("%s: expected *MappingError, got %v", name, err)
		}
		if me.Column == "" {
			t.Fatalf("%s: mapping error without column", name)
		}
	}
}

func TestDecode_FloatIntegralID(t *testing.T) {
	row := todoRow()
	row["t_id"] = float64(42)
	rec, err := TodoProjection.Decode(row)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if id := rec.Int64("id"); id == nil || *id != 42 {
		t.Fatalf("id = %v", id)
	}
}
