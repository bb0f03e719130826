// Package domain defines the persistence models for todos and categories.
// These types are mapped with GORM for the primary store and serialized as
// JSON documents for the search index mirror.
package domain

// Entity is implemented by every record type that the primary store assigns
// an identity to. A nil identity means the record has never been persisted.
type Entity interface {
	GetID() *int64
	SetID(id *int64)
}

// Todo is a task, optionally filed under a Category.
//
// Fields:
//   - ID: assigned by the primary store on insert; immutable thereafter.
//   - Task: short task text (required for creation, not enforced here).
//   - Description: optional long text.
//   - Completed: optional completion flag.
//   - CategoryID: optional reference to a Category; nil means uncategorized.
type Todo struct {
	ID          *int64  `json:"id"          gorm:"column:id;primaryKey;autoIncrement"`
	Task        *string `json:"task"        gorm:"column:task;type:varchar(255)"`
	Description *string `json:"description" gorm:"column:description;type:varchar(255)"`
	Completed   *bool   `json:"completed"   gorm:"column:completed"`
	CategoryID  *int64  `json:"categoryId"  gorm:"column:category_id;index:idx_todo_category"`
}

// TableName returns the database table name for Todo.
func (Todo) TableName() string { return "todo" }

func (t *Todo) GetID() *int64   { return t.ID }
func (t *Todo) SetID(id *int64) { t.ID = id }

// Equal reports identity equality: both ids must be non-nil and equal.
// A todo without an id is never equal to anything, itself included.
func (t *Todo) Equal(o *Todo) bool {
	if t == nil || o == nil || t.ID == nil || o.ID == nil {
		return false
	}
	return *t.ID == *o.ID
}

// Merge copies every non-nil field of patch onto t. The identity is left
// untouched. Nil in patch means "omitted"; an explicit clear cannot be
// expressed through a merge.
func (t *Todo) Merge(patch *Todo) {
	if patch == nil {
		return
	}
	if patch.Task != nil {
		t.Task = patch.Task
	}
	if patch.Description != nil {
		t.Description = patch.Description
	}
	if patch.Completed != nil {
		t.Completed = patch.Completed
	}
	if patch.CategoryID != nil {
		t.CategoryID = patch.CategoryID
	}
}

// Category groups todos.
type Category struct {
	ID          *int64  `json:"id"          gorm:"column:id;primaryKey;autoIncrement"`
	Name        *string `json:"name"        gorm:"column:name;type:varchar(255)"`
	Description *string `json:"description" gorm:"column:description;type:varchar(255)"`
	Active      *bool   `json:"active"      gorm:"column:active"`
}

// TableName returns the database table name for Category.
func (Category) TableName() string { return "category" }

func (c *Category) GetID() *int64   { return c.ID }
func (c *Category) SetID(id *int64) { c.ID = id }

// Equal reports identity equality, with the same nil rule as Todo.Equal.
func (c *Category) Equal(o *Category) bool {
	if c == nil || o == nil || c.ID == nil || o.ID == nil {
		return false
	}
	return *c.ID == *o.ID
}

// Merge copies every non-nil field of patch onto c.
func (c *Category) Merge(patch *Category) {
	if patch == nil {
		return
	}
	if patch.Name != nil {
		c.Name = patch.Name
	}
	if patch.Description != nil {
		c.Description = patch.Description
	}
	if patch.Active != nil {
		c.Active = patch.Active
	}
}

// Ptr returns a pointer to v. Handy for building entities in code and tests.
func Ptr[T any](v T) *T { return &v }
