package repo

import (
	"gorm.io/gorm"

	"github.com/tbourn/go-todo-backend/internal/domain"
)

// TodoProjection is the column layout of the todo table.
var TodoProjection = Projection{
	Table: "todo",
	Alias: "t",
	Fields: []Field{
		{Name: "id", Column: "id", Kind: KindInt64, Identity: true},
		{Name: "task", Column: "task", Kind: KindString},
		{Name: "description", Column: "description", Kind: KindString},
		{Name: "completed", Column: "completed", Kind: KindBool},
		{Name: "categoryId", Column: "category_id", Kind: KindInt64},
	},
}

// TodoMeta binds domain.Todo to TodoProjection.
var TodoMeta = Meta[*domain.Todo]{
	Name:       "todo",
	Projection: TodoProjection,
	FromRecord: func(r Record) *domain.Todo {
		return &domain.Todo{
			ID:          r.Int64("id"),
			Task:        r.String("task"),
			Description: r.String("description"),
			Completed:   r.Bool("completed"),
			CategoryID:  r.Int64("categoryId"),
		}
	},
}

// NewTodoStore returns the primary store gateway for todos.
func NewTodoStore(db *gorm.DB) *Store[*domain.Todo] {
	return NewStore(db, TodoMeta)
}
