package repo

import (
	"gorm.io/gorm"

	"github.com/tbourn/go-todo-backend/internal/domain"
)

// CategoryProjection is the column layout of the category table.
var CategoryProjection = Projection{
	Table: "category",
	Alias: "c",
	Fields: []Field{
		{Name: "id", Column: "id", Kind: KindInt64, Identity: true},
		{Name: "name", Column: "name", Kind: KindString},
		{Name: "description", Column: "description", Kind: KindString},
		{Name: "active", Column: "active", Kind: KindBool},
	},
}

// CategoryMeta binds domain.Category to CategoryProjection.
var CategoryMeta = Meta[*domain.Category]{
	Name:       "category",
	Projection: CategoryProjection,
	FromRecord: func(r Record) *domain.Category {
		return &domain.Category{
			ID:          r.Int64("id"),
			Name:        r.String("name"),
			Description: r.String("description"),
			Active:      r.Bool("active"),
		}
	},
}

// NewCategoryStore returns the primary store gateway for categories.
func NewCategoryStore(db *gorm.DB) *Store[*domain.Category] {
	return NewStore(db, CategoryMeta)
}
