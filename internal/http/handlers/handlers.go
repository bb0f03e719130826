package handlers

import (
	"time"

	"github.com/tbourn/go-todo-backend/internal/domain"
)

//
// Handler wiring
//

// Options carries the transport settings shared by all entity handlers.
type Options struct {
	// App prefixes the alert headers (X-<App>-alert).
	App string
	// IdempotencyTTL bounds how long a create can be replayed.
	IdempotencyTTL time.Duration
}

// Handlers groups the HTTP endpoints for todos and categories.
type Handlers struct {
	todos      *EntityHandler[*domain.Todo]
	categories *EntityHandler[*domain.Category]
}

// New constructs a Handlers instance bound to the given services. idem may be
// nil, which disables create replays.
func New(todos EntityService[*domain.Todo], categories EntityService[*domain.Category], idem IdempotencyStore, opts Options) *Handlers {
	if opts.App == "" {
		opts.App = "todoApp"
	}
	return &Handlers{
		todos: &EntityHandler[*domain.Todo]{
			Entity:         "todo",
			App:            opts.App,
			New:            func() *domain.Todo { return &domain.Todo{} },
			Svc:            todos,
			Idem:           idem,
			IdempotencyTTL: opts.IdempotencyTTL,
		},
		categories: &EntityHandler[*domain.Category]{
			Entity:         "category",
			App:            opts.App,
			New:            func() *domain.Category { return &domain.Category{} },
			Svc:            categories,
			Idem:           idem,
			IdempotencyTTL: opts.IdempotencyTTL,
		},
	}
}
