// Todo HTTP handlers.
//
// Thin, documented entry points over EntityHandler for the todo collection.
// Filters on list: id, task, description, completed, categoryId; e.g.
// categoryId.equals=3 lists one category, categoryId.specified=false lists
// the uncategorized todos.
package handlers

import "github.com/gin-gonic/gin"

// CreateTodo godoc
// @ID          createTodo
// @Summary     Create a todo
// @Description Persists a new todo and mirrors it into the search index.
// @Description Supports idempotent retries via the Idempotency-Key header.
// @Tags        Todos
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string       false  "Idempotency key for safe retries"
// @Param       body             body    domain.Todo  true   "Todo without id"
//
// @Success     201  {object}  domain.Todo
// @Failure     400  {object}  handlers.ErrorResponse  "id_exists or bad_request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /todos [post]
func (h *Handlers) CreateTodo(c *gin.Context) { h.todos.Create(c) }

// UpdateTodo godoc
// @ID          updateTodo
// @Summary     Replace a todo
// @Tags        Todos
// @Accept      json
// @Produce     json
//
// @Param       id    path  int          true  "Todo id"
// @Param       body  body  domain.Todo  true  "Full todo, id must match the path"
//
// @Success     200  {object}  domain.Todo
// @Failure     400  {object}  handlers.ErrorResponse  "id_null, id_invalid or bad_request"
// @Failure     404  {object}  handlers.ErrorResponse  "Todo not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /todos/{id} [put]
func (h *Handlers) UpdateTodo(c *gin.Context) { h.todos.Update(c) }

// PatchTodo godoc
// @ID          patchTodo
// @Summary     Partially update a todo
// @Description Non-null fields of the body overwrite the stored todo; null or absent fields are kept.
// @Tags        Todos
// @Accept      application/merge-patch+json
// @Accept      json
// @Produce     json
//
// @Param       id    path  int          true  "Todo id"
// @Param       body  body  domain.Todo  true  "Partial todo, id must match the path"
//
// @Success     200  {object}  domain.Todo
// @Failure     400  {object}  handlers.ErrorResponse  "id_null, id_invalid or bad_request"
// @Failure     404  {object}  handlers.ErrorResponse  "Todo not found"
// @Failure     415  {object}  handlers.ErrorResponse  "Unsupported content type"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /todos/{id} [patch]
func (h *Handlers) PatchTodo(c *gin.Context) { h.todos.Patch(c) }

// GetTodo godoc
// @ID          getTodo
// @Summary     Get a todo
// @Tags        Todos
// @Produce     json
// @Param       id  path  int  true  "Todo id"
// @Success     200  {object}  domain.Todo
// @Failure     404  {object}  handlers.ErrorResponse  "Todo not found"
// @Router      /todos/{id} [get]
func (h *Handlers) GetTodo(c *gin.Context) { h.todos.Get(c) }

// ListTodos godoc
// @ID          listTodos
// @Summary     List todos
// @Description Filters are <field>.<op>=value (equals, notEquals, greaterThan, greaterThanOrEqual,
// @Description lessThan, lessThanOrEqual, contains, in, specified). Send Accept: application/x-ndjson
// @Description to receive one todo per line.
// @Tags        Todos
// @Produce     json
// @Produce     application/x-ndjson
//
// @Param       sort   query  string  false  "field[,asc|desc]"
// @Param       page   query  int     false  "Zero-based page"  minimum(0)
// @Param       size   query  int     false  "Page size"        minimum(1) maximum(1000) default(20)
// @Param       after  query  int     false  "Return todos with a greater id"
//
// @Success     200  {array}   domain.Todo
// @Header      200  {integer} X-Total-Count  "Number of matching todos"
// @Failure     400  {object}  handlers.ErrorResponse  "invalid_criteria"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /todos [get]
func (h *Handlers) ListTodos(c *gin.Context) { h.todos.List(c) }

// DeleteTodo godoc
// @ID          deleteTodo
// @Summary     Delete a todo
// @Description Deleting an unknown id succeeds.
// @Tags        Todos
// @Param       id  path  int  true  "Todo id"
// @Success     204
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /todos/{id} [delete]
func (h *Handlers) DeleteTodo(c *gin.Context) { h.todos.Delete(c) }

// SearchTodos godoc
// @ID          searchTodos
// @Summary     Search todos
// @Description Free-text query against the search mirror, e.g. "milk", "task:milk", "id:42", "\"buy milk\"".
// @Tags        Todos
// @Produce     json
// @Param       query  query  string  false  "Query expression"
// @Success     200  {array}   domain.Todo
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /_search/todos [get]
func (h *Handlers) SearchTodos(c *gin.Context) { h.todos.Search(c) }
