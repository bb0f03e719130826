// Category HTTP handlers. Same surface as todos; list filters are id, name,
// description and active.
package handlers

import "github.com/gin-gonic/gin"

// CreateCategory godoc
// @ID          createCategory
// @Summary     Create a category
// @Description Persists a new category and mirrors it into the search index.
// @Description Supports idempotent retries via the Idempotency-Key header.
// @Tags        Categories
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string       false  "Idempotency key for safe retries"
// @Param       body             body    domain.Category  true   "Category without id"
//
// @Success     201  {object}  domain.Category
// @Failure     400  {object}  handlers.ErrorResponse  "id_exists or bad_request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /categories [post]
func (h *Handlers) CreateCategory(c *gin.Context) { h.categories.Create(c) }

// UpdateCategory godoc
// @ID          updateCategory
// @Summary     Replace a category
// @Tags        Categories
// @Accept      json
// @Produce     json
//
// @Param       id    path  int          true  "Category id"
// @Param       body  body  domain.Category  true  "Full category, id must match the path"
//
// @Success     200  {object}  domain.Category
// @Failure     400  {object}  handlers.ErrorResponse  "id_null, id_invalid or bad_request"
// @Failure     404  {object}  handlers.ErrorResponse  "Category not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /categories/{id} [put]
func (h *Handlers) UpdateCategory(c *gin.Context) { h.categories.Update(c) }

// PatchCategory godoc
// @ID          patchCategory
// @Summary     Partially update a category
// @Description Non-null fields of the body overwrite the stored category; null or absent fields are kept.
// @Tags        Categories
// @Accept      application/merge-patch+json
// @Accept      json
// @Produce     json
//
// @Param       id    path  int          true  "Category id"
// @Param       body  body  domain.Category  true  "Partial category, id must match the path"
//
// @Success     200  {object}  domain.Category
// @Failure     400  {object}  handlers.ErrorResponse  "id_null, id_invalid or bad_request"
// @Failure     404  {object}  handlers.ErrorResponse  "Category not found"
// @Failure     415  {object}  handlers.ErrorResponse  "Unsupported content type"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /categories/{id} [patch]
func (h *Handlers) PatchCategory(c *gin.Context) { h.categories.Patch(c) }

// GetCategory godoc
// @ID          getCategory
// @Summary     Get a category
// @Tags        Categories
// @Produce     json
// @Param       id  path  int  true  "Category id"
// @Success     200  {object}  domain.Category
// @Failure     404  {object}  handlers.ErrorResponse  "Category not found"
// @Router      /categories/{id} [get]
func (h *Handlers) GetCategory(c *gin.Context) { h.categories.Get(c) }

// ListCategories godoc
// @ID          listCategories
// @Summary     List categories
// @Tags        Categories
// @Produce     json
// @Produce     application/x-ndjson
//
// @Param       sort   query  string  false  "field[,asc|desc]"
// @Param       page   query  int     false  "Zero-based page"  minimum(0)
// @Param       size   query  int     false  "Page size"        minimum(1) maximum(1000) default(20)
// @Param       after  query  int     false  "Return categories with a greater id"
//
// @Success     200  {array}   domain.Category
// @Header      200  {integer} X-Total-Count  "Number of matching categories"
// @Failure     400  {object}  handlers.ErrorResponse  "invalid_criteria"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /categories [get]
func (h *Handlers) ListCategories(c *gin.Context) { h.categories.List(c) }

// DeleteCategory godoc
// @ID          deleteCategory
// @Summary     Delete a category
// @Description Deleting an unknown id succeeds.
// @Tags        Categories
// @Param       id  path  int  true  "Category id"
// @Success     204
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /categories/{id} [delete]
func (h *Handlers) DeleteCategory(c *gin.Context) { h.categories.Delete(c) }

// SearchCategories godoc
// @ID          searchCategories
// @Summary     Search categories
// @Description Free-text query against the search mirror, e.g. "home", "name:home", "active:true", "id:7".
// @Tags        Categories
// @Produce     json
// @Param       query  query  string  false  "Query expression"
// @Success     200  {array}   domain.Category
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /_search/categories [get]
func (h *Handlers) SearchCategories(c *gin.Context) { h.categories.Search(c) }
