package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/01moynul/storefront-golang/internal/database"
	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
)

const (
	categoryNotFound = "Category not found"
	tagNotFound      = "Tag not found"
)

// --- Category Handlers ---

// ListCategories (Public)
func (h *Handlers) ListCategories(c *gin.Context) {
	rows, err := h.DB.QueryContext(c.Request.Context(), "SELECT id, name, slug, description FROM categories ORDER BY id ASC")
	if err != nil {
		serverError(c, "Database error", err)
		return
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.Description); err != nil {
			serverError(c, "Failed to scan category row", err)
			return
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		serverError(c, "Error iterating category rows", err)
		return
	}

	c.JSON(http.StatusOK, categories)
}

// CreateCategory (Admin Only)
func (h *Handlers) CreateCategory(c *gin.Context) {
	var input models.CreateCategoryInput
	if !bindJSON(c, &input) {
		return
	}

	cat := models.Category{Name: input.Name, Slug: slug.Make(input.Name), Description: input.Description}
	res, err := h.DB.ExecContext(c.Request.Context(),
		"INSERT INTO categories (name, slug, description) VALUES (?, ?, ?)", cat.Name, cat.Slug, cat.Description)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			fieldError(c, "name", "category with this name already exists.")
			return
		}
		serverError(c, "Failed to create category", err)
		return
	}

	cat.ID, _ = res.LastInsertId()
	c.JSON(http.StatusCreated, cat)
}

// UpdateCategory (Admin Only). Partial update; a new name also re-derives the slug.
func (h *Handlers) UpdateCategory(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseID(c, "id", categoryNotFound)
	if !ok {
		return
	}
	var input models.UpdateCategoryInput
	if !bindJSON(c, &input) {
		return
	}

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		serverError(c, "Failed to start transaction", err)
		return
	}
	defer tx.Rollback()

	var cat models.Category
	err = tx.QueryRowContext(ctx, "SELECT id, name, slug, description FROM categories WHERE id = ? FOR UPDATE", id).
		Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": categoryNotFound})
			return
		}
		serverError(c, "Database error", err)
		return
	}

	if input.Name != nil {
		cat.Name = *input.Name
		cat.Slug = slug.Make(cat.Name)
	}
	if input.Description != nil {
		cat.Description = input.Description
	}

	_, err = tx.ExecContext(ctx, "UPDATE categories SET name = ?, slug = ?, description = ? WHERE id = ?",
		cat.Name, cat.Slug, cat.Description, id)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			fieldError(c, "name", "category with this name already exists.")
			return
		}
		serverError(c, "Failed to update category", err)
		return
	}
	if err := tx.Commit(); err != nil {
		serverError(c, "Failed to commit transaction", err)
		return
	}

	c.JSON(http.StatusOK, cat)
}

// DeleteCategory (Admin Only). Products in the category are removed with it.
func (h *Handlers) DeleteCategory(c *gin.Context) {
	h.deleteByID(c, "categories", categoryNotFound)
}

// --- Tag Handlers ---

// ListTags (Admin Only)
func (h *Handlers) ListTags(c *gin.Context) {
	rows, err := h.DB.QueryContext(c.Request.Context(), "SELECT id, name, slug FROM tags ORDER BY id ASC")
	if err != nil {
		serverError(c, "Database error", err)
		return
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			serverError(c, "Failed to scan tag row", err)
			return
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		serverError(c, "Error iterating tag rows", err)
		return
	}

	c.JSON(http.StatusOK, tags)
}

// CreateTag (Admin Only)
func (h *Handlers) CreateTag(c *gin.Context) {
	var input models.TagInput
	if !bindJSON(c, &input) {
		return
	}

	t := models.Tag{Name: input.Name, Slug: slug.Make(input.Name)}
	res, err := h.DB.ExecContext(c.Request.Context(), "INSERT INTO tags (name, slug) VALUES (?, ?)", t.Name, t.Slug)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			fieldError(c, "name", "tag with this name already exists.")
			return
		}
		serverError(c, "Failed to create tag", err)
		return
	}

	t.ID, _ = res.LastInsertId()
	c.JSON(http.StatusCreated, t)
}

// UpdateTag (Admin Only)
func (h *Handlers) UpdateTag(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseID(c, "id", tagNotFound)
	if !ok {
		return
	}
	var input models.TagInput
	if !bindJSON(c, &input) {
		return
	}

	var existing int64
	err := h.DB.QueryRowContext(ctx, "SELECT id FROM tags WHERE id = ?", id).Scan(&existing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": tagNotFound})
			return
		}
		serverError(c, "Database error", err)
		return
	}

	t := models.Tag{ID: id, Name: input.Name, Slug: slug.Make(input.Name)}
	if _, err := h.DB.ExecContext(ctx, "UPDATE tags SET name = ?, slug = ? WHERE id = ?", t.Name, t.Slug, id); err != nil {
		if database.IsDuplicateEntry(err) {
			fieldError(c, "name", "tag with this name already exists.")
			return
		}
		serverError(c, "Failed to update tag", err)
		return
	}

	c.JSON(http.StatusOK, t)
}

// DeleteTag (Admin Only)
func (h *Handlers) DeleteTag(c *gin.Context) {
	h.deleteByID(c, "tags", tagNotFound)
}

// deleteByID removes one row from a fixed table and answers 204, or 404 if nothing matched.
func (h *Handlers) deleteByID(c *gin.Context, table, notFoundMsg string) {
	id, ok := parseID(c, "id", notFoundMsg)
	if !ok {
		return
	}

	result, err := h.DB.ExecContext(c.Request.Context(), fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
	if err != nil {
		serverError(c, "Failed to delete", err)
		return
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		serverError(c, "Failed to check affected rows", err)
		return
	}
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMsg})
		return
	}

	c.Status(http.StatusNoContent)
}
