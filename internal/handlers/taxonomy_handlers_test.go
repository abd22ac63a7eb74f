package handlers

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCategoryDerivesSlug(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	mock.ExpectExec(sqlText("INSERT INTO categories (name, slug, description) VALUES (?, ?, ?)")).
		WithArgs("Home Garden", "home-garden", nil).
		WillReturnResult(sqlmock.NewResult(4, 1))

	w := serve(http.MethodPost, "/products/categories/", h.CreateCategory, 1, "/products/categories/", `{"name":"Home Garden"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"id":4,"name":"Home Garden","slug":"home-garden","description":null}`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCategoryDuplicateName(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	mock.ExpectExec(sqlText("INSERT INTO categories")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	w := serve(http.MethodPost, "/products/categories/", h.CreateCategory, 1, "/products/categories/", `{"name":"Books"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fieldsOf(t, w), "name")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCategoriesEmpty(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	mock.ExpectQuery(sqlText("SELECT id, name, slug, description FROM categories ORDER BY id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "description"}))

	w := serve(http.MethodGet, "/products/categories/", h.ListCategories, 0, "/products/categories/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCategoryKeepsUnsetFields(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery(sqlText("SELECT id, name, slug, description FROM categories WHERE id = ? FOR UPDATE")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "description"}).
			AddRow(int64(4), "Books", "books", "Paper things"))
	mock.ExpectExec(sqlText("UPDATE categories SET name = ?, slug = ?, description = ? WHERE id = ?")).
		WithArgs("Used Books", "used-books", "Paper things", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := serve(http.MethodPut, "/products/admin/categories/:id/", h.UpdateCategory, 1, "/products/admin/categories/4/", `{"name":"Used Books"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"id":4,"name":"Used Books","slug":"used-books","description":"Paper things"}`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTagLifecycle(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	mock.ExpectExec(sqlText("INSERT INTO tags (name, slug) VALUES (?, ?)")).
		WithArgs("Summer Sale", "summer-sale").
		WillReturnResult(sqlmock.NewResult(2, 1))
	w := serve(http.MethodPost, "/products/admin/tags/", h.CreateTag, 1, "/products/admin/tags/", `{"name":"Summer Sale"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":2,"name":"Summer Sale","slug":"summer-sale"}`, w.Body.String())

	mock.ExpectQuery(sqlText("SELECT id FROM tags WHERE id = ?")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	w = serve(http.MethodPut, "/products/admin/tags/:id/", h.UpdateTag, 1, "/products/admin/tags/3/", `{"name":"Winter"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	mock.ExpectExec(sqlText("DELETE FROM tags WHERE id = ?")).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	w = serve(http.MethodDelete, "/products/admin/tags/:id/", h.DeleteTag, 1, "/products/admin/tags/2/", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(http.MethodPost, "/products/admin/tags/", h.CreateTag, 1, "/products/admin/tags/", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}
