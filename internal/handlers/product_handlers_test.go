package handlers

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProductsPriceRangeAndOrdering(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	mock.ExpectQuery(sqlText("SELECT COUNT(*) FROM products p WHERE p.price >= ? AND p.price <= ?")).
		WithArgs("10", "20").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	rows := productRows()
	addProduct(rows, 2, "Atlas", "20.00")
	addProduct(rows, 3, "Novel", "15.50")
	addProduct(rows, 1, "Notebook", "10.00")
	mock.ExpectQuery(sqlText(productsQuery+" WHERE p.price >= ? AND p.price <= ? ORDER BY p.price DESC, p.id ASC LIMIT ? OFFSET ?")).
		WithArgs("10", "20", 10, 0).
		WillReturnRows(rows)
	mock.ExpectQuery(sqlText(tagsQuery)).
		WithArgs(int64(2), int64(3), int64(1)).
		WillReturnRows(tagRows().AddRow(int64(3), int64(4), "Fiction", "fiction"))

	w := serve(http.MethodGet, "/products/", h.ListProducts, 0, "/products/?price_min=10&price_max=20&order_by=-price", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.EqualValues(t, 3, body["total"])
	assert.EqualValues(t, 1, body["page"])
	assert.EqualValues(t, 10, body["page_size"])

	results := body["results"].([]interface{})
	require.Len(t, results, 3)
	var prices []string
	for _, r := range results {
		prices = append(prices, r.(map[string]interface{})["price"].(string))
	}
	assert.Equal(t, []string{"20.00", "15.50", "10.00"}, prices)

	novel := results[1].(map[string]interface{})
	assert.Equal(t, "Books", novel["category"].(map[string]interface{})["name"])
	assert.Len(t, novel["tags"], 1)
	assert.Empty(t, results[0].(map[string]interface{})["tags"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProductsSecondPage(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	mock.ExpectQuery(sqlText("SELECT COUNT(*) FROM products p")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	rows := productRows()
	for id := int64(6); id <= 10; id++ {
		addProduct(rows, id, "Item", "1.00")
	}
	mock.ExpectQuery(sqlText(productsQuery+" ORDER BY p.id ASC LIMIT ? OFFSET ?")).
		WithArgs(5, 5).
		WillReturnRows(rows)
	mock.ExpectQuery(sqlText(tagsQuery)).WillReturnRows(tagRows())

	w := serve(http.MethodGet, "/products/", h.ListProducts, 0, "/products/?page=2&page_size=5", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.EqualValues(t, 12, body["total"])
	assert.EqualValues(t, 2, body["page"])
	results := body["results"].([]interface{})
	require.Len(t, results, 5)
	assert.EqualValues(t, 6, results[0].(map[string]interface{})["id"])
	assert.EqualValues(t, 10, results[4].(map[string]interface{})["id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProductsRejectsBadQuery(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	for target, field := range map[string]string{
		"/products/?page=abc":      "page",
		"/products/?page_size=0":   "page_size",
		"/products/?price_min=ten": "price_min",
		"/products/?category=x":    "category",
	} {
		w := serve(http.MethodGet, "/products/", h.ListProducts, 0, target, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Contains(t, fieldsOf(t, w), field, target)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductNotFound(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	mock.ExpectQuery(sqlText(productsQuery + " WHERE p.id = ?")).
		WithArgs(int64(404)).
		WillReturnRows(productRows())

	w := serve(http.MethodGet, "/products/:id/", h.GetProduct, 0, "/products/404/", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, productNotFound, decode(t, w)["error"])

	w = serve(http.MethodGet, "/products/:id/", h.GetProduct, 0, "/products/abc/", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProductValidatesPrice(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	cases := []struct {
		body, msg string
	}{
		{`{"name":"Lamp","category":1}`, "This field is required."},
		{`{"name":"Lamp","category":1,"price":"-1"}`, "Ensure this value is greater than or equal to 0."},
		{`{"name":"Lamp","category":1,"price":"1.005"}`, "Ensure that there are no more than 2 decimal places."},
	}
	for _, tc := range cases {
		w := serve(http.MethodPost, "/products/admin/", h.CreateProduct, 1, "/products/admin/", tc.body)
		require.Equal(t, http.StatusBadRequest, w.Code, tc.body)
		assert.Equal(t, tc.msg, fieldsOf(t, w)["price"], tc.body)
	}

	w := serve(http.MethodPost, "/products/admin/", h.CreateProduct, 1, "/products/admin/", `{"price":"1.00"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := fieldsOf(t, w)
	assert.Equal(t, "This field is required.", fields["name"])
	assert.Equal(t, "This field is required.", fields["category"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProductUnknownCategory(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	mock.ExpectBegin()
	mock.ExpectExec(sqlText("INSERT INTO products")).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "foreign key constraint fails"})
	mock.ExpectRollback()

	w := serve(http.MethodPost, "/products/admin/", h.CreateProduct, 1, "/products/admin/",
		`{"name":"Lamp","price":"12.5","category":99}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fieldsOf(t, w), "category")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProductWithTags(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	mock.ExpectBegin()
	mock.ExpectExec(sqlText("INSERT INTO products (name, description, price, image, category_id, created_at)")).
		WithArgs("Lamp", nil, "12.50", nil, int64(1)).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(sqlText("DELETE FROM product_tags WHERE product_id = ?")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(sqlText("INSERT INTO product_tags (product_id, tag_id) VALUES (?, ?), (?, ?)")).
		WithArgs(int64(7), int64(2), int64(7), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	mock.ExpectQuery(sqlText(productsQuery + " WHERE p.id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(addProduct(productRows(), 7, "Lamp", "12.50"))
	mock.ExpectQuery(sqlText(tagsQuery)).
		WithArgs(int64(7)).
		WillReturnRows(tagRows().
			AddRow(int64(7), int64(2), "Home", "home").
			AddRow(int64(7), int64(3), "Light", "light"))

	w := serve(http.MethodPost, "/products/admin/", h.CreateProduct, 1, "/products/admin/",
		`{"name":"Lamp","price":"12.5","category":1,"tags":[2,3,2]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"id":7,"name":"Lamp","description":null,"price":"12.50","image":null,"category":1,"tags":[2,3]}`,
		w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProductPartial(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery(sqlText("SELECT id FROM products WHERE id = ? FOR UPDATE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(sqlText("UPDATE products SET price = ? WHERE id = ?")).
		WithArgs("9.99", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(sqlText(productsQuery + " WHERE p.id = ?")).
		WillReturnRows(addProduct(productRows(), 7, "Lamp", "9.99"))
	mock.ExpectQuery(sqlText(tagsQuery)).WillReturnRows(tagRows())

	w := serve(http.MethodPut, "/products/admin/:id/", h.UpdateProduct, 1, "/products/admin/7/", `{"price":"9.99"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "9.99", decode(t, w)["price"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProductMissing(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery(sqlText("SELECT id FROM products WHERE id = ? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	w := serve(http.MethodPut, "/products/admin/:id/", h.UpdateProduct, 1, "/products/admin/8/", `{"name":"New"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProduct(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	mock.ExpectExec(sqlText("DELETE FROM products WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(sqlText("DELETE FROM products WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := serve(http.MethodDelete, "/products/admin/:id/", h.DeleteProduct, 1, "/products/admin/7/", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(http.MethodDelete, "/products/admin/:id/", h.DeleteProduct, 1, "/products/admin/7/", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
