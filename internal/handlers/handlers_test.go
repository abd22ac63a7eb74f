package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/01moynul/storefront-golang/internal/auth"
	"github.com/01moynul/storefront-golang/internal/middleware"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type recordingFeed struct {
	events []interface{}
}

func (f *recordingFeed) Publish(v interface{}) {
	f.events = append(f.events, v)
}

func newTestHandlers(t *testing.T) (*Handlers, sqlmock.Sqlmock, *recordingFeed) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	feed := &recordingFeed{}
	h := &Handlers{
		DB:     db,
		Tokens: auth.NewIssuer("handlers-test-secret", time.Minute, time.Hour),
		Events: feed,
	}
	return h, mock, feed
}

// serve mounts one handler at pattern, authenticated as userID when it is
// non-zero, and runs a single request against it.
func serve(method, pattern string, handler gin.HandlerFunc, userID int64, target, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.Handle(method, pattern, func(c *gin.Context) {
		if userID > 0 {
			c.Set(middleware.ContextUserID, userID)
		}
		c.Next()
	}, handler)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// sqlText escapes a SQL fragment for sqlmock's regexp matcher.
func sqlText(s string) string {
	return regexp.QuoteMeta(s)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func fieldsOf(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	body := decode(t, w)
	fields, ok := body["fields"].(map[string]interface{})
	require.True(t, ok, "no fields in %s", w.Body.String())
	return fields
}

var productColumns = []string{
	"id", "name", "description", "price", "image", "category_id", "created_at",
	"cat_id", "cat_name", "cat_slug", "cat_description",
}

func productRows() *sqlmock.Rows {
	return sqlmock.NewRows(productColumns)
}

func addProduct(rows *sqlmock.Rows, id int64, name, price string) *sqlmock.Rows {
	return rows.AddRow(id, name, nil, price, nil, int64(1), fixedTime, int64(1), "Books", "books", nil)
}

func tagRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"product_id", "id", "name", "slug"})
}

const (
	tagsQuery     = "FROM product_tags pt JOIN tags t ON t.id = pt.tag_id WHERE pt.product_id IN"
	productsQuery = "FROM products p JOIN categories c ON c.id = p.category_id"
)

func TestInPlaceholders(t *testing.T) {
	assert.Equal(t, "", inPlaceholders(0))
	assert.Equal(t, "?", inPlaceholders(1))
	assert.Equal(t, "?, ?, ?", inPlaceholders(3))
}

func TestUniqueIDsKeepsOrder(t *testing.T) {
	assert.Equal(t, []int64{3, 1, 2}, uniqueIDs([]int64{3, 1, 3, 2, 1}))
	assert.Empty(t, uniqueIDs(nil))
}
