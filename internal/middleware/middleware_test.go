package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/01moynul/storefront-golang/internal/auth"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userFlagsQuery = `SELECT is_staff, is_active FROM users WHERE id = \?`

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, *auth.Issuer) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	issuer := auth.NewIssuer("mw-secret", time.Minute, time.Hour)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	protected := r.Group("/", AuthMiddleware(db, issuer))
	protected.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetInt64(ContextUserID)})
	})
	admin := r.Group("/admin", AuthMiddleware(db, issuer), AdminMiddleware())
	admin.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r, mock, issuer
}

func do(r http.Handler, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareRejectsMissingOrMalformedHeader(t *testing.T) {
	r, _, _ := newRouter(t)

	w := do(r, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "/me", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsRefreshToken(t *testing.T) {
	r, _, issuer := newRouter(t)
	pair, err := issuer.GeneratePair(3)
	require.NoError(t, err)

	w := do(r, "/me", pair.Refresh)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareAcceptsActiveUser(t *testing.T) {
	r, mock, issuer := newRouter(t)
	token, err := issuer.GenerateAccess(3)
	require.NoError(t, err)

	mock.ExpectQuery(userFlagsQuery).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"is_staff", "is_active"}).AddRow(false, true))

	w := do(r, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":3}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthMiddlewareRejectsInactiveOrDeletedUser(t *testing.T) {
	r, mock, issuer := newRouter(t)
	token, err := issuer.GenerateAccess(3)
	require.NoError(t, err)

	mock.ExpectQuery(userFlagsQuery).
		WillReturnRows(sqlmock.NewRows([]string{"is_staff", "is_active"}).AddRow(false, false))
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", token).Code)

	mock.ExpectQuery(userFlagsQuery).
		WillReturnRows(sqlmock.NewRows([]string{"is_staff", "is_active"}))
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", token).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminMiddleware(t *testing.T) {
	r, mock, issuer := newRouter(t)
	token, err := issuer.GenerateAccess(8)
	require.NoError(t, err)

	mock.ExpectQuery(userFlagsQuery).
		WillReturnRows(sqlmock.NewRows([]string{"is_staff", "is_active"}).AddRow(false, true))
	assert.Equal(t, http.StatusForbidden, do(r, "/admin/", token).Code)

	mock.ExpectQuery(userFlagsQuery).
		WillReturnRows(sqlmock.NewRows([]string{"is_staff", "is_active"}).AddRow(true, true))
	assert.Equal(t, http.StatusNoContent, do(r, "/admin/", token).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestIDIsPropagated(t *testing.T) {
	r, _, _ := newRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestAccessTokenQueryOnlyForWebSocketUpgrade(t *testing.T) {
	r, mock, issuer := newRouter(t)
	token, err := issuer.GenerateAccess(3)
	require.NoError(t, err)

	// Plain request: the query parameter is ignored.
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me?access_token="+token, "").Code)

	mock.ExpectQuery(userFlagsQuery).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"is_staff", "is_active"}).AddRow(false, true))

	req := httptest.NewRequest(http.MethodGet, "/me?access_token="+token, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
