package middleware

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/01moynul/storefront-golang/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Context keys shared with the handlers package.
const (
	ContextUserID  = "userID"
	ContextIsStaff = "isStaff"
)

// AuthMiddleware validates the bearer access token and confirms the account
// still exists and is active. It stores the user ID and staff flag in the
// gin context for the handlers and AdminMiddleware.
func AuthMiddleware(db *sql.DB, issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. --- Get Token ---
		token, ok := bearerToken(c)
		if !ok {
			return
		}

		// 2. --- Validate Token ---
		userID, err := issuer.ValidateToken(token, auth.TokenTypeAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		// 3. --- Load Account Flags ---
		var isStaff, isActive bool
		err = db.QueryRowContext(c.Request.Context(),
			"SELECT is_staff, is_active FROM users WHERE id = ?", userID).Scan(&isStaff, &isActive)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
				return
			}
			log.Printf("[%s] auth: load user %d: %v", RequestID(c), userID, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database error checking user"})
			return
		}
		if !isActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User account is disabled"})
			return
		}

		// 4. --- Success ---
		c.Set(ContextUserID, userID)
		c.Set(ContextIsStaff, isStaff)
		c.Next()
	}
}

// bearerToken reads the token from the Authorization header. Browsers cannot
// set headers on a websocket handshake, so upgrades may pass it as the
// access_token query parameter instead.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if websocket.IsWebSocketUpgrade(c.Request) {
			if token := c.Query("access_token"); token != "" {
				return token, true
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
		return "", false
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format (must be Bearer)"})
		return "", false
	}
	return parts[1], true
}

// AdminMiddleware must run after AuthMiddleware. It only lets staff accounts through.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ContextUserID); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context (AuthMiddleware must run first)"})
			return
		}
		if !c.GetBool(ContextIsStaff) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied: Admin role required"})
			return
		}
		c.Next()
	}
}
