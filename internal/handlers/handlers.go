package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/01moynul/storefront-golang/internal/auth"
	"github.com/01moynul/storefront-golang/internal/middleware"
	"github.com/gin-gonic/gin"
)

// EventPublisher receives order status events for live subscribers.
type EventPublisher interface {
	Publish(v interface{})
}

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	DB     *sql.DB
	Tokens *auth.Issuer
	Events EventPublisher
}

// currentUserID returns the ID stored by AuthMiddleware.
func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(middleware.ContextUserID)
}

// parseID reads a positive integer path parameter. Anything else is treated
// like an unknown route and answered with 404.
func parseID(c *gin.Context, name, notFoundMsg string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMsg})
		return 0, false
	}
	return id, true
}

// serverError logs the cause with the request ID and returns a generic message.
func serverError(c *gin.Context, msg string, err error) {
	log.Printf("[%s] %s %s: %s: %v", middleware.RequestID(c), c.Request.Method, c.FullPath(), msg, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func fieldError(c *gin.Context, field, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":  "Invalid input",
		"fields": gin.H{field: msg},
	})
}

// inPlaceholders returns "?, ?, ?" for n arguments.
func inPlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// int64Args converts IDs into query arguments.
func int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// uniqueIDs drops duplicates while keeping first-seen order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
