package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/gin-gonic/gin"
)

//
// --- Notification Handlers ---
//

// AddNotification is an internal helper that records a message for a user.
// It is called from other handlers inside their transaction.
func (h *Handlers) AddNotification(ctx context.Context, db Execer, userID int64, message, link string) error {
	var linkArg *string
	if link != "" {
		linkArg = &link
	}

	query := `
		INSERT INTO notifications
		(user_id, message, link, is_read, created_at)
		VALUES (?, ?, ?, 0, ?)`

	if _, err := db.ExecContext(ctx, query, userID, message, linkArg, time.Now()); err != nil {
		return fmt.Errorf("failed to add notification: %w", err)
	}
	return nil
}

// GetMyNotifications is the handler for GET /notifications/
// Unread first, then newest first.
func (h *Handlers) GetMyNotifications(c *gin.Context) {
	userID := currentUserID(c)

	query := `
		SELECT id, user_id, message, link, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY is_read ASC, created_at DESC
		LIMIT 50`

	rows, err := h.DB.QueryContext(c.Request.Context(), query, userID)
	if err != nil {
		serverError(c, "Database query failed", err)
		return
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			serverError(c, "Failed to scan notification row", err)
			return
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		serverError(c, "Error iterating notification rows", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkNotificationAsRead is the handler for PATCH /notifications/:id/read/
func (h *Handlers) MarkNotificationAsRead(c *gin.Context) {
	userID := currentUserID(c)
	notificationID, ok := parseID(c, "id", "Notification not found")
	if !ok {
		return
	}

	// Only the owner's row matches, so another user's ID reads as not found.
	// is_read = 0 is not part of the filter: marking twice still succeeds.
	var owned int
	err := h.DB.QueryRowContext(c.Request.Context(),
		"SELECT COUNT(*) FROM notifications WHERE id = ? AND user_id = ?", notificationID, userID).Scan(&owned)
	if err != nil {
		serverError(c, "Failed to update notification", err)
		return
	}
	if owned == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	if _, err := h.DB.ExecContext(c.Request.Context(),
		"UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?", notificationID, userID); err != nil {
		serverError(c, "Failed to update notification", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
