package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/gin-gonic/gin"
)

//
// --- Admin Order Handlers ---
//

// AdminListOrders is the handler for GET /orders/admin/
func (h *Handlers) AdminListOrders(c *gin.Context) {
	h.listOrders(c, nil)
}

// AdminGetOrder is the handler for GET /orders/admin/:id/
func (h *Handlers) AdminGetOrder(c *gin.Context) {
	h.getOrderResponse(c, nil)
}

// UpdateOrderStatus is the handler for PUT /orders/admin/:id/status/
// Any of the three statuses may be set from any other; no ordering is enforced.
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	ctx := c.Request.Context()

	// 1. --- Get IDs & Input ---
	orderID, ok := parseID(c, "id", orderNotFound)
	if !ok {
		return
	}
	var input models.UpdateOrderStatusInput
	if !bindJSON(c, &input) {
		return
	}

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		serverError(c, "Failed to start transaction", err)
		return
	}
	defer tx.Rollback()

	// 2. --- Lock Order ---
	var ownerID int64
	err = tx.QueryRowContext(ctx, "SELECT user_id FROM orders WHERE id = ? FOR UPDATE", orderID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": orderNotFound})
			return
		}
		serverError(c, "Database error checking order", err)
		return
	}

	// 3. --- Update Status ---
	_, err = tx.ExecContext(ctx, "UPDATE orders SET status = ?, updated_at = ? WHERE id = ?",
		string(input.Status), time.Now(), orderID)
	if err != nil {
		serverError(c, "Failed to update order status", err)
		return
	}

	// 4. --- Notify Owner ---
	message := fmt.Sprintf("Your order #%d is now %s.", orderID, input.Status)
	link := fmt.Sprintf("/orders/%d/", orderID)
	if err := h.AddNotification(ctx, tx, ownerID, message, link); err != nil {
		serverError(c, "Failed to create notification", err)
		return
	}

	if err := tx.Commit(); err != nil {
		serverError(c, "Failed to commit transaction", err)
		return
	}

	// 5. --- Publish To Live Feed ---
	if h.Events != nil {
		h.Events.Publish(models.OrderStatusEvent{OrderID: orderID, UserID: ownerID, Status: input.Status})
	}

	c.JSON(http.StatusOK, gin.H{"id": orderID, "status": input.Status})
}
