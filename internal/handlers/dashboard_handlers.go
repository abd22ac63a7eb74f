package handlers

import (
	"net/http"

	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/gin-gonic/gin"
)

//
// --- Admin Dashboard Stats ---
//

// GetOrderStats returns order counts per status for the admin dashboard.
// GET /orders/admin/stats/
func (h *Handlers) GetOrderStats(c *gin.Context) {
	stats := models.OrderStats{ByStatus: make(map[models.OrderStatus]int, len(models.OrderStatuses))}
	// Every status is reported, including those with no orders.
	for _, s := range models.OrderStatuses {
		stats.ByStatus[s] = 0
	}

	rows, err := h.DB.QueryContext(c.Request.Context(), "SELECT status, COUNT(*) FROM orders GROUP BY status")
	if err != nil {
		serverError(c, "Failed to count orders", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var status models.OrderStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			serverError(c, "Failed to scan order stats", err)
			return
		}
		stats.ByStatus[status] = n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		serverError(c, "Error iterating order stats", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
