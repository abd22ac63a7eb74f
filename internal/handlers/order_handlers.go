package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/01moynul/storefront-golang/internal/pagination"
	"github.com/gin-gonic/gin"
)

//
// --- Order Handlers ---
//

const (
	orderNotFound = "Order not found"
	orderSelect   = "SELECT id, user_id, status, created_at, updated_at FROM orders"
)

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	if err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Items = []models.OrderItem{}
	return &o, nil
}

// attachOrderItems loads the lines of every order, each with its live product.
func attachOrderItems(ctx context.Context, q Querier, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[int64]*models.Order, len(orders))
	orderIDs := make([]int64, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		orderIDs = append(orderIDs, o.ID)
	}

	query := "SELECT id, order_id, product_id, quantity FROM order_items WHERE order_id IN (" +
		inPlaceholders(len(orderIDs)) + ") ORDER BY id"
	rows, err := q.QueryContext(ctx, query, int64Args(orderIDs)...)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	var productIDs []int64
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
		productIDs = append(productIDs, item.ProductID)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	products, err := loadProductsByID(ctx, q, productIDs)
	if err != nil {
		return err
	}
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok {
			continue
		}
		item.Product = *p
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return nil
}

// getOrder loads one order with its items. A non-nil ownerID restricts the
// lookup to that user's orders. Returns sql.ErrNoRows when nothing matches.
func getOrder(ctx context.Context, q Querier, orderID int64, ownerID *int64) (*models.Order, error) {
	query := orderSelect + " WHERE id = ?"
	args := []interface{}{orderID}
	if ownerID != nil {
		query += " AND user_id = ?"
		args = append(args, *ownerID)
	}

	o, err := scanOrder(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	if err := attachOrderItems(ctx, q, []*models.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// listOrders serves both the per-user and the admin listing. ownerID nil means all users.
func (h *Handlers) listOrders(c *gin.Context, ownerID *int64) {
	ctx := c.Request.Context()

	// 1. --- Parse Query ---
	page, err := pagination.Parse(c.Query("page"), c.Query("page_size"))
	if err != nil {
		respondQueryError(c, err)
		return
	}

	where := ""
	var args []interface{}
	addClause := func(clause string, arg interface{}) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, arg)
	}
	if ownerID != nil {
		addClause("user_id = ?", *ownerID)
	}
	if raw := c.Query("status"); raw != "" {
		status := models.OrderStatus(raw)
		if !status.Valid() {
			fieldError(c, "status", fmt.Sprintf("%q is not a valid choice. Allowed values: %s.", raw, models.AllowedOrderStatuses()))
			return
		}
		addClause("status = ?", string(status))
	}

	// 2. --- Count ---
	var total int
	if err := h.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		serverError(c, "Failed to count orders", err)
		return
	}

	// 3. --- Fetch Page ---
	query := orderSelect + where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	rows, err := h.DB.QueryContext(ctx, query, append(args, page.Limit(), page.Offset())...)
	if err != nil {
		serverError(c, "Failed to fetch orders", err)
		return
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			serverError(c, "Failed to scan order row", err)
			return
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		serverError(c, "Error iterating order rows", err)
		return
	}
	if err := attachOrderItems(ctx, h.DB, orders); err != nil {
		serverError(c, "Failed to fetch order items", err)
		return
	}

	c.JSON(http.StatusOK, pagination.NewPage(page, total, orders))
}

// GetMyOrders is the handler for GET /orders/
func (h *Handlers) GetMyOrders(c *gin.Context) {
	userID := currentUserID(c)
	h.listOrders(c, &userID)
}

// GetOrderDetails is the handler for GET /orders/:id/
// Another user's order is reported as not found.
func (h *Handlers) GetOrderDetails(c *gin.Context) {
	userID := currentUserID(c)
	h.getOrderResponse(c, &userID)
}

func (h *Handlers) getOrderResponse(c *gin.Context, ownerID *int64) {
	orderID, ok := parseID(c, "id", orderNotFound)
	if !ok {
		return
	}

	o, err := getOrder(c.Request.Context(), h.DB, orderID, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": orderNotFound})
			return
		}
		serverError(c, "Failed to fetch order", err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// Checkout is the handler for POST /orders/
// It turns the caller's cart into a 'processing' order and empties the cart.
func (h *Handlers) Checkout(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUserID(c)

	var input models.CreateOrderInput
	if !bindJSON(c, &input) {
		return
	}
	if !*input.Confirm {
		fieldError(c, "confirm", "You must confirm the order.")
		return
	}

	// 1. --- Begin Transaction ---
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		serverError(c, "Failed to start transaction", err)
		return
	}
	defer tx.Rollback()

	// 2. --- Lock Cart ---
	var cartID int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM carts WHERE user_id = ? FOR UPDATE", userID).Scan(&cartID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Your cart is empty"})
			return
		}
		serverError(c, "Failed to find cart", err)
		return
	}

	var lines int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM cart_items WHERE cart_id = ?", cartID).Scan(&lines); err != nil {
		serverError(c, "Failed to read cart", err)
		return
	}
	if lines == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Your cart is empty"})
		return
	}

	// 3. --- Create Order ---
	now := time.Now()
	res, err := tx.ExecContext(ctx,
		"INSERT INTO orders (user_id, status, created_at, updated_at) VALUES (?, ?, ?, ?)",
		userID, string(models.OrderStatusProcessing), now, now)
	if err != nil {
		serverError(c, "Failed to create order", err)
		return
	}
	orderID, err := res.LastInsertId()
	if err != nil {
		serverError(c, "Failed to create order", err)
		return
	}

	// 4. --- Move Lines ---
	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_items (order_id, product_id, quantity)
		SELECT ?, product_id, quantity FROM cart_items WHERE cart_id = ? ORDER BY id`, orderID, cartID)
	if err != nil {
		serverError(c, "Failed to create order items", err)
		return
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = ?", cartID); err != nil {
		serverError(c, "Failed to clear cart", err)
		return
	}

	if err := tx.Commit(); err != nil {
		serverError(c, "Failed to commit transaction", err)
		return
	}

	// 5. --- Respond ---
	o, err := getOrder(ctx, h.DB, orderID, nil)
	if err != nil {
		serverError(c, "Failed to fetch order", err)
		return
	}
	c.JSON(http.StatusCreated, o)
}
