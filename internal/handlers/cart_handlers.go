package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/01moynul/storefront-golang/internal/database"
	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/gin-gonic/gin"
)

//
// --- Cart Handlers ---
//

const cartItemNotFound = "Cart item not found"

var quantityTooLarge = fmt.Sprintf("Ensure the line quantity is less than or equal to %d.", models.MaxLineQuantity)

// Execer is implemented by both *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// getOrCreateCartID returns the user's cart, creating it on first use. The
// unique key on carts.user_id makes this a single race-free statement: on a
// duplicate, LAST_INSERT_ID(id) hands back the existing row's ID.
func getOrCreateCartID(ctx context.Context, db Execer, userID int64) (int64, error) {
	res, err := db.ExecContext(ctx,
		"INSERT INTO carts (user_id, created_at) VALUES (?, ?) ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)",
		userID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to get or create cart: %w", err)
	}
	return res.LastInsertId()
}

// loadCart reads the cart lines with their products.
func loadCart(ctx context.Context, q Querier, cartID, userID int64) (*models.Cart, error) {
	cart := &models.Cart{ID: cartID, UserID: userID, Items: []models.CartItem{}}

	rows, err := q.QueryContext(ctx, "SELECT id, product_id, quantity FROM cart_items WHERE cart_id = ? ORDER BY id", cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	defer rows.Close()

	var productIDs []int64
	for rows.Next() {
		item := models.CartItem{CartID: cartID}
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
		productIDs = append(productIDs, item.ProductID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	products, err := loadProductsByID(ctx, q, productIDs)
	if err != nil {
		return nil, err
	}
	// A line whose product vanished between the two reads is dropped.
	items := cart.Items[:0]
	for _, item := range cart.Items {
		if p, ok := products[item.ProductID]; ok {
			item.Product = *p
			items = append(items, item)
		}
	}
	cart.Items = items
	return cart, nil
}

// GetCart is the handler for GET /cart/
// It returns the caller's cart, creating an empty one if needed.
func (h *Handlers) GetCart(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUserID(c)

	cartID, err := getOrCreateCartID(ctx, h.DB, userID)
	if err != nil {
		serverError(c, "Cart initialization failed", err)
		return
	}

	cart, err := loadCart(ctx, h.DB, cartID, userID)
	if err != nil {
		serverError(c, "Failed to load cart", err)
		return
	}

	c.JSON(http.StatusOK, cart.Response())
}

// AddToCart is the handler for POST /cart/
// Adding a product that is already in the cart increases that line's quantity.
func (h *Handlers) AddToCart(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUserID(c)

	var input models.AddToCartInput
	if !bindJSON(c, &input) {
		return
	}

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		serverError(c, "Transaction failed", err)
		return
	}
	defer tx.Rollback()

	// 1. --- Cart ---
	cartID, err := getOrCreateCartID(ctx, tx, userID)
	if err != nil {
		serverError(c, "Cart initialization failed", err)
		return
	}

	// 2. --- Merge Line ---
	// The merged quantity is capped in SQL so a line never grows past MaxLineQuantity.
	res, err := tx.ExecContext(ctx,
		`INSERT INTO cart_items (cart_id, product_id, quantity) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = IF(quantity + VALUES(quantity) > ?, quantity, quantity + VALUES(quantity))`,
		cartID, input.ProductID, input.Quantity, models.MaxLineQuantity)
	if err != nil {
		if database.IsMissingReference(err) {
			fieldError(c, "product", fmt.Sprintf("Invalid pk %q - object does not exist.", fmt.Sprint(input.ProductID)))
			return
		}
		if database.IsOutOfRange(err) {
			fieldError(c, "quantity", quantityTooLarge)
			return
		}
		serverError(c, "Failed to add item to cart", err)
		return
	}
	// MySQL reports 0 affected rows when the duplicate branch left the line unchanged.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		fieldError(c, "quantity", quantityTooLarge)
		return
	}

	if err := tx.Commit(); err != nil {
		serverError(c, "Failed to commit transaction", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"detail": "Product added to cart"})
}

// UpdateCartItem is the handler for PUT /cart/item/:id/
// It sets the quantity of one of the caller's own lines.
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUserID(c)

	itemID, ok := parseID(c, "id", cartItemNotFound)
	if !ok {
		return
	}
	var input models.UpdateCartItemInput
	if !bindJSON(c, &input) {
		return
	}

	// 1. --- Ownership Check ---
	// MySQL reports zero affected rows when the value is unchanged, so existence
	// is checked separately from the update.
	item := models.CartItem{ID: itemID}
	err := h.DB.QueryRowContext(ctx,
		`SELECT ci.cart_id, ci.product_id FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE ci.id = ? AND c.user_id = ?`, itemID, userID).Scan(&item.CartID, &item.ProductID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": cartItemNotFound})
			return
		}
		serverError(c, "Database error checking cart item", err)
		return
	}

	// 2. --- Update ---
	if _, err := h.DB.ExecContext(ctx, "UPDATE cart_items SET quantity = ? WHERE id = ?", input.Quantity, itemID); err != nil {
		if database.IsOutOfRange(err) {
			fieldError(c, "quantity", quantityTooLarge)
			return
		}
		serverError(c, "Failed to update cart item", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": itemID, "product": item.ProductID, "quantity": input.Quantity})
}

// RemoveCartItem is the handler for DELETE /cart/item/:id/
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	userID := currentUserID(c)

	itemID, ok := parseID(c, "id", cartItemNotFound)
	if !ok {
		return
	}

	result, err := h.DB.ExecContext(c.Request.Context(),
		`DELETE ci FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE ci.id = ? AND c.user_id = ?`, itemID, userID)
	if err != nil {
		serverError(c, "Failed to remove cart item", err)
		return
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		serverError(c, "Failed to check affected rows", err)
		return
	}
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": cartItemNotFound})
		return
	}

	c.Status(http.StatusNoContent)
}
