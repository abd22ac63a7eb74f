package models

import (
	"strings"
	"time"
)

// OrderStatus is the three-value order lifecycle tag. No transition order is enforced.
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
)

// OrderStatuses lists every valid status in lifecycle order.
var OrderStatuses = []OrderStatus{OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// AllowedOrderStatuses renders the enum for error messages.
func AllowedOrderStatuses() string {
	names := make([]string, len(OrderStatuses))
	for i, s := range OrderStatuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// Order is the model for the 'orders' table.
type Order struct {
	ID        int64       `json:"id" db:"id"`
	UserID    int64       `json:"-" db:"user_id"`
	Status    OrderStatus `json:"status" db:"status"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"-" db:"updated_at"`
	Items     []OrderItem `json:"items" db:"-"`
}

// OrderItem is the model for the 'order_items' table. It references the live
// product rather than a price snapshot.
type OrderItem struct {
	ID        int64   `json:"id" db:"id"`
	OrderID   int64   `json:"-" db:"order_id"`
	ProductID int64   `json:"-" db:"product_id"`
	Product   Product `json:"product" db:"-"`
	Quantity  int     `json:"quantity" db:"quantity"`
}

// CreateOrderInput confirms converting the cart into an order.
type CreateOrderInput struct {
	Confirm *bool `json:"confirm" binding:"required"`
}

// UpdateOrderStatusInput is the body of PUT /orders/admin/:id/status/.
type UpdateOrderStatusInput struct {
	Status OrderStatus `json:"status" binding:"required,oneof=processing shipped delivered"`
}

// OrderStatusEvent is published to the admin feed when an order's status changes.
type OrderStatusEvent struct {
	OrderID int64       `json:"order_id"`
	UserID  int64       `json:"user_id"`
	Status  OrderStatus `json:"status"`
}

// OrderStats summarises orders for the admin dashboard.
type OrderStats struct {
	Total    int                 `json:"total"`
	ByStatus map[OrderStatus]int `json:"by_status"`
}
