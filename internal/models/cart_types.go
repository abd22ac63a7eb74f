package models

import "github.com/shopspring/decimal"

// Cart defines the struct for the 'carts' table with its lines attached.
type Cart struct {
	ID     int64      `json:"id" db:"id"`
	UserID int64      `json:"-" db:"user_id"`
	Items  []CartItem `json:"items" db:"-"`
}

// CartItem defines the struct for the 'cart_items' table.
type CartItem struct {
	ID        int64   `json:"id" db:"id"`
	CartID    int64   `json:"-" db:"cart_id"`
	ProductID int64   `json:"-" db:"product_id"`
	Product   Product `json:"product" db:"-"`
	Quantity  int     `json:"quantity" db:"quantity"`
}

// LineTotal is unit price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// TotalPrice sums every line. It is recomputed on each call, never cached.
func (c *Cart) TotalPrice() Money {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return NewMoney(total)
}

// CartResponse is the JSON shape of GET /cart/.
type CartResponse struct {
	ID         int64      `json:"id"`
	Items      []CartItem `json:"items"`
	TotalPrice Money      `json:"total_price"`
}

func (c *Cart) Response() CartResponse {
	items := c.Items
	if items == nil {
		items = []CartItem{}
	}
	return CartResponse{ID: c.ID, Items: items, TotalPrice: c.TotalPrice()}
}

// MaxLineQuantity bounds a single cart line.
const MaxLineQuantity = 10000

// AddToCartInput defines the JSON for adding an item to the cart.
type AddToCartInput struct {
	ProductID int64 `json:"product" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"gte=1,max=10000"`
}

// UpdateCartItemInput defines the JSON for changing a line's quantity.
type UpdateCartItemInput struct {
	Quantity int `json:"quantity" binding:"gte=1,max=10000"`
}
