package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money is a decimal amount that always renders with two fraction digits,
// matching the DECIMAL(10,2) columns it is read from.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money { return Money{Decimal: d} }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.StringFixed(2) + `"`), nil
}

// Product is the model for the 'products' table with its category and tags joined in.
type Product struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description" db:"description"`
	Price       Money     `json:"price" db:"price"`
	Image       *string   `json:"image" db:"image"`
	CategoryID  int64     `json:"-" db:"category_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	// Joins (Not in DB table, populated manually)
	Category Category `json:"category" db:"-"`
	Tags     []Tag    `json:"tags" db:"-"`
}

// AdminProduct is the flat representation returned by the admin endpoints.
type AdminProduct struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Price       Money   `json:"price"`
	Image       *string `json:"image"`
	Category    int64   `json:"category"`
	Tags        []int64 `json:"tags"`
}

func (p *Product) Admin() AdminProduct {
	tagIDs := make([]int64, 0, len(p.Tags))
	for _, t := range p.Tags {
		tagIDs = append(tagIDs, t.ID)
	}
	return AdminProduct{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
		Category:    p.CategoryID,
		Tags:        tagIDs,
	}
}

// CreateProductInput is the body of POST /products/admin/.
type CreateProductInput struct {
	Name        string           `json:"name" binding:"required,max=200"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Image       *string          `json:"image" binding:"omitempty,max=255"`
	Category    int64            `json:"category" binding:"required,gt=0"`
	Tags        []int64          `json:"tags" binding:"omitempty,dive,gt=0"`
}

// UpdateProductInput is the body of PUT /products/admin/:id/. Every field is optional.
type UpdateProductInput struct {
	Name        *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Image       *string          `json:"image" binding:"omitempty,max=255"`
	Category    *int64           `json:"category" binding:"omitempty,gt=0"`
	Tags        *[]int64         `json:"tags"`
}
