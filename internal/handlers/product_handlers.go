package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/01moynul/storefront-golang/internal/database"
	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/01moynul/storefront-golang/internal/pagination"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Querier is implemented by both *sql.DB and *sql.Tx.
// This allows the loaders below to be used in or out of a transaction.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const productSelect = `SELECT p.id, p.name, p.description, p.price, p.image, p.category_id, p.created_at,
	c.id, c.name, c.slug, c.description
	FROM products p
	JOIN categories c ON c.id = p.category_id`

const productNotFound = "Product not found"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price.Decimal, &p.Image, &p.CategoryID, &p.CreatedAt,
		&p.Category.ID, &p.Category.Name, &p.Category.Slug, &p.Category.Description,
	)
	if err != nil {
		return nil, err
	}
	p.Tags = []models.Tag{}
	return &p, nil
}

// attachTags fills Tags on every product in one query.
func attachTags(ctx context.Context, q Querier, products []*models.Product) error {
	if len(products) == 0 {
		return nil
	}
	byID := make(map[int64]*models.Product, len(products))
	ids := make([]int64, 0, len(products))
	for _, p := range products {
		if _, seen := byID[p.ID]; !seen {
			ids = append(ids, p.ID)
		}
		byID[p.ID] = p
	}

	query := `SELECT pt.product_id, t.id, t.name, t.slug
		FROM product_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.product_id IN (` + inPlaceholders(len(ids)) + `)
		ORDER BY t.id`
	rows, err := q.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return fmt.Errorf("failed to load product tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var productID int64
		var t models.Tag
		if err := rows.Scan(&productID, &t.ID, &t.Name, &t.Slug); err != nil {
			return fmt.Errorf("failed to scan product tag: %w", err)
		}
		if p, ok := byID[productID]; ok {
			p.Tags = append(p.Tags, t)
		}
	}
	return rows.Err()
}

// getProduct loads one product with its category and tags. It returns
// sql.ErrNoRows when the product does not exist.
func getProduct(ctx context.Context, q Querier, id int64) (*models.Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx, productSelect+" WHERE p.id = ?", id))
	if err != nil {
		return nil, err
	}
	if err := attachTags(ctx, q, []*models.Product{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// loadProductsByID loads the given products keyed by ID. Missing IDs are absent from the map.
func loadProductsByID(ctx context.Context, q Querier, ids []int64) (map[int64]*models.Product, error) {
	out := make(map[int64]*models.Product)
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return out, nil
	}

	query := productSelect + " WHERE p.id IN (" + inPlaceholders(len(ids)) + ")"
	rows, err := q.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachTags(ctx, q, products); err != nil {
		return nil, err
	}
	return out, nil
}

//
// --- Public Catalog Handlers ---
//

// ListProducts is the handler for GET /products/
func (h *Handlers) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()

	// 1. --- Parse Query ---
	page, err := pagination.Parse(c.Query("page"), c.Query("page_size"))
	if err != nil {
		respondQueryError(c, err)
		return
	}
	filter, err := ParseProductFilter(c.Request.URL.Query())
	if err != nil {
		respondQueryError(c, err)
		return
	}
	where, args := filter.where()

	// 2. --- Count Matches ---
	var total int
	if err := h.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM products p"+where, args...).Scan(&total); err != nil {
		serverError(c, "Failed to count products", err)
		return
	}

	// 3. --- Fetch Page ---
	query := productSelect + where + " ORDER BY " + filter.orderBy() + " LIMIT ? OFFSET ?"
	rows, err := h.DB.QueryContext(ctx, query, append(args, page.Limit(), page.Offset())...)
	if err != nil {
		serverError(c, "Failed to fetch products", err)
		return
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			serverError(c, "Failed to scan product row", err)
			return
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		serverError(c, "Error iterating product rows", err)
		return
	}
	if err := attachTags(ctx, h.DB, products); err != nil {
		serverError(c, "Failed to fetch products", err)
		return
	}

	c.JSON(http.StatusOK, pagination.NewPage(page, total, products))
}

// GetProduct is the handler for GET /products/:id/
func (h *Handlers) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id", productNotFound)
	if !ok {
		return
	}

	p, err := getProduct(c.Request.Context(), h.DB, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": productNotFound})
			return
		}
		serverError(c, "Failed to fetch product", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// respondQueryError answers 400 for a rejected query parameter.
func respondQueryError(c *gin.Context, err error) {
	var fe *pagination.FieldError
	if errors.As(err, &fe) {
		fieldError(c, fe.Field, fe.Message)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

//
// --- Admin Product Handlers ---
//

// checkPrice validates an incoming price: non-negative with at most two decimals.
func checkPrice(price decimal.Decimal) string {
	if price.IsNegative() {
		return "Ensure this value is greater than or equal to 0."
	}
	if !price.Equal(price.Round(2)) {
		return "Ensure that there are no more than 2 decimal places."
	}
	if price.GreaterThanOrEqual(decimal.New(1, 8)) {
		return "Ensure that there are no more than 10 digits in total."
	}
	return ""
}

// setProductTags replaces the product's tag links.
func setProductTags(ctx context.Context, tx *sql.Tx, productID int64, tagIDs []int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM product_tags WHERE product_id = ?", productID); err != nil {
		return fmt.Errorf("failed to clear product tags: %w", err)
	}
	tagIDs = uniqueIDs(tagIDs)
	if len(tagIDs) == 0 {
		return nil
	}

	args := make([]interface{}, 0, len(tagIDs)*2)
	values := ""
	for i, tagID := range tagIDs {
		if i > 0 {
			values += ", "
		}
		values += "(?, ?)"
		args = append(args, productID, tagID)
	}
	_, err := tx.ExecContext(ctx, "INSERT INTO product_tags (product_id, tag_id) VALUES "+values, args...)
	return err
}

// CreateProduct is the handler for POST /products/admin/
func (h *Handlers) CreateProduct(c *gin.Context) {
	ctx := c.Request.Context()

	// 1. --- Bind & Validate ---
	var input models.CreateProductInput
	if !bindJSON(c, &input) {
		return
	}
	if input.Price == nil {
		fieldError(c, "price", "This field is required.")
		return
	}
	if msg := checkPrice(*input.Price); msg != "" {
		fieldError(c, "price", msg)
		return
	}

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		serverError(c, "DB Transaction failed", err)
		return
	}
	defer tx.Rollback()

	// 2. --- Insert Product ---
	res, err := tx.ExecContext(ctx,
		`INSERT INTO products (name, description, price, image, category_id, created_at) VALUES (?, ?, ?, ?, ?, NOW())`,
		input.Name, input.Description, input.Price.StringFixed(2), input.Image, input.Category)
	if err != nil {
		if database.IsMissingReference(err) {
			fieldError(c, "category", fmt.Sprintf("Invalid pk %q - object does not exist.", fmt.Sprint(input.Category)))
			return
		}
		serverError(c, "Failed to create product", err)
		return
	}
	productID, err := res.LastInsertId()
	if err != nil {
		serverError(c, "Failed to create product", err)
		return
	}

	// 3. --- Link Tags ---
	if err := setProductTags(ctx, tx, productID, input.Tags); err != nil {
		if database.IsMissingReference(err) {
			fieldError(c, "tags", "One or more tags do not exist.")
			return
		}
		serverError(c, "Failed to link product tags", err)
		return
	}

	if err := tx.Commit(); err != nil {
		serverError(c, "Failed to commit transaction", err)
		return
	}

	// 4. --- Respond With The Stored Product ---
	p, err := getProduct(ctx, h.DB, productID)
	if err != nil {
		serverError(c, "Failed to fetch product", err)
		return
	}
	c.JSON(http.StatusCreated, p.Admin())
}

// AdminGetProduct is the handler for GET /products/admin/:id/
func (h *Handlers) AdminGetProduct(c *gin.Context) {
	id, ok := parseID(c, "id", productNotFound)
	if !ok {
		return
	}

	p, err := getProduct(c.Request.Context(), h.DB, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": productNotFound})
			return
		}
		serverError(c, "Failed to fetch product", err)
		return
	}
	c.JSON(http.StatusOK, p.Admin())
}

// UpdateProduct is the handler for PUT /products/admin/:id/. Only the fields
// present in the body are changed.
func (h *Handlers) UpdateProduct(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseID(c, "id", productNotFound)
	if !ok {
		return
	}

	var input models.UpdateProductInput
	if !bindJSON(c, &input) {
		return
	}
	if input.Price != nil {
		if msg := checkPrice(*input.Price); msg != "" {
			fieldError(c, "price", msg)
			return
		}
	}
	if input.Tags != nil {
		for _, tagID := range *input.Tags {
			if tagID <= 0 {
				fieldError(c, "tags", "Ensure every tag id is greater than 0.")
				return
			}
		}
	}

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		serverError(c, "Failed to start transaction", err)
		return
	}
	defer tx.Rollback()

	// 1. --- Check Existence ---
	var exists int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM products WHERE id = ? FOR UPDATE", id).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": productNotFound})
			return
		}
		serverError(c, "Database error checking product", err)
		return
	}

	// 2. --- Dynamically Build UPDATE Query ---
	querySet := ""
	queryArgs := []interface{}{}
	add := func(column string, value interface{}) {
		if querySet != "" {
			querySet += ", "
		}
		querySet += column + " = ?"
		queryArgs = append(queryArgs, value)
	}
	if input.Name != nil {
		add("name", *input.Name)
	}
	if input.Description != nil {
		add("description", *input.Description)
	}
	if input.Price != nil {
		add("price", input.Price.StringFixed(2))
	}
	if input.Image != nil {
		add("image", *input.Image)
	}
	if input.Category != nil {
		add("category_id", *input.Category)
	}

	if querySet != "" {
		queryArgs = append(queryArgs, id)
		query := fmt.Sprintf("UPDATE products SET %s WHERE id = ?", querySet)
		if _, err := tx.ExecContext(ctx, query, queryArgs...); err != nil {
			if database.IsMissingReference(err) {
				fieldError(c, "category", fmt.Sprintf("Invalid pk %q - object does not exist.", fmt.Sprint(*input.Category)))
				return
			}
			serverError(c, "Failed to update product", err)
			return
		}
	}

	// 3. --- Replace Tags ---
	if input.Tags != nil {
		if err := setProductTags(ctx, tx, id, *input.Tags); err != nil {
			if database.IsMissingReference(err) {
				fieldError(c, "tags", "One or more tags do not exist.")
				return
			}
			serverError(c, "Failed to link product tags", err)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		serverError(c, "Failed to commit transaction", err)
		return
	}

	p, err := getProduct(ctx, h.DB, id)
	if err != nil {
		serverError(c, "Failed to fetch product", err)
		return
	}
	c.JSON(http.StatusOK, p.Admin())
}

// DeleteProduct is the handler for DELETE /products/admin/:id/
func (h *Handlers) DeleteProduct(c *gin.Context) {
	h.deleteByID(c, "products", productNotFound)
}
