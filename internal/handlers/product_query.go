package handlers

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/01moynul/storefront-golang/internal/pagination"
	"github.com/shopspring/decimal"
)

// productOrderings maps the accepted order_by keys to ORDER BY clauses.
var productOrderings = map[string]string{
	"price":  "p.price ASC, p.id ASC",
	"-price": "p.price DESC, p.id ASC",
	"name":   "p.name ASC, p.id ASC",
	"-name":  "p.name DESC, p.id ASC",
}

const defaultProductOrder = "p.id ASC"

// ProductFilter holds the catalog query parameters. Every set field narrows
// the result; they are combined with AND.
type ProductFilter struct {
	CategoryID *int64
	TagID      *int64
	PriceMin   *decimal.Decimal
	PriceMax   *decimal.Decimal
	Search     string
	OrderBy    string
}

// ParseProductFilter reads the filter from query values. Malformed numbers
// are rejected; an unknown order_by is dropped.
func ParseProductFilter(q url.Values) (ProductFilter, error) {
	var f ProductFilter

	var err error
	if f.CategoryID, err = parseOptionalID(q.Get("category"), "category"); err != nil {
		return f, err
	}
	if f.TagID, err = parseOptionalID(q.Get("tag"), "tag"); err != nil {
		return f, err
	}
	if f.PriceMin, err = parseOptionalPrice(q.Get("price_min"), "price_min"); err != nil {
		return f, err
	}
	if f.PriceMax, err = parseOptionalPrice(q.Get("price_max"), "price_max"); err != nil {
		return f, err
	}

	f.Search = q.Get("search")
	if _, ok := productOrderings[q.Get("order_by")]; ok {
		f.OrderBy = q.Get("order_by")
	}
	return f, nil
}

func parseOptionalID(raw, field string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, &pagination.FieldError{Field: field, Message: "must be a positive integer"}
	}
	return &id, nil
}

func parseOptionalPrice(raw, field string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, &pagination.FieldError{Field: field, Message: "must be a decimal number"}
	}
	return &d, nil
}

// where builds the WHERE clause (including the keyword) and its arguments.
func (f ProductFilter) where() (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if f.CategoryID != nil {
		clauses = append(clauses, "p.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.TagID != nil {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM product_tags pt WHERE pt.product_id = p.id AND pt.tag_id = ?)")
		args = append(args, *f.TagID)
	}
	if f.PriceMin != nil {
		clauses = append(clauses, "p.price >= ?")
		args = append(args, f.PriceMin.String())
	}
	if f.PriceMax != nil {
		clauses = append(clauses, "p.price <= ?")
		args = append(args, f.PriceMax.String())
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		clauses = append(clauses, "(LOWER(p.name) LIKE ? OR LOWER(COALESCE(p.description, '')) LIKE ?)")
		args = append(args, pattern, pattern)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (f ProductFilter) orderBy() string {
	if clause, ok := productOrderings[f.OrderBy]; ok {
		return clause
	}
	return defaultProductOrder
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
