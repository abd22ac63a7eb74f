// Package pagination turns untrusted page/page_size query values into a
// bounded offset/limit window and shapes paged responses.
package pagination

import (
	"fmt"
	"math"
	"strconv"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100

	// MaxPage keeps (page-1)*page_size inside a signed 32-bit OFFSET.
	MaxPage = math.MaxInt32 / MaxPageSize
)

// Params is a validated page request.
type Params struct {
	Page     int
	PageSize int
}

// FieldError reports which query parameter was rejected and why.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Parse validates raw page and page_size values. Empty strings take the
// defaults; page_size above MaxPageSize is clamped and page above MaxPage is rejected.
func Parse(rawPage, rawPageSize string) (Params, error) {
	p := Params{Page: DefaultPage, PageSize: DefaultPageSize}

	if rawPage != "" {
		n, err := strconv.Atoi(rawPage)
		if err != nil || n < 1 {
			return Params{}, &FieldError{Field: "page", Message: "must be a positive integer"}
		}
		if n > MaxPage {
			return Params{}, &FieldError{Field: "page", Message: fmt.Sprintf("must not exceed %d", MaxPage)}
		}
		p.Page = n
	}

	if rawPageSize != "" {
		n, err := strconv.Atoi(rawPageSize)
		if err != nil || n < 1 {
			return Params{}, &FieldError{Field: "page_size", Message: "must be a positive integer"}
		}
		if n > MaxPageSize {
			n = MaxPageSize
		}
		p.PageSize = n
	}

	return p, nil
}

// Offset is the zero-based index of the first row on the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Limit is the number of rows on a full page.
func (p Params) Limit() int {
	return p.PageSize
}

// Page is the response envelope shared by every paged listing.
type Page[T any] struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Results  []T `json:"results"`
}

// NewPage builds the envelope; a nil results slice is rendered as [].
func NewPage[T any](p Params, total int, results []T) Page[T] {
	if results == nil {
		results = []T{}
	}
	return Page[T]{Total: total, Page: p.Page, PageSize: p.PageSize, Results: results}
}
