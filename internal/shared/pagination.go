package shared

import (
	"math"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 500
)

// ListParams carries the common list filters every listing accepts.
type ListParams struct {
	Page     int
	PageSize int
	Search   string
	SortBy   string
	SortDir  string
	From     *time.Time
	// To is exclusive: the instant after the last included day.
	To *time.Time
}

// Offset returns the SQL offset for the current page.
func (p ListParams) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the clamped page size.
func (p ListParams) Limit() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

// Desc reports whether the caller asked for descending order.
func (p ListParams) Desc() bool {
	return p.SortDir == "desc"
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
	// StartIndex and EndIndex are 1-based and inclusive; both are 0 for an empty page.
	StartIndex int `json:"startIndex"`
	EndIndex   int `json:"endIndex"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, pageSize, total int) Pagination {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	if total < 0 {
		total = 0
	}
	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))
	p := Pagination{Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages}
	start := (page-1)*pageSize + 1
	if total == 0 || start > total {
		return p
	}
	p.StartIndex = start
	p.EndIndex = min(page*pageSize, total)
	return p
}

// Page is the list response envelope.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// NewPage wraps items with pagination derived from params and the server total.
func NewPage[T any](items []T, params ListParams, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Pagination: NewPagination(params.Page, params.Limit(), total)}
}
